// Package references persists reference voice samples for voice cloning.
//
// Each voice lives in its own directory under the store root, holding the
// sample audio and its transcript. The layout is shared with the inference
// engine, so the file names are part of the contract:
//
//	<root>/<id>/audio.wav
//	<root>/<id>/text.txt
package references

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/book-expert/voice-mcp-service/internal/core"
)

// Fixed file names inside a voice directory.
const (
	audioFileName = "audio.wav"
	textFileName  = "text.txt"
)

// File and directory permissions.
const (
	filePermissions = 0o600
	dirPermissions  = 0o750
)

// Transcript placeholder for voices whose text file is missing.
const noTextPlaceholder = "(no text)"

const invalidCharReplacement = "_"

// Static errors.
var (
	// ErrStoreDirEmpty indicates the store was constructed without a root directory.
	ErrStoreDirEmpty = errors.New("references directory cannot be empty")
	// ErrIDEmpty indicates an empty reference identifier.
	ErrIDEmpty = errors.New("reference id cannot be empty")
	// ErrIDInvalid indicates an identifier that is not a safe single path element.
	ErrIDInvalid = errors.New("reference id must be a single path element without special characters")
	// ErrAlreadyExists indicates a duplicate reference identifier.
	ErrAlreadyExists = errors.New("reference id already exists")
	// ErrNotFound indicates the requested voice is not in the store.
	ErrNotFound = errors.New("reference voice not found")
	// ErrAudioMissing indicates a voice directory without its sample audio.
	ErrAudioMissing = errors.New("reference audio file missing")
	// ErrAudioWrite indicates the sample audio could not be written.
	ErrAudioWrite = errors.New("saving audio file")
	// ErrTextWrite indicates the transcript could not be written.
	ErrTextWrite = errors.New("saving text file")
)

// idSanitizer rewrites the characters that are unsafe in directory names.
// An identifier is valid exactly when sanitizing it changes nothing.
var idSanitizer = strings.NewReplacer(
	"<", invalidCharReplacement,
	">", invalidCharReplacement,
	":", invalidCharReplacement,
	"\"", invalidCharReplacement,
	"/", invalidCharReplacement,
	"\\", invalidCharReplacement,
	"|", invalidCharReplacement,
	"?", invalidCharReplacement,
	"*", invalidCharReplacement,
)

// Store is a filesystem-backed implementation of core.ReferenceStore.
type Store struct {
	root string
}

// NewStore creates the store rooted at dir, creating the directory when it
// does not exist yet.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, ErrStoreDirEmpty
	}

	mkdirErr := os.MkdirAll(dir, dirPermissions)
	if mkdirErr != nil {
		return nil, fmt.Errorf("failed to create references directory %s: %w", dir, mkdirErr)
	}

	return &Store{root: dir}, nil
}

// Root returns the store's root directory.
func (s *Store) Root() string {
	return s.root
}

// ValidateID rejects identifiers that are empty, refer to the current or
// parent directory, or would not survive sanitizing. Identifiers become
// directory names, so they must never escape the store root.
func ValidateID(id string) error {
	if id == "" {
		return ErrIDEmpty
	}

	if id == "." || id == ".." {
		return fmt.Errorf("%w: %q", ErrIDInvalid, id)
	}

	if idSanitizer.Replace(id) != id {
		return fmt.Errorf("%w: %q", ErrIDInvalid, id)
	}

	return nil
}

// Save stores a new reference voice. Duplicate identifiers are rejected;
// an upload never overwrites an existing voice.
func (s *Store) Save(id string, audio []byte, text string) (core.ReferenceVoice, error) {
	validateErr := ValidateID(id)
	if validateErr != nil {
		return core.ReferenceVoice{}, validateErr
	}

	voiceDir := filepath.Join(s.root, id)

	_, statErr := os.Stat(voiceDir)
	if statErr == nil {
		return core.ReferenceVoice{}, fmt.Errorf("%w: %q", ErrAlreadyExists, id)
	}

	mkdirErr := os.MkdirAll(voiceDir, dirPermissions)
	if mkdirErr != nil {
		return core.ReferenceVoice{}, fmt.Errorf("%w: %w", ErrAudioWrite, mkdirErr)
	}

	audioPath := filepath.Join(voiceDir, audioFileName)

	audioErr := os.WriteFile(audioPath, audio, filePermissions)
	if audioErr != nil {
		return core.ReferenceVoice{}, fmt.Errorf("%w: %w", ErrAudioWrite, audioErr)
	}

	textErr := os.WriteFile(filepath.Join(voiceDir, textFileName), []byte(text), filePermissions)
	if textErr != nil {
		return core.ReferenceVoice{}, fmt.Errorf("%w: %w", ErrTextWrite, textErr)
	}

	return core.ReferenceVoice{
		ID:        id,
		Text:      text,
		HasAudio:  true,
		AudioPath: audioPath,
	}, nil
}

// Get loads a stored voice together with its audio payload, for engines
// that take the reference inline instead of sharing the directory.
func (s *Store) Get(id string) (core.ReferenceVoice, []byte, error) {
	validateErr := ValidateID(id)
	if validateErr != nil {
		return core.ReferenceVoice{}, nil, validateErr
	}

	voiceDir := filepath.Join(s.root, id)

	info, statErr := os.Stat(voiceDir)
	if statErr != nil || !info.IsDir() {
		return core.ReferenceVoice{}, nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}

	voice := s.describeVoice(id)

	audio, readErr := os.ReadFile(voice.AudioPath)
	if readErr != nil {
		return core.ReferenceVoice{}, nil, fmt.Errorf("%w: %q", ErrAudioMissing, id)
	}

	return voice, audio, nil
}

// List returns every stored voice, sorted by identifier. Voices with a
// missing transcript are reported with a placeholder; missing audio is
// reflected in the HasAudio flag rather than treated as an error.
func (s *Store) List() ([]core.ReferenceVoice, error) {
	entries, readErr := os.ReadDir(s.root)
	if readErr != nil {
		if os.IsNotExist(readErr) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to read references directory: %w", readErr)
	}

	var voices []core.ReferenceVoice

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		voices = append(voices, s.describeVoice(entry.Name()))
	}

	return voices, nil
}

// Delete removes a stored voice and everything in its directory.
func (s *Store) Delete(id string) error {
	validateErr := ValidateID(id)
	if validateErr != nil {
		return validateErr
	}

	voiceDir := filepath.Join(s.root, id)

	_, statErr := os.Stat(voiceDir)
	if statErr != nil {
		return fmt.Errorf("%w: %q", ErrNotFound, id)
	}

	removeErr := os.RemoveAll(voiceDir)
	if removeErr != nil {
		return fmt.Errorf("failed to delete reference %q: %w", id, removeErr)
	}

	return nil
}

// describeVoice reads the on-disk state of one voice directory.
func (s *Store) describeVoice(id string) core.ReferenceVoice {
	voiceDir := filepath.Join(s.root, id)
	audioPath := filepath.Join(voiceDir, audioFileName)

	text := noTextPlaceholder

	textData, textErr := os.ReadFile(filepath.Join(voiceDir, textFileName))
	if textErr == nil {
		text = string(textData)
	}

	_, audioErr := os.Stat(audioPath)

	return core.ReferenceVoice{
		ID:        id,
		Text:      text,
		HasAudio:  audioErr == nil,
		AudioPath: audioPath,
	}
}
