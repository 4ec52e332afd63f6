// Package references_test tests the filesystem reference voice store.
package references_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/voice-mcp-service/internal/references"
)

const (
	testVoiceID    = "podcast_host"
	testTranscript = "Welcome to our podcast about artificial intelligence."
)

var testAudio = []byte("RIFF....WAVEfmt ")

func newTestStore(t *testing.T) *references.Store {
	t.Helper()

	store, err := references.NewStore(filepath.Join(t.TempDir(), "references"))
	require.NoError(t, err)

	return store
}

func TestNewStore_CreatesRoot(t *testing.T) {
	t.Parallel()

	root := filepath.Join(t.TempDir(), "references")

	store, err := references.NewStore(root)
	require.NoError(t, err)

	info, statErr := os.Stat(root)
	require.NoError(t, statErr)
	assert.True(t, info.IsDir())
	assert.Equal(t, root, store.Root())
}

func TestNewStore_EmptyDir(t *testing.T) {
	t.Parallel()

	_, err := references.NewStore("")
	require.ErrorIs(t, err, references.ErrStoreDirEmpty)
}

func TestStore_Save_WritesVoiceLayout(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)

	voice, err := store.Save(testVoiceID, testAudio, testTranscript)
	require.NoError(t, err)

	assert.Equal(t, testVoiceID, voice.ID)
	assert.Equal(t, testTranscript, voice.Text)
	assert.True(t, voice.HasAudio)

	audioData, readErr := os.ReadFile(filepath.Join(store.Root(), testVoiceID, "audio.wav"))
	require.NoError(t, readErr)
	assert.Equal(t, testAudio, audioData)

	textData, readErr := os.ReadFile(filepath.Join(store.Root(), testVoiceID, "text.txt"))
	require.NoError(t, readErr)
	assert.Equal(t, testTranscript, string(textData))
}

func TestStore_Save_RejectsDuplicateID(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)

	_, err := store.Save(testVoiceID, testAudio, testTranscript)
	require.NoError(t, err)

	_, err = store.Save(testVoiceID, []byte("other audio"), "other text")
	require.ErrorIs(t, err, references.ErrAlreadyExists)

	// The original voice must be untouched.
	audioData, readErr := os.ReadFile(filepath.Join(store.Root(), testVoiceID, "audio.wav"))
	require.NoError(t, readErr)
	assert.Equal(t, testAudio, audioData)
}

func TestStore_Save_RejectsInvalidIDs(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)

	tests := []struct {
		name    string
		id      string
		wantErr error
	}{
		{name: "empty", id: "", wantErr: references.ErrIDEmpty},
		{name: "dot", id: ".", wantErr: references.ErrIDInvalid},
		{name: "dotdot", id: "..", wantErr: references.ErrIDInvalid},
		{name: "slash traversal", id: "../outside", wantErr: references.ErrIDInvalid},
		{name: "nested path", id: "a/b", wantErr: references.ErrIDInvalid},
		{name: "backslash", id: `a\b`, wantErr: references.ErrIDInvalid},
		{name: "wildcard", id: "voice*", wantErr: references.ErrIDInvalid},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			_, err := store.Save(testCase.id, testAudio, testTranscript)
			require.ErrorIs(t, err, testCase.wantErr)
		})
	}
}

func TestStore_Get_ReturnsAudioAndTranscript(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)

	_, err := store.Save(testVoiceID, testAudio, testTranscript)
	require.NoError(t, err)

	voice, audio, err := store.Get(testVoiceID)
	require.NoError(t, err)

	assert.Equal(t, testVoiceID, voice.ID)
	assert.Equal(t, testTranscript, voice.Text)
	assert.Equal(t, testAudio, audio)
}

func TestStore_Get_NotFound(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)

	_, _, err := store.Get("missing")
	require.ErrorIs(t, err, references.ErrNotFound)
}

func TestStore_Get_MissingAudio(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)

	_, err := store.Save(testVoiceID, testAudio, testTranscript)
	require.NoError(t, err)

	removeErr := os.Remove(filepath.Join(store.Root(), testVoiceID, "audio.wav"))
	require.NoError(t, removeErr)

	_, _, err = store.Get(testVoiceID)
	require.ErrorIs(t, err, references.ErrAudioMissing)
}

func TestStore_List_EmptyStore(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)

	voices, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, voices)
}

func TestStore_List_SortedWithFlags(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)

	_, err := store.Save("zeta", testAudio, "last voice")
	require.NoError(t, err)

	_, err = store.Save("alpha", testAudio, "first voice")
	require.NoError(t, err)

	// A voice with no transcript and no audio, created out-of-band.
	require.NoError(t, os.MkdirAll(filepath.Join(store.Root(), "broken"), 0o750))

	voices, err := store.List()
	require.NoError(t, err)
	require.Len(t, voices, 3)

	assert.Equal(t, "alpha", voices[0].ID)
	assert.Equal(t, "first voice", voices[0].Text)
	assert.True(t, voices[0].HasAudio)

	assert.Equal(t, "broken", voices[1].ID)
	assert.Equal(t, "(no text)", voices[1].Text)
	assert.False(t, voices[1].HasAudio)

	assert.Equal(t, "zeta", voices[2].ID)
}

func TestStore_Delete(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)

	_, err := store.Save(testVoiceID, testAudio, testTranscript)
	require.NoError(t, err)

	require.NoError(t, store.Delete(testVoiceID))

	_, statErr := os.Stat(filepath.Join(store.Root(), testVoiceID))
	assert.True(t, os.IsNotExist(statErr))

	err = store.Delete(testVoiceID)
	require.ErrorIs(t, err, references.ErrNotFound)
}

func TestStore_Inspect(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)

	_, err := store.Save("complete", testAudio, testTranscript)
	require.NoError(t, err)

	// Voice missing its audio sample.
	_, err = store.Save("no_audio", testAudio, testTranscript)
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(store.Root(), "no_audio", "audio.wav")))

	// Voice missing its transcript.
	_, err = store.Save("no_text", testAudio, testTranscript)
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(store.Root(), "no_text", "text.txt")))

	// Stray file at the store root.
	require.NoError(t, os.WriteFile(filepath.Join(store.Root(), "notes.md"), []byte("x"), 0o600))

	report, err := store.Inspect()
	require.NoError(t, err)

	assert.Equal(t, []string{"complete"}, report.Complete)
	assert.Equal(t, []string{"no_audio"}, report.MissingAudio)
	assert.Equal(t, []string{"no_text"}, report.MissingTranscript)
	assert.Equal(t, []string{"notes.md"}, report.StrayEntries)
}

func TestStoreReport_VoicesAndWithAudio(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)

	_, err := store.Save("zeta", testAudio, testTranscript)
	require.NoError(t, err)

	_, err = store.Save("alpha", testAudio, testTranscript)
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(store.Root(), "alpha", "text.txt")))

	// A directory with neither file counts as missing audio, not twice.
	require.NoError(t, os.MkdirAll(filepath.Join(store.Root(), "empty"), 0o750))

	report, err := store.Inspect()
	require.NoError(t, err)

	assert.Equal(t, 3, report.Voices())
	assert.Equal(t, []string{"alpha", "zeta"}, report.WithAudio())
	assert.Equal(t, []string{"empty"}, report.MissingAudio)
}
