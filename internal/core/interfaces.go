// Package core defines the core business logic and interfaces for the voice MCP service.
package core

import "context"

// ObjectStore defines the interface for interacting with a key-value blob store.
type ObjectStore interface {
	Download(ctx context.Context, key string) ([]byte, error)
	Upload(ctx context.Context, key string, data []byte) error
}

// SynthesisParams holds the sampling parameters for a single synthesis request.
// This allows for per-request customization of the generated speech.
type SynthesisParams struct {
	Temperature       float64
	TopP              float64
	RepetitionPenalty float64
	MaxNewTokens      int
}

// ReferenceAudio carries an inline voice sample for engines that do not share
// the references directory with this service.
type ReferenceAudio struct {
	Audio []byte
	Text  string
}

// SynthesisRequest describes one synthesis job handed to a speech engine.
type SynthesisRequest struct {
	Text        string
	ReferenceID string
	References  []ReferenceAudio
	Format      string
	Normalize   bool
	Params      SynthesisParams
}

// SpeechSynthesizer defines the interface for a text-to-speech engine backend.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, req SynthesisRequest) ([]byte, error)
	HealthCheck(ctx context.Context) error
}

// ReferenceVoice describes one stored reference voice sample.
type ReferenceVoice struct {
	ID        string
	Text      string
	HasAudio  bool
	AudioPath string
}

// ReferenceStore defines the interface for persisting reference voices.
type ReferenceStore interface {
	Save(id string, audio []byte, text string) (ReferenceVoice, error)
	Get(id string) (ReferenceVoice, []byte, error)
	List() ([]ReferenceVoice, error)
	Delete(id string) error
}

// Transcriber produces a transcript for a stored audio file.
type Transcriber interface {
	TranscribeFile(audioPath, model, language string) (string, error)
}
