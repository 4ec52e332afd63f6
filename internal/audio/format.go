// Package audio provides audio format definitions and payload probing for
// synthesized speech.
//
// The synthesis engine returns raw audio bytes; this package identifies what
// those bytes are (container, sample rate, channel count, duration) so that
// callers can report accurate playback information without shelling out to
// external tooling.
package audio

import (
	"errors"
	"fmt"
	"strings"
)

// Constants for default audio properties, matching the engine's output.
const (
	DEFAULT_SAMPLE_RATE = 44100 // Engine output sample rate.
	DEFAULT_CHANNELS    = 1     // Engine output is mono.
	PCM_BYTES_PER_FRAME = 2     // Signed 16-bit little-endian samples.
)

// Constants for error message formats.
const (
	ERR_FMT_UNSUPPORTED_FORMAT = "%w: %q"
)

// Common errors for the audio package.
var (
	ErrUnsupportedFormat = errors.New("unsupported audio format")
)

// Format represents the audio containers the synthesis engine can emit.
type Format string

const (
	FORMAT_WAV Format = "wav"
	FORMAT_MP3 Format = "mp3"
	FORMAT_PCM Format = "pcm"
)

// ParseFormat validates a client-supplied format string. Matching is
// case-insensitive; anything outside the supported set is rejected.
func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case FORMAT_WAV:
		return FORMAT_WAV, nil
	case FORMAT_MP3:
		return FORMAT_MP3, nil
	case FORMAT_PCM:
		return FORMAT_PCM, nil
	default:
		return "", fmt.Errorf(ERR_FMT_UNSUPPORTED_FORMAT, ErrUnsupportedFormat, raw)
	}
}

// ContentType returns the MIME type the engine uses for this format.
func (f Format) ContentType() string {
	return "audio/" + string(f)
}

// Extension returns the file extension for this format, with the leading dot.
func (f Format) Extension() string {
	return "." + string(f)
}
