package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/wav"
)

// Constants for probe error formats.
const (
	ERR_FMT_DECODE_FAILED = "%w: %s payload: %w"
)

// Probe errors.
var (
	ErrDecodeFailed = errors.New("decoding audio")
)

// Info describes a synthesized audio payload.
type Info struct {
	Format     Format        `json:"format"`
	SampleRate int           `json:"sampleRate"`
	Channels   int           `json:"channels"`
	Duration   time.Duration `json:"duration"`
	Bytes      int           `json:"bytes"`
}

// Probe inspects an audio payload and reports its properties. WAV and MP3
// payloads are decoded to read the real sample rate and duration. PCM has no
// container, so its properties are computed from fallbackRate and the engine
// frame layout. When decoding fails, Probe returns fallback-based Info
// alongside the error so callers can still report approximate values.
func Probe(data []byte, format Format, fallbackRate int) (Info, error) {
	info := Info{
		Format:     format,
		SampleRate: fallbackRate,
		Channels:   DEFAULT_CHANNELS,
		Duration:   0,
		Bytes:      len(data),
	}
	if info.SampleRate <= 0 {
		info.SampleRate = DEFAULT_SAMPLE_RATE
	}

	switch format {
	case FORMAT_WAV:
		return probeStream(info, data, wav.Decode)
	case FORMAT_MP3:
		return probeStream(info, data, decodeMP3)
	case FORMAT_PCM:
		info.Duration = pcmDuration(len(data), info.SampleRate, info.Channels)

		return info, nil
	default:
		return info, fmt.Errorf(ERR_FMT_UNSUPPORTED_FORMAT, ErrUnsupportedFormat, format)
	}
}

// decodeMP3 adapts mp3.Decode, which takes an io.ReadCloser, to the
// io.Reader-based probeStream signature.
func decodeMP3(r io.Reader) (beep.StreamSeekCloser, beep.Format, error) {
	return mp3.Decode(io.NopCloser(r))
}

// probeStream decodes a container header and fills Info from it.
func probeStream(
	info Info,
	data []byte,
	decode func(io.Reader) (beep.StreamSeekCloser, beep.Format, error),
) (Info, error) {
	streamer, streamFormat, decodeErr := decode(bytes.NewReader(data))
	if decodeErr != nil {
		return info, fmt.Errorf(
			ERR_FMT_DECODE_FAILED,
			ErrDecodeFailed,
			info.Format,
			decodeErr,
		)
	}
	defer func() { _ = streamer.Close() }()

	info.SampleRate = int(streamFormat.SampleRate)
	info.Channels = streamFormat.NumChannels
	info.Duration = streamFormat.SampleRate.D(streamer.Len())

	return info, nil
}

// pcmDuration computes playback time for headerless 16-bit PCM.
func pcmDuration(size, sampleRate, channels int) time.Duration {
	bytesPerSecond := sampleRate * channels * PCM_BYTES_PER_FRAME
	if bytesPerSecond <= 0 {
		return 0
	}

	return time.Duration(float64(size) / float64(bytesPerSecond) * float64(time.Second))
}
