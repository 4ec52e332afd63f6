package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"

	"github.com/book-expert/logger"

	"github.com/book-expert/voice-mcp-service/internal/audio"
	"github.com/book-expert/voice-mcp-service/internal/core"
)

// Exec engine errors.
var (
	// ErrReferencesNotSupported is returned when a request carries
	// reference audio; voice cloning needs the HTTP engine.
	ErrReferencesNotSupported = errors.New(
		"reference audio is not supported by the local engine",
	)
	// ErrFormatNotSupported is returned for non-WAV output requests; the
	// local engine writes WAV only.
	ErrFormatNotSupported = errors.New(
		"only wav output is supported by the local engine",
	)
)

// ExecEngine synthesizes speech by invoking a local inference binary.
// It exists for deployments without a running engine server; each request
// spawns one process that writes its output to a temporary WAV file.
type ExecEngine struct {
	binary   string
	modelDir string
	log      *logger.Logger
}

// Interface guard.
var _ core.SpeechSynthesizer = (*ExecEngine)(nil)

// NewExecEngine creates an engine that shells out to the given binary.
// The modelDir is passed through to the binary when non-empty.
func NewExecEngine(binary, modelDir string, log *logger.Logger) (*ExecEngine, error) {
	if binary == "" {
		return nil, errors.New("engine binary cannot be empty")
	}

	return &ExecEngine{
		binary:   binary,
		modelDir: modelDir,
		log:      log,
	}, nil
}

// Synthesize runs the inference binary and returns the generated audio.
func (e *ExecEngine) Synthesize(
	ctx context.Context,
	req core.SynthesisRequest,
) ([]byte, error) {
	if req.Text == "" {
		return nil, errors.New(errTextCannotBeEmpty)
	}

	if req.ReferenceID != "" || len(req.References) > 0 {
		return nil, ErrReferencesNotSupported
	}

	if req.Format != "" && req.Format != string(audio.FORMAT_WAV) {
		return nil, fmt.Errorf("%w: requested %q", ErrFormatNotSupported, req.Format)
	}

	tempFile, tempErr := os.CreateTemp("", "synthesis-output-*.wav")
	if tempErr != nil {
		return nil, fmt.Errorf(
			"failed to create temp file for engine output: %w",
			tempErr,
		)
	}

	defer func() {
		removeErr := os.Remove(tempFile.Name())
		if removeErr != nil {
			e.log.Warn(
				"Failed to remove temp file '%s': %v",
				tempFile.Name(),
				removeErr,
			)
		}
	}()

	args := e.buildArgs(req, tempFile.Name())

	// #nosec G204 -- binary path comes from validated service configuration
	cmd := exec.CommandContext(ctx, e.binary, args...)

	output, runErr := cmd.CombinedOutput()
	if runErr != nil {
		return nil, fmt.Errorf(
			"engine binary execution failed: %w - output: %s",
			runErr,
			string(output),
		)
	}

	audioData, readErr := os.ReadFile(tempFile.Name())
	if readErr != nil {
		return nil, fmt.Errorf(
			"failed to read audio data from temp file: %w",
			readErr,
		)
	}

	if len(audioData) == 0 {
		return nil, errors.New(errReceivedEmptyAudio)
	}

	return audioData, nil
}

// HealthCheck reports whether the inference binary is on PATH.
func (e *ExecEngine) HealthCheck(_ context.Context) error {
	_, lookErr := exec.LookPath(e.binary)
	if lookErr != nil {
		return fmt.Errorf("engine binary not available: %w", lookErr)
	}

	return nil
}

// buildArgs assembles the inference CLI invocation.
func (e *ExecEngine) buildArgs(req core.SynthesisRequest, outputPath string) []string {
	args := []string{
		"--text", req.Text,
		"--output", outputPath,
		"--temperature", fmt.Sprintf("%.2f", req.Params.Temperature),
		"--top-p", fmt.Sprintf("%.2f", req.Params.TopP),
		"--repetition-penalty", fmt.Sprintf("%.2f", req.Params.RepetitionPenalty),
		"--max-new-tokens", strconv.Itoa(req.Params.MaxNewTokens),
	}

	if e.modelDir != "" {
		args = append(args, "--model-dir", e.modelDir)
	}

	if !req.Normalize {
		args = append(args, "--no-normalize")
	}

	return args
}
