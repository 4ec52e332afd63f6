// Package synth orchestrates speech synthesis by combining text
// normalization, parameter resolution, reference voice handling, and the
// synthesis engine call into a single pipeline. It keeps the protocol layer
// free of synthesis logic.
package synth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/book-expert/logger"

	"github.com/book-expert/voice-mcp-service/internal/audio"
	"github.com/book-expert/voice-mcp-service/internal/core"
	"github.com/book-expert/voice-mcp-service/internal/params"
	"github.com/book-expert/voice-mcp-service/internal/textnorm"
)

const (
	// DefaultHealthCheckTimeout bounds the one-time engine health probe.
	DefaultHealthCheckTimeout = 10 * time.Second

	// DefaultRequestTimeout bounds a single synthesis call.
	DefaultRequestTimeout = 120 * time.Second
)

// Static errors.
var (
	ErrEngineNil = errors.New("synthesis engine cannot be nil")
	ErrTextEmpty = errors.New("text cannot be empty")
	ErrNoStore   = errors.New("no reference store configured")
)

// Log formats and error message templates.
const (
	errFmtHealthCheckFailed = "synthesis engine health check failed: %w"
	errFmtLoadReference     = "failed to load reference voice '%s': %w"
	errFmtSynthesisFailed   = "speech synthesis failed: %w"
	logFmtSynthesized       = "Synthesized %d bytes of %s audio"
	logFmtProbeFallback     = "Audio probe failed, reporting configured sample rate: %v"
	logFmtArchiveFailed     = "Failed to archive synthesized audio: %v"
)

// Archiver publishes synthesized audio to the archive pipeline. A nil
// archiver disables archiving.
type Archiver interface {
	Announce(ctx context.Context, audioData []byte, format audio.Format) (string, error)
}

// Options control the synthesis pipeline.
type Options struct {
	// Normalize runs the local text preprocessor and requests engine-side
	// normalization. When false the text reaches the engine untouched.
	Normalize bool

	// InlineReferences embeds the stored sample audio and transcript in the
	// engine request instead of passing the reference identifier through.
	// Required for engines that do not share the references directory.
	InlineReferences bool

	// DefaultFormat is applied to requests that do not state a format.
	// Zero value selects WAV.
	DefaultFormat audio.Format

	// RequestTimeout bounds a single synthesis call. Zero selects
	// DefaultRequestTimeout.
	RequestTimeout time.Duration

	// HealthCheckTimeout bounds the one-time engine health probe. Zero
	// selects DefaultHealthCheckTimeout.
	HealthCheckTimeout time.Duration

	// FallbackSampleRate is reported when the audio payload cannot be
	// probed. Zero selects audio.DEFAULT_SAMPLE_RATE.
	FallbackSampleRate int
}

// Request describes one synthesis job.
type Request struct {
	// Text is the content to synthesize. Required.
	Text string

	// ReferenceID selects a stored reference voice. Optional.
	ReferenceID string

	// Format is the output audio format. Zero value selects the service's
	// configured default.
	Format audio.Format

	// Optimize selects recommended parameters for the text instead of the
	// fixed defaults.
	Optimize bool
}

// Result carries the synthesized audio and its metadata.
type Result struct {
	Audio      []byte
	Format     audio.Format
	Info       audio.Info
	Params     core.SynthesisParams
	ArchiveKey string
}

// Service implements the synthesis pipeline over a SpeechSynthesizer.
type Service struct {
	engine     core.SpeechSynthesizer
	references core.ReferenceStore
	archiver   Archiver
	normalizer *textnorm.Normalizer
	options    Options
	log        *logger.Logger

	healthMutex   sync.Mutex
	engineHealthy bool
}

// NewService creates a synthesis service. The reference store and archiver
// are optional; passing nil disables reference inlining and archiving
// respectively.
func NewService(
	engine core.SpeechSynthesizer,
	references core.ReferenceStore,
	archiver Archiver,
	options Options,
	log *logger.Logger,
) (*Service, error) {
	if engine == nil {
		return nil, ErrEngineNil
	}

	if options.DefaultFormat == "" {
		options.DefaultFormat = audio.FORMAT_WAV
	}

	if options.RequestTimeout <= 0 {
		options.RequestTimeout = DefaultRequestTimeout
	}

	if options.HealthCheckTimeout <= 0 {
		options.HealthCheckTimeout = DefaultHealthCheckTimeout
	}

	if options.FallbackSampleRate <= 0 {
		options.FallbackSampleRate = audio.DEFAULT_SAMPLE_RATE
	}

	return &Service{
		engine:        engine,
		references:    references,
		archiver:      archiver,
		normalizer:    textnorm.New(),
		options:       options,
		log:           log,
		healthMutex:   sync.Mutex{},
		engineHealthy: false,
	}, nil
}

// Synthesize runs the full pipeline for one request: health check, text
// normalization, parameter resolution, reference handling, the engine call,
// and the audio probe. Archiving failures are logged but never fail the
// synthesis.
func (s *Service) Synthesize(ctx context.Context, request Request) (Result, error) {
	if request.Text == "" {
		return Result{}, ErrTextEmpty
	}

	healthErr := s.checkEngineHealth(ctx)
	if healthErr != nil {
		return Result{}, healthErr
	}

	format := request.Format
	if format == "" {
		format = s.options.DefaultFormat
	}

	resolvedParams, paramsErr := s.resolveParams(request)
	if paramsErr != nil {
		return Result{}, paramsErr
	}

	engineRequest, requestErr := s.buildEngineRequest(request, format, resolvedParams)
	if requestErr != nil {
		return Result{}, requestErr
	}

	audioData, synthesisErr := s.callEngine(ctx, engineRequest)
	if synthesisErr != nil {
		return Result{}, synthesisErr
	}

	s.log.Info(logFmtSynthesized, len(audioData), format)

	return Result{
		Audio:      audioData,
		Format:     format,
		Info:       s.probeAudio(audioData, format),
		Params:     resolvedParams,
		ArchiveKey: s.archiveAudio(ctx, audioData, format),
	}, nil
}

// checkEngineHealth probes the engine before the first synthesis. A passed
// probe is never repeated; a failed probe is retried on the next call so a
// late-starting engine does not wedge the service.
func (s *Service) checkEngineHealth(ctx context.Context) error {
	s.healthMutex.Lock()
	defer s.healthMutex.Unlock()

	if s.engineHealthy {
		return nil
	}

	healthCtx, cancel := context.WithTimeout(ctx, s.options.HealthCheckTimeout)
	defer cancel()

	healthErr := s.engine.HealthCheck(healthCtx)
	if healthErr != nil {
		return fmt.Errorf(errFmtHealthCheckFailed, healthErr)
	}

	s.engineHealthy = true

	return nil
}

func (s *Service) resolveParams(request Request) (core.SynthesisParams, error) {
	var resolved core.SynthesisParams
	if request.Optimize {
		resolved = params.Recommend(request.Text, params.DefaultUseCase)
	} else {
		resolved = params.Defaults()
	}

	validationErr := params.Validate(resolved)
	if validationErr != nil {
		return core.SynthesisParams{}, validationErr
	}

	return resolved, nil
}

func (s *Service) buildEngineRequest(
	request Request,
	format audio.Format,
	resolvedParams core.SynthesisParams,
) (core.SynthesisRequest, error) {
	text := request.Text
	if s.options.Normalize {
		text = s.normalizer.Normalize(text)
	}

	engineRequest := core.SynthesisRequest{
		Text:        text,
		ReferenceID: request.ReferenceID,
		References:  nil,
		Format:      string(format),
		Normalize:   s.options.Normalize,
		Params:      resolvedParams,
	}

	if request.ReferenceID == "" || !s.options.InlineReferences {
		return engineRequest, nil
	}

	reference, inlineErr := s.inlineReference(request.ReferenceID)
	if inlineErr != nil {
		return core.SynthesisRequest{}, inlineErr
	}

	engineRequest.ReferenceID = ""
	engineRequest.References = []core.ReferenceAudio{reference}

	return engineRequest, nil
}

func (s *Service) inlineReference(referenceID string) (core.ReferenceAudio, error) {
	if s.references == nil {
		return core.ReferenceAudio{}, fmt.Errorf(
			errFmtLoadReference, referenceID, ErrNoStore,
		)
	}

	voice, audioData, getErr := s.references.Get(referenceID)
	if getErr != nil {
		return core.ReferenceAudio{}, fmt.Errorf(
			errFmtLoadReference, referenceID, getErr,
		)
	}

	return core.ReferenceAudio{
		Audio: audioData,
		Text:  voice.Text,
	}, nil
}

func (s *Service) callEngine(
	ctx context.Context,
	engineRequest core.SynthesisRequest,
) ([]byte, error) {
	requestCtx, cancel := context.WithTimeout(ctx, s.options.RequestTimeout)
	defer cancel()

	audioData, synthesisErr := s.engine.Synthesize(requestCtx, engineRequest)
	if synthesisErr != nil {
		return nil, fmt.Errorf(errFmtSynthesisFailed, synthesisErr)
	}

	return audioData, nil
}

func (s *Service) probeAudio(audioData []byte, format audio.Format) audio.Info {
	info, probeErr := audio.Probe(audioData, format, s.options.FallbackSampleRate)
	if probeErr != nil {
		s.log.Warn(logFmtProbeFallback, probeErr)
	}

	return info
}

func (s *Service) archiveAudio(
	ctx context.Context,
	audioData []byte,
	format audio.Format,
) string {
	if s.archiver == nil {
		return ""
	}

	archiveKey, archiveErr := s.archiver.Announce(ctx, audioData, format)
	if archiveErr != nil {
		s.log.Warn(logFmtArchiveFailed, archiveErr)

		return ""
	}

	return archiveKey
}
