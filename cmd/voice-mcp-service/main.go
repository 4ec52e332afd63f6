// main package for the voice-mcp-service
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/book-expert/logger"
	"github.com/nats-io/nats.go"

	"github.com/book-expert/voice-mcp-service/internal/announce"
	"github.com/book-expert/voice-mcp-service/internal/audio"
	"github.com/book-expert/voice-mcp-service/internal/config"
	"github.com/book-expert/voice-mcp-service/internal/core"
	"github.com/book-expert/voice-mcp-service/internal/engine"
	"github.com/book-expert/voice-mcp-service/internal/mcpserver"
	"github.com/book-expert/voice-mcp-service/internal/objectstore"
	"github.com/book-expert/voice-mcp-service/internal/references"
	"github.com/book-expert/voice-mcp-service/internal/synth"
)

const (
	bootstrapLogName = "voice-mcp-service-bootstrap.log"
	serviceLogName   = "voice-mcp-service.log"

	defaultServerTitle = "Voice Synthesis"
)

func setupLogger(logPath, fileName string) (*logger.Logger, error) {
	log, err := logger.New(logPath, fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return log, nil
}

func run() error {
	// 1. Create a temporary logger for the bootstrap process. Stdout and
	// stderr belong to the MCP stdio transport, so even bootstrap
	// diagnostics go to files where possible.
	bootstrapLog, err := setupLogger(os.TempDir(), bootstrapLogName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to create bootstrap logger: %v\n", err)

		return err
	}

	bootstrapLog.Info("Bootstrap logger created.")

	// 2. Load configuration using the central configurator
	cfg, err := config.Load(bootstrapLog)
	if err != nil {
		bootstrapLog.Error("Failed to load configuration: %v", err)

		return fmt.Errorf("failed to load configuration: %w", err)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		bootstrapLog.Error("Invalid configuration: %v", validateErr)

		return fmt.Errorf("invalid configuration: %w", validateErr)
	}

	bootstrapLog.Info("Configuration loaded successfully.")

	// 3. Initialize the final logger based on the loaded configuration
	finalLog, err := setupLogger(cfg.Paths.BaseLogsDir, serviceLogName)
	if err != nil {
		bootstrapLog.Error("Failed to create final logger: %v", err)

		return fmt.Errorf("failed to create final logger: %w", err)
	}

	defer func() {
		closeErr := finalLog.Close()
		if closeErr != nil {
			fmt.Fprintf(os.Stderr, "error closing final logger: %v\n", closeErr)
		}
	}()

	// 4. Wire the service and serve MCP on stdio until shutdown
	server, cleanup, buildErr := buildServer(cfg, finalLog)
	if buildErr != nil {
		finalLog.Error("Failed to build service: %v", buildErr)

		return buildErr
	}

	if cleanup != nil {
		defer cleanup()
	}

	ctx, stop := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM,
	)
	defer stop()

	finalLog.System(
		"Voice MCP service %s initialized, engine mode %q, serving on stdio.",
		cfg.Service.Version,
		cfg.TTSEngine.Mode,
	)

	runErr := server.Run(ctx)
	if runErr != nil {
		finalLog.Error("Server stopped with error: %v", runErr)

		return runErr
	}

	finalLog.System("Voice MCP service shut down.")

	return nil
}

// buildServer assembles the full pipeline from configuration: reference
// store, engine backend, optional NATS archive, synthesis service, and the
// MCP server on top. The returned cleanup closes the NATS connection when
// one was opened.
func buildServer(
	cfg *config.Config,
	log *logger.Logger,
) (*mcpserver.Server, func(), error) {
	store, storeErr := references.NewStore(cfg.References.Dir)
	if storeErr != nil {
		return nil, nil, fmt.Errorf("failed to open references store: %w", storeErr)
	}

	engineBackend, engineErr := buildEngine(cfg, log)
	if engineErr != nil {
		return nil, nil, engineErr
	}

	archiver, cleanup, archiveErr := buildArchiver(cfg, log)
	if archiveErr != nil {
		return nil, nil, archiveErr
	}

	options, optionsErr := synthesisOptions(cfg)
	if optionsErr != nil {
		return nil, nil, optionsErr
	}

	service, synthErr := synth.NewService(engineBackend, store, archiver, options, log)
	if synthErr != nil {
		return nil, nil, fmt.Errorf("failed to build synthesis service: %w", synthErr)
	}

	server, serverErr := mcpserver.New(mcpserver.Identity{
		Name:    cfg.Service.Name,
		Title:   defaultServerTitle,
		Version: cfg.Service.Version,
	}, service, store, log)
	if serverErr != nil {
		return nil, nil, fmt.Errorf("failed to build MCP server: %w", serverErr)
	}

	return server, cleanup, nil
}

func buildEngine(
	cfg *config.Config,
	log *logger.Logger,
) (core.SpeechSynthesizer, error) {
	switch cfg.TTSEngine.Mode {
	case config.EngineModeHTTP:
		timeout := time.Duration(cfg.TTSEngine.TimeoutSeconds) * time.Second

		return engine.NewHTTPClient(
			cfg.TTSEngine.GetEngineURL(), timeout, cfg.TTSEngine.ChunkLength,
		), nil
	case config.EngineModeExec:
		execEngine, execErr := engine.NewExecEngine(
			cfg.TTSEngine.BinaryPath, cfg.TTSEngine.ModelPath, log,
		)
		if execErr != nil {
			return nil, fmt.Errorf("failed to build exec engine: %w", execErr)
		}

		return execEngine, nil
	default:
		return nil, fmt.Errorf("%w: got %q", config.ErrInvalidEngineMode, cfg.TTSEngine.Mode)
	}
}

func buildArchiver(
	cfg *config.Config,
	log *logger.Logger,
) (synth.Archiver, func(), error) {
	if !cfg.NATS.Enabled {
		return nil, nil, nil
	}

	natsConnection, connectErr := nats.Connect(cfg.NATS.URL)
	if connectErr != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS: %w", connectErr)
	}

	jetstreamContext, jetstreamErr := natsConnection.JetStream()
	if jetstreamErr != nil {
		natsConnection.Close()

		return nil, nil, fmt.Errorf("failed to get JetStream context: %w", jetstreamErr)
	}

	store, storeErr := objectstore.New(jetstreamContext, cfg.NATS.AudioObjectStoreBucket)
	if storeErr != nil {
		natsConnection.Close()

		return nil, nil, fmt.Errorf("failed to open audio object store: %w", storeErr)
	}

	archiver, announceErr := announce.NewAnnouncer(
		natsConnection, cfg.NATS.AudioChunkCreatedSubject, store, log,
	)
	if announceErr != nil {
		natsConnection.Close()

		return nil, nil, fmt.Errorf("failed to build announcer: %w", announceErr)
	}

	return archiver, natsConnection.Close, nil
}

func synthesisOptions(cfg *config.Config) (synth.Options, error) {
	options := synth.Options{
		Normalize:          cfg.Synthesis.Normalize,
		InlineReferences:   cfg.TTSEngine.InlineReferences,
		DefaultFormat:      "",
		RequestTimeout:     time.Duration(cfg.TTSEngine.TimeoutSeconds) * time.Second,
		HealthCheckTimeout: time.Duration(cfg.TTSEngine.HealthTimeoutSeconds) * time.Second,
		FallbackSampleRate: cfg.TTSEngine.SampleRate,
	}

	if cfg.Synthesis.DefaultFormat != "" {
		format, formatErr := audio.ParseFormat(cfg.Synthesis.DefaultFormat)
		if formatErr != nil {
			return synth.Options{}, fmt.Errorf("invalid default format: %w", formatErr)
		}

		options.DefaultFormat = format
	}

	return options, nil
}

func main() {
	err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Service exited with error: %v\n", err)
		os.Exit(1)
	}
}
