// Command voice-client is the operator CLI for the voice MCP service. It
// talks to the synthesis engine directly and to the reference store on
// disk, for smoke tests and reference voice management without an MCP
// client in the loop.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/book-expert/logger"

	"github.com/book-expert/voice-mcp-service/internal/audio"
	"github.com/book-expert/voice-mcp-service/internal/cliutil"
	"github.com/book-expert/voice-mcp-service/internal/config"
	"github.com/book-expert/voice-mcp-service/internal/core"
	"github.com/book-expert/voice-mcp-service/internal/engine"
	"github.com/book-expert/voice-mcp-service/internal/params"
	"github.com/book-expert/voice-mcp-service/internal/references"
	"github.com/book-expert/voice-mcp-service/internal/transcribe"
)

// Flag descriptions.
const (
	flagHealthDesc     = "Check synthesis engine health and exit"
	flagTextDesc       = "Text to convert to speech"
	flagOutputDesc     = "Output file path for synthesized audio"
	flagFormatDesc     = "Audio output format (wav, mp3, pcm)"
	flagReferenceDesc  = "Reference voice ID to clone during synthesis"
	flagUploadDesc     = "Audio file to store as a reference voice sample"
	flagIDDesc         = "Reference voice ID for -upload"
	flagTextFileDesc   = "Transcript file for -upload"
	flagTranscribeDesc = "Transcribe the uploaded sample via the Whisper API when no transcript file is given"
	flagListDesc       = "List stored reference voices and exit"
	flagDeleteDesc     = "Delete the reference voice with this ID"
	flagVerifyDesc     = "Decode every stored reference sample and report its condition"
	flagConfigDesc     = "Path to the project TOML (exported to the configurator)"
	flagVerboseDesc    = "Enable verbose logging"
)

// Flag names.
const (
	flagHealth     = "health"
	flagText       = "text"
	flagOutput     = "output"
	flagFormat     = "format"
	flagReference  = "reference"
	flagUpload     = "upload"
	flagID         = "id"
	flagTextFile   = "text-file"
	flagTranscribe = "transcribe"
	flagList       = "list"
	flagDelete     = "delete"
	flagVerify     = "verify"
	flagConfig     = "config"
	flagVerbose    = "verbose"
)

// Validation messages.
const (
	errNoActionSelected = "One of -health, -text, -upload, -list, -delete, or -verify must be provided"
	errMultipleActions  = "Only one of -health, -text, -upload, -list, -delete, and -verify may be used at a time"
	errUploadNeedsID    = "The -id flag is required with -upload"
	errVerifyFailed     = "reference store verification found problems"
)

// Error format strings.
const (
	errFmtSetConfigPath      = "failed to export config path: %w"
	errFmtFailedToInitLogger = "failed to initialize logger: %w"
	errFmtFailedToLoadConfig = "failed to load configuration: %w"
	errFmtInvalidConfig      = "invalid configuration: %w"
	errFmtOpenStore          = "failed to open references store: %w"
	errFmtNotAnAudioFile     = "%q does not look like an audio file"
	errFmtReadAudioFile      = "failed to read audio file: %w"
	errFmtReadTextFile       = "failed to read transcript file: %w"
	errFmtTranscribeFailed   = "failed to transcribe sample: %w"
	errFmtSaveFailed         = "failed to save reference: %w"
	errFmtListFailed         = "failed to list references: %w"
	errFmtInspectFailed      = "failed to inspect references store: %w"
	errFmtDeleteFailed       = "failed to delete reference: %w"
	errFmtSynthesisFailed    = "synthesis failed: %w"
	errFmtWriteOutput        = "failed to write output file: %w"
	errFmtHealthCheckFailed  = "Health check failed: %v"
)

// Log and output messages.
const (
	logClientInitialized  = "Voice client initialized (engine mode %q)"
	logSynthesizing       = "Synthesizing %d characters to %s"
	logUploading          = "Uploading reference %q from %s"
	logDeleting           = "Deleting reference %q"
	msgEngineHealthy      = "Synthesis engine is healthy"
	msgFmtEngineUnhealthy = "Synthesis engine is not healthy: %v\n"
	msgFmtGenerated       = "Generated: %s (%s, %s)\n"
	msgFmtUploaded        = "Uploaded reference %q (%s audio, %d transcript characters)\n"
	msgFmtDeleted         = "Deleted reference %q\n"
	msgNoVoices           = "No reference voices stored."
	msgFmtListHeader      = "Reference voices (%d):\n"
	msgFmtListEntry       = "- %s (%s): %s\n"
	msgAudioMissing       = "missing audio"
	msgFmtVerifyOK        = "OK   %s: %s, %s, %d Hz\n"
	msgFmtVerifyFail      = "FAIL %s: %v\n"
	msgFmtVerifySummary   = "Verified %d reference voices: %d ok, %d failed\n"
)

// File names and defaults.
const (
	logFileNameBootstrap = "voice-client-bootstrap.log"
	logFileNameDefault   = "voice-client.log"
	logFileNameVerbose   = "voice-client-verbose.log"
	defaultOutputBase    = "output"
	outputPermissions    = 0o600

	// The configurator resolves the TOML location from this variable.
	envProjectTOML = "PROJECT_TOML"

	defaultHealthTimeout = 10 * time.Second
	defaultEngineTimeout = 120 * time.Second

	previewRuneLimit = 60
	previewSuffix    = "..."
)

// appFlags holds the parsed command-line flag values.
type appFlags struct {
	text       string
	output     string
	format     string
	reference  string
	upload     string
	id         string
	textFile   string
	deleteID   string
	configPath string
	transcribe bool
	list       bool
	verify     bool
	health     bool
	verbose    bool
}

func main() {
	err := run()
	if err != nil {
		// A logger might not be initialized yet, so use the standard log package.
		log.Fatalf("Error: %v", err)
	}
}

// run is the main application entry point, returning an error on failure.
func run() error {
	flags := parseFlags()

	validateErr := validateFlags(flags)
	if validateErr != nil {
		flag.Usage()

		return validateErr
	}

	cfg, clientLog, setupErr := setup(flags.configPath, flags.verbose)
	if setupErr != nil {
		return setupErr
	}

	defer func() {
		closeErr := clientLog.Close()
		if closeErr != nil {
			fmt.Fprintf(os.Stderr, "error closing logger: %v\n", closeErr)
		}
	}()

	clientLog.Info(logClientInitialized, cfg.TTSEngine.Mode)

	return dispatch(cfg, clientLog, flags)
}

// bindFlags registers every flag on the given set, returning the struct the
// parsed values land in.
func bindFlags(flagSet *flag.FlagSet) *appFlags {
	var flags appFlags

	flagSet.BoolVar(&flags.health, flagHealth, false, flagHealthDesc)
	flagSet.StringVar(&flags.text, flagText, "", flagTextDesc)
	flagSet.StringVar(&flags.output, flagOutput, "", flagOutputDesc)
	flagSet.StringVar(&flags.format, flagFormat, string(audio.FORMAT_WAV), flagFormatDesc)
	flagSet.StringVar(&flags.reference, flagReference, "", flagReferenceDesc)
	flagSet.StringVar(&flags.upload, flagUpload, "", flagUploadDesc)
	flagSet.StringVar(&flags.id, flagID, "", flagIDDesc)
	flagSet.StringVar(&flags.textFile, flagTextFile, "", flagTextFileDesc)
	flagSet.BoolVar(&flags.transcribe, flagTranscribe, false, flagTranscribeDesc)
	flagSet.BoolVar(&flags.list, flagList, false, flagListDesc)
	flagSet.StringVar(&flags.deleteID, flagDelete, "", flagDeleteDesc)
	flagSet.BoolVar(&flags.verify, flagVerify, false, flagVerifyDesc)
	flagSet.StringVar(&flags.configPath, flagConfig, "", flagConfigDesc)
	flagSet.BoolVar(&flags.verbose, flagVerbose, false, flagVerboseDesc)

	return &flags
}

// parseFlags defines and parses command-line flags, returning them in a struct.
func parseFlags() appFlags {
	flags := bindFlags(flag.CommandLine)
	flag.Parse()

	return *flags
}

// validateFlags enforces that exactly one action was selected and that the
// selected action has the flags it depends on.
func validateFlags(flags appFlags) error {
	actions := 0
	for _, selected := range []bool{
		flags.health,
		flags.text != "",
		flags.upload != "",
		flags.list,
		flags.deleteID != "",
		flags.verify,
	} {
		if selected {
			actions++
		}
	}

	if actions == 0 {
		return errors.New(errNoActionSelected)
	}

	if actions > 1 {
		return errors.New(errMultipleActions)
	}

	if flags.upload != "" && flags.id == "" {
		return errors.New(errUploadNeedsID)
	}

	return nil
}

// setup loads the configuration and initializes the client logger.
func setup(configPath string, verbose bool) (*config.Config, *logger.Logger, error) {
	if configPath != "" {
		setErr := os.Setenv(envProjectTOML, configPath)
		if setErr != nil {
			return nil, nil, fmt.Errorf(errFmtSetConfigPath, setErr)
		}
	}

	bootstrapLog, bootstrapErr := logger.New(os.TempDir(), logFileNameBootstrap)
	if bootstrapErr != nil {
		return nil, nil, fmt.Errorf(errFmtFailedToInitLogger, bootstrapErr)
	}

	cfg, loadErr := config.Load(bootstrapLog)
	if loadErr != nil {
		return nil, nil, fmt.Errorf(errFmtFailedToLoadConfig, loadErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, nil, fmt.Errorf(errFmtInvalidConfig, validateErr)
	}

	logFileName := logFileNameDefault
	if verbose {
		logFileName = logFileNameVerbose
	}

	clientLog, logErr := logger.New(cfg.Paths.BaseLogsDir, logFileName)
	if logErr != nil {
		return nil, nil, fmt.Errorf(errFmtFailedToInitLogger, logErr)
	}

	return cfg, clientLog, nil
}

// dispatch routes the selected action to its handler.
func dispatch(cfg *config.Config, clientLog *logger.Logger, flags appFlags) error {
	store, storeErr := references.NewStore(cfg.References.Dir)
	if storeErr != nil {
		return fmt.Errorf(errFmtOpenStore, storeErr)
	}

	switch {
	case flags.health:
		return handleHealthCheck(cfg, clientLog)
	case flags.upload != "":
		return handleUpload(store, clientLog, flags)
	case flags.list:
		return handleList(store)
	case flags.deleteID != "":
		return handleDelete(store, clientLog, flags.deleteID)
	case flags.verify:
		return handleVerify(store, cfg.TTSEngine.SampleRate)
	default:
		return handleSynthesize(cfg, store, clientLog, flags)
	}
}

// buildEngineClient constructs the engine backend the configuration selects.
func buildEngineClient(
	cfg *config.Config,
	clientLog *logger.Logger,
) (core.SpeechSynthesizer, error) {
	switch cfg.TTSEngine.Mode {
	case config.EngineModeHTTP:
		timeout := time.Duration(cfg.TTSEngine.TimeoutSeconds) * time.Second
		if timeout <= 0 {
			timeout = defaultEngineTimeout
		}

		return engine.NewHTTPClient(
			cfg.TTSEngine.GetEngineURL(), timeout, cfg.TTSEngine.ChunkLength,
		), nil
	case config.EngineModeExec:
		execEngine, execErr := engine.NewExecEngine(
			cfg.TTSEngine.BinaryPath, cfg.TTSEngine.ModelPath, clientLog,
		)
		if execErr != nil {
			return nil, fmt.Errorf("failed to build exec engine: %w", execErr)
		}

		return execEngine, nil
	default:
		return nil, fmt.Errorf(
			"%w: got %q", config.ErrInvalidEngineMode, cfg.TTSEngine.Mode,
		)
	}
}

// handleHealthCheck probes the engine and prints the result.
func handleHealthCheck(cfg *config.Config, clientLog *logger.Logger) error {
	engineClient, engineErr := buildEngineClient(cfg, clientLog)
	if engineErr != nil {
		return engineErr
	}

	timeout := time.Duration(cfg.TTSEngine.HealthTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = defaultHealthTimeout
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	healthErr := engineClient.HealthCheck(ctx)
	if healthErr != nil {
		clientLog.Error(errFmtHealthCheckFailed, healthErr)
		fmt.Printf(msgFmtEngineUnhealthy, healthErr)

		return healthErr
	}

	fmt.Println(msgEngineHealthy)

	return nil
}

// handleSynthesize sends one synthesis request and writes the audio to disk.
func handleSynthesize(
	cfg *config.Config,
	store *references.Store,
	clientLog *logger.Logger,
	flags appFlags,
) error {
	format, formatErr := audio.ParseFormat(flags.format)
	if formatErr != nil {
		return formatErr
	}

	engineClient, engineErr := buildEngineClient(cfg, clientLog)
	if engineErr != nil {
		return engineErr
	}

	request := core.SynthesisRequest{
		Text:        flags.text,
		ReferenceID: flags.reference,
		References:  nil,
		Format:      string(format),
		Normalize:   cfg.Synthesis.Normalize,
		Params:      params.Defaults(),
	}

	if cfg.TTSEngine.InlineReferences && flags.reference != "" {
		voice, referenceAudio, getErr := store.Get(flags.reference)
		if getErr != nil {
			return fmt.Errorf(errFmtSynthesisFailed, getErr)
		}

		request.References = []core.ReferenceAudio{
			{Audio: referenceAudio, Text: voice.Text},
		}
		request.ReferenceID = ""
	}

	outputPath := flags.output
	if outputPath == "" {
		outputPath = defaultOutputBase + format.Extension()
	}

	clientLog.Info(logSynthesizing, len(flags.text), outputPath)

	timeout := time.Duration(cfg.TTSEngine.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = defaultEngineTimeout
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	audioData, synthErr := engineClient.Synthesize(ctx, request)
	if synthErr != nil {
		clientLog.Error("Synthesis failed: %v", synthErr)

		return fmt.Errorf(errFmtSynthesisFailed, synthErr)
	}

	writeErr := os.WriteFile(outputPath, audioData, outputPermissions)
	if writeErr != nil {
		return fmt.Errorf(errFmtWriteOutput, writeErr)
	}

	info, probeErr := audio.Probe(audioData, format, cfg.TTSEngine.SampleRate)
	if probeErr != nil {
		clientLog.Warn("Probing synthesized audio failed: %v", probeErr)
	}

	fmt.Printf(
		msgFmtGenerated,
		outputPath,
		cliutil.FormatFileSize(int64(len(audioData))),
		cliutil.FormatDuration(info.Duration),
	)

	return nil
}

// handleUpload stores a new reference voice sample, transcribing it on
// request when no transcript file is supplied.
func handleUpload(
	store *references.Store,
	clientLog *logger.Logger,
	flags appFlags,
) error {
	if !cliutil.IsValidAudioFile(flags.upload) {
		return fmt.Errorf(errFmtNotAnAudioFile, flags.upload)
	}

	audioData, readErr := os.ReadFile(flags.upload)
	if readErr != nil {
		return fmt.Errorf(errFmtReadAudioFile, readErr)
	}

	text, textErr := resolveTranscript(flags)
	if textErr != nil {
		return textErr
	}

	clientLog.Info(logUploading, flags.id, flags.upload)

	voice, saveErr := store.Save(flags.id, audioData, text)
	if saveErr != nil {
		return fmt.Errorf(errFmtSaveFailed, saveErr)
	}

	fmt.Printf(
		msgFmtUploaded,
		voice.ID,
		cliutil.FormatFileSize(int64(len(audioData))),
		len(voice.Text),
	)

	return nil
}

// resolveTranscript picks the transcript source for an upload: an explicit
// file, the Whisper API, or empty.
func resolveTranscript(flags appFlags) (string, error) {
	if flags.textFile != "" {
		textData, readErr := os.ReadFile(flags.textFile)
		if readErr != nil {
			return "", fmt.Errorf(errFmtReadTextFile, readErr)
		}

		return string(textData), nil
	}

	if !flags.transcribe {
		return "", nil
	}

	transcriber, clientErr := transcribe.NewClientFromEnv()
	if clientErr != nil {
		return "", fmt.Errorf(errFmtTranscribeFailed, clientErr)
	}

	text, transcribeErr := transcriber.TranscribeFile(
		flags.upload, transcribe.DefaultModel, "",
	)
	if transcribeErr != nil {
		return "", fmt.Errorf(errFmtTranscribeFailed, transcribeErr)
	}

	return text, nil
}

// handleList prints every stored reference voice with its audio size.
func handleList(store *references.Store) error {
	voices, listErr := store.List()
	if listErr != nil {
		return fmt.Errorf(errFmtListFailed, listErr)
	}

	if len(voices) == 0 {
		fmt.Println(msgNoVoices)

		return nil
	}

	fmt.Printf(msgFmtListHeader, len(voices))

	for _, voice := range voices {
		sizeLabel := msgAudioMissing

		if voice.HasAudio {
			fileInfo, statErr := os.Stat(voice.AudioPath)
			if statErr == nil {
				sizeLabel = cliutil.FormatFileSize(fileInfo.Size())
			}
		}

		fmt.Printf(msgFmtListEntry, voice.ID, sizeLabel, previewText(voice.Text))
	}

	return nil
}

// handleDelete removes one stored reference voice.
func handleDelete(
	store *references.Store,
	clientLog *logger.Logger,
	id string,
) error {
	clientLog.Info(logDeleting, id)

	deleteErr := store.Delete(id)
	if deleteErr != nil {
		return fmt.Errorf(errFmtDeleteFailed, deleteErr)
	}

	fmt.Printf(msgFmtDeleted, id)

	return nil
}

// handleVerify reports the store layout, then decodes every stored sample
// that has audio. The store layout fixes samples to WAV, so each one is
// probed as WAV.
func handleVerify(store *references.Store, fallbackSampleRate int) error {
	report, inspectErr := store.Inspect()
	if inspectErr != nil {
		return fmt.Errorf(errFmtInspectFailed, inspectErr)
	}

	if report.Voices() == 0 {
		fmt.Println(msgNoVoices)

		return nil
	}

	references.PrintStoreReport(report)
	fmt.Println()

	decodeFailed := 0

	for _, id := range report.WithAudio() {
		_, audioData, getErr := store.Get(id)
		if getErr != nil {
			decodeFailed++

			fmt.Printf(msgFmtVerifyFail, id, getErr)

			continue
		}

		info, probeErr := audio.Probe(audioData, audio.FORMAT_WAV, fallbackSampleRate)
		if probeErr != nil {
			decodeFailed++

			fmt.Printf(msgFmtVerifyFail, id, probeErr)

			continue
		}

		fmt.Printf(
			msgFmtVerifyOK,
			id,
			cliutil.FormatFileSize(int64(info.Bytes)),
			cliutil.FormatDuration(info.Duration),
			info.SampleRate,
		)
	}

	failed := len(report.MissingAudio) + decodeFailed

	fmt.Printf(msgFmtVerifySummary, report.Voices(), report.Voices()-failed, failed)

	if failed > 0 {
		return errors.New(errVerifyFailed)
	}

	return nil
}

// previewText flattens a transcript to one line and truncates it for list
// output. Truncation counts runes so multibyte transcripts are not split.
func previewText(text string) string {
	flattened := strings.Join(strings.Fields(text), " ")

	runes := []rune(flattened)
	if len(runes) <= previewRuneLimit {
		return flattened
	}

	return string(runes[:previewRuneLimit]) + previewSuffix
}
