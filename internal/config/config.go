// Package config provides the configuration structure for the voice-mcp-service.
package config

import (
	"errors"
	"fmt"

	"github.com/book-expert/configurator"
	"github.com/book-expert/logger"
)

// Engine modes. HTTP delegates synthesis to a standalone inference server;
// exec runs a local inference binary per request.
const (
	EngineModeHTTP = "http"
	EngineModeExec = "exec"
)

const maxPortNumber = 65535

// Static validation errors.
var (
	ErrInvalidEngineMode  = errors.New("tts_engine.mode must be 'http' or 'exec'")
	ErrEngineHostEmpty    = errors.New("tts_engine.host cannot be empty in http mode")
	ErrInvalidEnginePort  = errors.New("tts_engine.port must be between 1 and 65535")
	ErrBinaryPathEmpty    = errors.New("tts_engine.binary_path cannot be empty in exec mode")
	ErrInvalidTimeout     = errors.New("tts_engine.timeout_seconds cannot be negative")
	ErrReferencesDirEmpty = errors.New("references.dir cannot be empty")
	ErrNATSURLEmpty       = errors.New("nats.url cannot be empty when nats is enabled")
	ErrNATSBucketEmpty    = errors.New("nats.audio_object_store_bucket cannot be empty when nats is enabled")
	ErrNATSSubjectEmpty   = errors.New("nats.audio_chunk_created_subject cannot be empty when nats is enabled")
)

// ServiceConfig names the service towards MCP clients.
type ServiceConfig struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// TTSEngineConfig holds the configuration for the synthesis engine backend.
type TTSEngineConfig struct {
	Mode                 string `toml:"mode"`
	Host                 string `toml:"host"`
	Port                 int    `toml:"port"`
	TimeoutSeconds       int    `toml:"timeout_seconds"`
	HealthTimeoutSeconds int    `toml:"health_timeout_seconds"`
	BinaryPath           string `toml:"binary_path"`
	ModelPath            string `toml:"model_path"`
	SampleRate           int    `toml:"sample_rate"`
	InlineReferences     bool   `toml:"inline_references"`
	ChunkLength          int    `toml:"chunk_length"`
}

// SynthesisConfig holds the synthesis pipeline settings.
type SynthesisConfig struct {
	Normalize     bool   `toml:"normalize"`
	DefaultFormat string `toml:"default_format"`
}

// ReferencesConfig holds the reference voice store settings.
type ReferencesConfig struct {
	Dir string `toml:"dir"`
}

// NATSConfig holds the configuration for the optional audio archive.
type NATSConfig struct {
	Enabled                  bool   `toml:"enabled"`
	URL                      string `toml:"url"`
	AudioObjectStoreBucket   string `toml:"audio_object_store_bucket"`
	AudioChunkCreatedSubject string `toml:"audio_chunk_created_subject"`
}

// PathsConfig holds the configuration for file paths.
type PathsConfig struct {
	BaseLogsDir string `toml:"base_logs_dir"`
}

// Config is the root configuration structure.
type Config struct {
	Service    ServiceConfig    `toml:"service"`
	TTSEngine  TTSEngineConfig  `toml:"tts_engine"`
	Synthesis  SynthesisConfig  `toml:"synthesis"`
	References ReferencesConfig `toml:"references"`
	NATS       NATSConfig       `toml:"nats"`
	Paths      PathsConfig      `toml:"paths"`
}

// Load loads the configuration for the voice-mcp-service.
func Load(log *logger.Logger) (*Config, error) {
	var cfg Config

	err := configurator.Load(&cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from configurator: %w", err)
	}

	return &cfg, nil
}

// GetEngineURL returns the base URL of the HTTP inference engine.
func (c *TTSEngineConfig) GetEngineURL() string {
	return fmt.Sprintf("http://%s:%d", c.Host, c.Port)
}

// Validate checks the configuration for values the service cannot start
// with. It does not apply defaults; zero timeouts select the built-in
// defaults at wiring time.
func (c *Config) Validate() error {
	engineErr := c.validateEngine()
	if engineErr != nil {
		return engineErr
	}

	if c.References.Dir == "" {
		return ErrReferencesDirEmpty
	}

	return c.validateNATS()
}

func (c *Config) validateEngine() error {
	switch c.TTSEngine.Mode {
	case EngineModeHTTP:
		if c.TTSEngine.Host == "" {
			return ErrEngineHostEmpty
		}

		if c.TTSEngine.Port < 1 || c.TTSEngine.Port > maxPortNumber {
			return fmt.Errorf("%w: got %d", ErrInvalidEnginePort, c.TTSEngine.Port)
		}
	case EngineModeExec:
		if c.TTSEngine.BinaryPath == "" {
			return ErrBinaryPathEmpty
		}
	default:
		return fmt.Errorf("%w: got %q", ErrInvalidEngineMode, c.TTSEngine.Mode)
	}

	if c.TTSEngine.TimeoutSeconds < 0 || c.TTSEngine.HealthTimeoutSeconds < 0 {
		return ErrInvalidTimeout
	}

	return nil
}

func (c *Config) validateNATS() error {
	if !c.NATS.Enabled {
		return nil
	}

	if c.NATS.URL == "" {
		return ErrNATSURLEmpty
	}

	if c.NATS.AudioObjectStoreBucket == "" {
		return ErrNATSBucketEmpty
	}

	if c.NATS.AudioChunkCreatedSubject == "" {
		return ErrNATSSubjectEmpty
	}

	return nil
}
