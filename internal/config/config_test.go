// Package config_test tests the configuration loading for the voice-mcp-service.
package config_test

import (
	"testing"

	"github.com/book-expert/voice-mcp-service/internal/config"
	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() config.Config {
	return config.Config{
		Service: config.ServiceConfig{
			Name:    "voice-mcp-service",
			Version: "1.0.0",
		},
		TTSEngine: config.TTSEngineConfig{
			Mode:                 config.EngineModeHTTP,
			Host:                 "127.0.0.1",
			Port:                 8080,
			TimeoutSeconds:       300,
			HealthTimeoutSeconds: 10,
			BinaryPath:           "",
			ModelPath:            "",
			SampleRate:           44100,
			InlineReferences:     true,
			ChunkLength:          200,
		},
		Synthesis: config.SynthesisConfig{
			Normalize:     true,
			DefaultFormat: "wav",
		},
		References: config.ReferencesConfig{
			Dir: "/var/lib/voice-mcp/references",
		},
		NATS: config.NATSConfig{
			Enabled:                  true,
			URL:                      "nats://127.0.0.1:4222",
			AudioObjectStoreBucket:   "AUDIO_FILES",
			AudioChunkCreatedSubject: "audio.chunk.created",
		},
		Paths: config.PathsConfig{
			BaseLogsDir: "/var/log/voice-mcp",
		},
	}
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	tomlData := `
[service]
name = "voice-mcp-service"
version = "1.0.0"

[tts_engine]
mode = "http"
host = "127.0.0.1"
port = 8080
timeout_seconds = 300
health_timeout_seconds = 10
sample_rate = 44100
inline_references = true
chunk_length = 200

[synthesis]
normalize = true
default_format = "wav"

[references]
dir = "/var/lib/voice-mcp/references"

[nats]
enabled = true
url = "nats://127.0.0.1:4222"
audio_object_store_bucket = "AUDIO_FILES"
audio_chunk_created_subject = "audio.chunk.created"

[paths]
base_logs_dir = "/var/log/voice-mcp"
`

	var cfg config.Config

	err := toml.Unmarshal([]byte(tomlData), &cfg)
	require.NoError(t, err)

	assert.Equal(t, "voice-mcp-service", cfg.Service.Name)
	assert.Equal(t, "1.0.0", cfg.Service.Version)
	assert.Equal(t, config.EngineModeHTTP, cfg.TTSEngine.Mode)
	assert.Equal(t, "127.0.0.1", cfg.TTSEngine.Host)
	assert.Equal(t, 8080, cfg.TTSEngine.Port)
	assert.Equal(t, 300, cfg.TTSEngine.TimeoutSeconds)
	assert.Equal(t, 10, cfg.TTSEngine.HealthTimeoutSeconds)
	assert.Equal(t, 44100, cfg.TTSEngine.SampleRate)
	assert.True(t, cfg.TTSEngine.InlineReferences)
	assert.Equal(t, 200, cfg.TTSEngine.ChunkLength)
	assert.True(t, cfg.Synthesis.Normalize)
	assert.Equal(t, "wav", cfg.Synthesis.DefaultFormat)
	assert.Equal(t, "/var/lib/voice-mcp/references", cfg.References.Dir)
	assert.True(t, cfg.NATS.Enabled)
	assert.Equal(t, "nats://127.0.0.1:4222", cfg.NATS.URL)
	assert.Equal(t, "AUDIO_FILES", cfg.NATS.AudioObjectStoreBucket)
	assert.Equal(t, "audio.chunk.created", cfg.NATS.AudioChunkCreatedSubject)
	assert.Equal(t, "/var/log/voice-mcp", cfg.Paths.BaseLogsDir)

	require.NoError(t, cfg.Validate())
}

func TestValidate_HTTPEngine(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	require.NoError(t, cfg.Validate())
}

func TestValidate_ExecEngine(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.TTSEngine.Mode = config.EngineModeExec
	cfg.TTSEngine.BinaryPath = "/usr/local/bin/voice-engine"

	require.NoError(t, cfg.Validate())
}

func TestValidate_UnknownMode(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.TTSEngine.Mode = "grpc"

	require.ErrorIs(t, cfg.Validate(), config.ErrInvalidEngineMode)
}

func TestValidate_MissingHost(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.TTSEngine.Host = ""

	require.ErrorIs(t, cfg.Validate(), config.ErrEngineHostEmpty)
}

func TestValidate_InvalidPort(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.TTSEngine.Port = 0
	require.ErrorIs(t, cfg.Validate(), config.ErrInvalidEnginePort)

	cfg.TTSEngine.Port = 70000
	require.ErrorIs(t, cfg.Validate(), config.ErrInvalidEnginePort)
}

func TestValidate_ExecMissingBinary(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.TTSEngine.Mode = config.EngineModeExec
	cfg.TTSEngine.BinaryPath = ""

	require.ErrorIs(t, cfg.Validate(), config.ErrBinaryPathEmpty)
}

func TestValidate_NegativeTimeout(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.TTSEngine.TimeoutSeconds = -1

	require.ErrorIs(t, cfg.Validate(), config.ErrInvalidTimeout)
}

func TestValidate_MissingReferencesDir(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.References.Dir = ""

	require.ErrorIs(t, cfg.Validate(), config.ErrReferencesDirEmpty)
}

func TestValidate_NATSEnabledMissingSettings(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.NATS.URL = ""
	require.ErrorIs(t, cfg.Validate(), config.ErrNATSURLEmpty)

	cfg = validConfig()
	cfg.NATS.AudioObjectStoreBucket = ""
	require.ErrorIs(t, cfg.Validate(), config.ErrNATSBucketEmpty)

	cfg = validConfig()
	cfg.NATS.AudioChunkCreatedSubject = ""
	require.ErrorIs(t, cfg.Validate(), config.ErrNATSSubjectEmpty)
}

func TestValidate_NATSDisabledSkipsChecks(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.NATS.Enabled = false
	cfg.NATS.URL = ""
	cfg.NATS.AudioObjectStoreBucket = ""
	cfg.NATS.AudioChunkCreatedSubject = ""

	require.NoError(t, cfg.Validate())
}

func TestGetEngineURL(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	assert.Equal(t, "http://127.0.0.1:8080", cfg.TTSEngine.GetEngineURL())
}
