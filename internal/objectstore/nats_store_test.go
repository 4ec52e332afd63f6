// Package objectstore_test tests the NATS audio archive implementation.
package objectstore_test

import (
	"context"
	"testing"

	"github.com/nats-io/nats-server/v2/server"
	natstest "github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/voice-mcp-service/internal/objectstore"
)

// startTestServer starts an in-memory NATS server with JetStream enabled.
func startTestServer(t *testing.T) (*server.Server, *nats.Conn) {
	t.Helper()

	opts := natstest.DefaultTestOptions
	opts.Port = -1 // Use a random port
	opts.JetStream = true
	opts.StoreDir = t.TempDir()
	natsServer := natstest.RunServer(&opts)

	natsConnection, err := nats.Connect(natsServer.ClientURL())
	if err != nil {
		t.Fatalf("Failed to connect to test NATS server: %v", err)
	}

	return natsServer, natsConnection
}

func TestNatsStore_UploadDownload(t *testing.T) {
	t.Parallel()

	natsServer, natsConnection := startTestServer(t)
	defer natsServer.Shutdown()
	defer natsConnection.Close()

	jetstreamContext, err := natsConnection.JetStream()
	require.NoError(t, err)

	store, err := objectstore.New(jetstreamContext, "voice-audio-test")
	require.NoError(t, err)

	ctx := context.Background()
	key := "synthesized/chunk-1.wav"
	uploadData := []byte("RIFF....WAVEfake audio payload")

	err = store.Upload(ctx, key, uploadData)
	require.NoError(t, err)

	downloadData, err := store.Download(ctx, key)
	require.NoError(t, err)

	require.Equal(t, uploadData, downloadData)
}

func TestNatsStore_DownloadMissing(t *testing.T) {
	t.Parallel()

	natsServer, natsConnection := startTestServer(t)
	defer natsServer.Shutdown()
	defer natsConnection.Close()

	jetstreamContext, err := natsConnection.JetStream()
	require.NoError(t, err)

	store, err := objectstore.New(jetstreamContext, "voice-audio-missing")
	require.NoError(t, err)

	_, err = store.Download(context.Background(), "never-uploaded.wav")
	require.Error(t, err)
}

func TestNatsStore_BindExisting(t *testing.T) {
	t.Parallel()

	natsServer, natsConnection := startTestServer(t)
	defer natsServer.Shutdown()
	defer natsConnection.Close()

	jetstreamContext, err := natsConnection.JetStream()
	require.NoError(t, err)

	first, err := objectstore.New(jetstreamContext, "voice-audio-shared")
	require.NoError(t, err)

	// A second New must bind to the existing bucket, not fail.
	second, err := objectstore.New(jetstreamContext, "voice-audio-shared")
	require.NoError(t, err)

	ctx := context.Background()
	payload := []byte("shared payload")

	err = first.Upload(ctx, "shared.wav", payload)
	require.NoError(t, err)

	downloaded, err := second.Download(ctx, "shared.wav")
	require.NoError(t, err)
	require.Equal(t, payload, downloaded)
}
