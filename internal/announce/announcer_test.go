// Package announce_test tests audio archiving and event publication.
package announce_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/book-expert/events"
	"github.com/book-expert/logger"
	"github.com/book-expert/voice-mcp-service/internal/announce"
	"github.com/book-expert/voice-mcp-service/internal/audio"

	"github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSubject = "voice.audio.created"

var errMockUpload = errors.New("mock upload error")

// mockObjectStore is a mock implementation of the ObjectStore interface.
type mockObjectStore struct {
	uploadShouldFail bool
	uploadedKey      string
	uploadedData     []byte
}

func (m *mockObjectStore) Download(_ context.Context, _ string) ([]byte, error) {
	return nil, nats.ErrObjectNotFound
}

func (m *mockObjectStore) Upload(_ context.Context, key string, data []byte) error {
	if m.uploadShouldFail {
		return errMockUpload
	}

	m.uploadedKey = key
	m.uploadedData = data

	return nil
}

func createTestNatsClient(t *testing.T) *nats.Conn {
	t.Helper()

	opts := test.DefaultTestOptions
	opts.Port = -1 // Use a random port
	server := test.RunServer(&opts)

	natsConnection, err := nats.Connect(server.ClientURL())
	if err != nil {
		t.Fatalf("Failed to connect to test NATS server: %v", err)
	}

	t.Cleanup(func() {
		natsConnection.Close()
		server.Shutdown()
	})

	return natsConnection
}

func setupTest(t *testing.T) (*announce.Announcer, *mockObjectStore, *nats.Conn) {
	t.Helper()

	mockStore := &mockObjectStore{
		uploadShouldFail: false,
		uploadedKey:      "",
		uploadedData:     nil,
	}

	natsConnection := createTestNatsClient(t)

	testLogger, err := logger.New(t.TempDir(), "test-log.log")
	require.NoError(t, err)

	announcer, err := announce.NewAnnouncer(
		natsConnection, testSubject, mockStore, testLogger,
	)
	require.NoError(t, err)

	return announcer, mockStore, natsConnection
}

func TestNewAnnouncer_EmptySubject(t *testing.T) {
	t.Parallel()

	natsConnection := createTestNatsClient(t)

	testLogger, err := logger.New(t.TempDir(), "test-log.log")
	require.NoError(t, err)

	_, err = announce.NewAnnouncer(natsConnection, "", &mockObjectStore{
		uploadShouldFail: false,
		uploadedKey:      "",
		uploadedData:     nil,
	}, testLogger)
	require.ErrorIs(t, err, announce.ErrSubjectEmpty)
}

func TestNewAnnouncer_NilStore(t *testing.T) {
	t.Parallel()

	natsConnection := createTestNatsClient(t)

	testLogger, err := logger.New(t.TempDir(), "test-log.log")
	require.NoError(t, err)

	_, err = announce.NewAnnouncer(natsConnection, testSubject, nil, testLogger)
	require.ErrorIs(t, err, announce.ErrStoreNil)
}

func TestAnnounce_Success(t *testing.T) {
	t.Parallel()

	announcer, mockStore, natsConnection := setupTest(t)

	subscription, err := natsConnection.SubscribeSync(testSubject)
	require.NoError(t, err)

	audioData := []byte("sample audio")

	audioKey, err := announcer.Announce(context.Background(), audioData, audio.FORMAT_WAV)
	require.NoError(t, err)

	assert.NotEmpty(t, audioKey, "An audio key should have been generated")
	assert.True(t, strings.HasSuffix(audioKey, ".wav"))
	assert.Equal(t, audioKey, mockStore.uploadedKey)
	assert.Equal(t, audioData, mockStore.uploadedData)

	msg, err := subscription.NextMsg(5 * time.Second)
	require.NoError(t, err, "An audio chunk event should have been published")

	var event events.AudioChunkCreatedEvent

	err = json.Unmarshal(msg.Data, &event)
	require.NoError(t, err)

	assert.Equal(t, audioKey, event.AudioKey)
	assert.Equal(t, 1, event.PageNumber)
	assert.Equal(t, 1, event.TotalPages)
	assert.NotEmpty(t, event.Header.WorkflowID)
	assert.NotEmpty(t, event.Header.EventID)
}

func TestAnnounce_UploadFailure(t *testing.T) {
	t.Parallel()

	announcer, mockStore, natsConnection := setupTest(t)
	mockStore.uploadShouldFail = true

	subscription, err := natsConnection.SubscribeSync(testSubject)
	require.NoError(t, err)

	_, err = announcer.Announce(
		context.Background(), []byte("sample audio"), audio.FORMAT_WAV,
	)
	require.Error(t, err)
	require.ErrorIs(t, err, errMockUpload)

	_, err = subscription.NextMsg(200 * time.Millisecond)
	require.Error(t, err, "No event should be published when the upload fails")
}
