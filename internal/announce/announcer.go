// Package announce archives synthesized audio and notifies downstream
// consumers over NATS.
//
// Every successful synthesis can be published as an audio chunk event so
// pipeline stages (assembly, delivery) pick the payload up from the object
// store instead of carrying audio bytes through the message bus.
package announce

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/book-expert/events"
	"github.com/book-expert/logger"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/book-expert/voice-mcp-service/internal/audio"
	"github.com/book-expert/voice-mcp-service/internal/core"
)

// Single-shot synthesis always produces one chunk.
const (
	announcedPageNumber = 1
	announcedTotalPages = 1
)

var (
	// ErrSubjectEmpty indicates that no publish subject was configured.
	ErrSubjectEmpty = errors.New("announce subject cannot be empty")
	// ErrStoreNil indicates that no object store was provided.
	ErrStoreNil = errors.New("object store cannot be nil")
)

// Announcer uploads synthesized audio to the archive and publishes an
// AudioChunkCreatedEvent carrying the storage key.
type Announcer struct {
	natsConnection *nats.Conn
	subject        string
	store          core.ObjectStore
	log            *logger.Logger
}

// NewAnnouncer creates a new announcer publishing on the given subject.
func NewAnnouncer(
	natsConnection *nats.Conn,
	subject string,
	store core.ObjectStore,
	log *logger.Logger,
) (*Announcer, error) {
	if subject == "" {
		return nil, ErrSubjectEmpty
	}

	if store == nil {
		return nil, ErrStoreNil
	}

	return &Announcer{
		natsConnection: natsConnection,
		subject:        subject,
		store:          store,
		log:            log,
	}, nil
}

// Announce archives the audio payload under a fresh key and publishes the
// chunk event. It returns the storage key of the archived payload.
func (a *Announcer) Announce(
	ctx context.Context,
	audioData []byte,
	format audio.Format,
) (string, error) {
	audioKey := uuid.NewString() + format.Extension()

	uploadErr := a.store.Upload(ctx, audioKey, audioData)
	if uploadErr != nil {
		return "", fmt.Errorf(
			"failed to upload audio data for key '%s': %w",
			audioKey,
			uploadErr,
		)
	}

	event := &events.AudioChunkCreatedEvent{
		Header: events.EventHeader{
			Timestamp:  time.Now(),
			WorkflowID: uuid.NewString(),
			EventID:    uuid.NewString(),
			UserID:     "",
			TenantID:   "",
		},
		AudioKey:   audioKey,
		PageNumber: announcedPageNumber,
		TotalPages: announcedTotalPages,
	}

	eventData, marshalErr := json.Marshal(event)
	if marshalErr != nil {
		return "", fmt.Errorf("failed to marshal audio chunk event: %w", marshalErr)
	}

	publishErr := a.natsConnection.Publish(a.subject, eventData)
	if publishErr != nil {
		return "", fmt.Errorf(
			"failed to publish audio chunk event on subject '%s': %w",
			a.subject,
			publishErr,
		)
	}

	a.log.Info("Archived synthesized audio as %s", audioKey)

	return audioKey, nil
}
