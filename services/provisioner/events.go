package provisioner

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Publisher delivers domain events. *bus.Bus satisfies it.
type Publisher interface {
	Publish(ctx context.Context, subject string, v any) error
}

// Event is the envelope published for every domain event.
type Event struct {
	ID   string         `json:"id"`
	Type string         `json:"type"`
	At   time.Time      `json:"at"`
	Data map[string]any `json:"data"`
}

func newEvent(subject string, data map[string]any) Event {
	return Event{
		ID:   uuid.NewString(),
		Type: subject,
		At:   time.Now().UTC(),
		Data: data,
	}
}

// publish never fails the caller; delivery problems are only logged.
func publish(ctx context.Context, pub Publisher, log zerolog.Logger, subject string, data map[string]any) {
	if pub == nil || subject == "" {
		return
	}
	if err := pub.Publish(ctx, subject, newEvent(subject, data)); err != nil {
		log.Warn().Err(err).Str("subject", subject).Msg("publish event")
	}
}
