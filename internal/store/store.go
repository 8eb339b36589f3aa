package store

import (
	"context"

	"github.com/zzstoatzz/slackbot/internal/models"
)

// ConversationStore is the durable mapping from conversation id to ordered
// message history. FileStore, SQLiteStore and PostgresStore implement it.
//
// Appends to the same conversation are serialized by the implementation:
// two concurrent appends must both land, in call order, and a crash
// mid-save must not corrupt previously-durable data.
type ConversationStore interface {
	// Load reads persisted state at process start. A missing or empty
	// store yields an empty mapping, not an error.
	Load(ctx context.Context) error

	// Get returns the ordered history for a conversation. Unseen ids
	// yield an empty slice.
	Get(ctx context.Context, conversationID string) ([]models.Message, error)

	// Append extends a conversation in place, preserving prior order,
	// then persists. Appending to an unseen id creates it.
	Append(ctx context.Context, conversationID string, msgs []models.Message) error

	// All returns the full mapping, for diagnostics and tests.
	All(ctx context.Context) (map[string][]models.Message, error)

	Ping(ctx context.Context) error
	Close() error
}

// EventDeduper suppresses retried webhook deliveries. Slack redelivers an
// event with the same event_id when it does not get a timely 200.
type EventDeduper interface {
	// MarkSeen records an event id and reports whether this is the first
	// sighting. A second delivery of the same id returns false.
	MarkSeen(ctx context.Context, eventID string) (bool, error)
}
