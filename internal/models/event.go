package models

// EventKind is the closed set of inbound event classifications.
type EventKind string

const (
	// KindHandshake is Slack's one-time URL verification challenge.
	KindHandshake EventKind = "handshake"

	// KindMention is an app_mention event addressed to the bot.
	KindMention EventKind = "mention"

	// KindReaction is a reaction_added event on a message.
	KindReaction EventKind = "reaction"

	// KindUnknown covers every payload shape we do not recognize.
	// Unknown events are acknowledged and otherwise ignored.
	KindUnknown EventKind = "unknown"
)

// InboundEvent is a verified, classified Slack event with normalized fields.
type InboundEvent struct {
	Kind EventKind

	// EventID is Slack's delivery identifier, used to suppress retried
	// deliveries of the same event.
	EventID string

	// Challenge carries the url_verification token for handshake events.
	// It must be echoed back exactly as received.
	Challenge string

	// ConversationID is the thread root timestamp. For a mention that
	// starts a new thread this is the message's own ts.
	ConversationID string
	ChannelID      string
	UserID         string

	// Text is the user-supplied content with leading mention markup removed.
	Text string

	// ReactionName is set only for reaction events (e.g. "+1").
	ReactionName string
}
