package slack

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"github.com/zzstoatzz/slackbot/internal/models"
)

var (
	// ErrMissingConversation means a recognized event had no resolvable
	// thread identifier. Processing must abort; dispatching with an empty
	// conversation id would corrupt history keying.
	ErrMissingConversation = errors.New("event has no resolvable conversation id")

	// ErrMissingChannel means a recognized event had no channel id.
	ErrMissingChannel = errors.New("event has no channel id")
)

// mentionRE matches bot-mention markup at the start of a message, e.g.
// "<@U0123ABCD> what's up". Slack prepends this to every app_mention.
var mentionRE = regexp.MustCompile(`^\s*<@[A-Z0-9]+>\s*`)

// envelope is the outer shape of a Slack Events API payload.
type envelope struct {
	Type      string      `json:"type"`
	Challenge string      `json:"challenge"`
	EventID   string      `json:"event_id"`
	Event     *innerEvent `json:"event"`
}

// innerEvent is the nested event object inside an event_callback.
type innerEvent struct {
	Type     string `json:"type"`
	User     string `json:"user"`
	Text     string `json:"text"`
	Channel  string `json:"channel"`
	TS       string `json:"ts"`
	ThreadTS string `json:"thread_ts"`
	Reaction string `json:"reaction"`
	Item     struct {
		Channel string `json:"channel"`
		TS      string `json:"ts"`
	} `json:"item"`
}

// Classify parses a verified payload into an InboundEvent.
//
// Rules, in order: url_verification -> handshake; event_callback with
// app_mention -> mention; reaction_added -> reaction; anything else ->
// unknown. Unknown covers malformed JSON too: an authenticated but
// unrecognizable payload is ignored, not an error.
//
// A non-nil error is returned only when a recognized kind is missing a
// required field; the caller must abort processing that event.
func Classify(body []byte) (*models.InboundEvent, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return &models.InboundEvent{Kind: models.KindUnknown}, nil
	}

	if env.Type == "url_verification" {
		return &models.InboundEvent{
			Kind:      models.KindHandshake,
			Challenge: env.Challenge,
		}, nil
	}

	if env.Type == "event_callback" && env.Event != nil && env.Event.Type == "app_mention" {
		ev := env.Event

		// A mention that starts a new thread carries no thread_ts; the
		// message's own ts becomes the thread root. This fallback is
		// what keeps follow-up turns in the same conversation.
		conversationID := ev.ThreadTS
		if conversationID == "" {
			conversationID = ev.TS
		}

		out := &models.InboundEvent{
			Kind:           models.KindMention,
			EventID:        env.EventID,
			ConversationID: conversationID,
			ChannelID:      ev.Channel,
			UserID:         ev.User,
			Text:           ScrubMention(ev.Text),
		}
		if out.ConversationID == "" {
			return out, ErrMissingConversation
		}
		if out.ChannelID == "" {
			return out, ErrMissingChannel
		}
		return out, nil
	}

	if env.Event != nil && env.Event.Type == "reaction_added" {
		ev := env.Event
		out := &models.InboundEvent{
			Kind:           models.KindReaction,
			EventID:        env.EventID,
			ConversationID: ev.Item.TS,
			ChannelID:      ev.Item.Channel,
			UserID:         ev.User,
			ReactionName:   ev.Reaction,
		}
		if out.ConversationID == "" {
			return out, ErrMissingConversation
		}
		if out.ChannelID == "" {
			return out, ErrMissingChannel
		}
		return out, nil
	}

	return &models.InboundEvent{Kind: models.KindUnknown, EventID: env.EventID}, nil
}

// ScrubMention removes leading bot-mention markup and surrounding
// whitespace from message text.
func ScrubMention(text string) string {
	return strings.TrimSpace(mentionRE.ReplaceAllString(text, ""))
}

// positiveReactions are the reactions treated as explicit user feedback.
var positiveReactions = map[string]bool{
	"+1":       true,
	"thumbsup": true,
}

// IsPositiveReaction reports whether a reaction name is in the recognized
// positive-feedback set. Anything else produces no downstream side effect.
func IsPositiveReaction(name string) bool {
	return positiveReactions[name]
}
