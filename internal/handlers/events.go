package handlers

import (
	"net/http"

	"github.com/zzstoatzz/slackbot/internal/api/middleware"
	"github.com/zzstoatzz/slackbot/internal/metrics"
	"github.com/zzstoatzz/slackbot/internal/models"
	"github.com/zzstoatzz/slackbot/internal/slack"
)

// ackResponse is the unconditional acknowledgment for every verified,
// non-handshake event. Slack retries deliveries that don't get a timely
// 200, so the gate never blocks this response on the agent.
var ackResponse = map[string]bool{"ok": true}

// HandleEvent is the dispatch gate for POST /chat. The signature middleware
// has already verified the request and stashed the verbatim body.
func (h *Handler) HandleEvent(w http.ResponseWriter, r *http.Request) {
	body := middleware.RawBody(r.Context())

	ev, err := slack.Classify(body)
	metrics.EventsReceived.WithLabelValues(string(ev.Kind)).Inc()

	if err != nil {
		// Recognized kind missing a required field. The platform must
		// never see a 5xx for an authenticated event: log, ack, drop.
		h.logger.Error().Err(err).
			Str("kind", string(ev.Kind)).
			Str("event_id", ev.EventID).
			Msg("dropping event with missing required fields")
		h.JSON(w, http.StatusOK, ackResponse)
		return
	}

	switch ev.Kind {
	case models.KindHandshake:
		// Echo the challenge token back exactly as received.
		h.JSON(w, http.StatusOK, map[string]string{"challenge": ev.Challenge})
		return

	case models.KindMention:
		if !h.firstDelivery(r.Context(), ev.EventID) {
			metrics.DuplicateDeliveries.Inc()
			h.logger.Debug().Str("event_id", ev.EventID).Msg("suppressed retried delivery")
			break
		}
		h.logger.Info().
			Str("conversation_id", ev.ConversationID).
			Str("channel_id", ev.ChannelID).
			Msg("backgrounding message processing")
		h.dispatcher.DispatchMention(ev)

	case models.KindReaction:
		if !h.firstDelivery(r.Context(), ev.EventID) {
			metrics.DuplicateDeliveries.Inc()
			break
		}
		h.dispatcher.DispatchReaction(ev)

	case models.KindUnknown:
		h.logger.Debug().Msg("ignoring unrecognized event payload")
	}

	h.JSON(w, http.StatusOK, ackResponse)
}
