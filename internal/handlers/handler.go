package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/zzstoatzz/slackbot/internal/models"
	"github.com/zzstoatzz/slackbot/internal/store"
)

// Dispatcher hands recognized events to the background agent pipeline.
// The handoff must return immediately; the work outlives the request.
type Dispatcher interface {
	DispatchMention(ev *models.InboundEvent)
	DispatchReaction(ev *models.InboundEvent)
}

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	conversations store.ConversationStore
	dedup         store.EventDeduper
	dispatcher    Dispatcher
	logger        zerolog.Logger
}

// NewHandler creates a Handler with the given collaborators.
func NewHandler(conversations store.ConversationStore, dedup store.EventDeduper, dispatcher Dispatcher, logger zerolog.Logger) *Handler {
	return &Handler{
		conversations: conversations,
		dedup:         dedup,
		dispatcher:    dispatcher,
		logger:        logger,
	}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// firstDelivery reports whether this event id has not been seen before.
// Dedup failures fail open: dispatching twice is better than never.
func (h *Handler) firstDelivery(ctx context.Context, eventID string) bool {
	first, err := h.dedup.MarkSeen(ctx, eventID)
	if err != nil {
		h.logger.Error().Err(err).Str("event_id", eventID).Msg("event dedup check failed")
		return true
	}
	return first
}
