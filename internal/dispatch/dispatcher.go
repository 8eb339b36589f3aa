// Package dispatch runs verified events through the agent pipeline as
// detached background work. The HTTP response never waits on anything here.
package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/zzstoatzz/slackbot/internal/metrics"
	"github.com/zzstoatzz/slackbot/internal/models"
	"github.com/zzstoatzz/slackbot/internal/slack"
)

// apologyText is posted into the thread when a work item fails.
const apologyText = "Sorry, I encountered an error while processing your message."

// Agent produces a reply for a message in a conversation. Implemented by
// the agent runner; faked in tests.
type Agent interface {
	HandleMessage(ctx context.Context, text, conversationID, channelID string) (string, error)
}

// Notifier posts messages back into Slack threads and resolves channel
// names for log context.
type Notifier interface {
	PostMessage(ctx context.Context, channelID, threadTS, text string) error
	ChannelName(ctx context.Context, channelID string) (string, error)
}

// Dispatcher owns the fire-and-forget handoff: each event becomes a
// tracked goroutine with its own error boundary. Failures are reported
// into the conversation, never to the already-sent HTTP response.
type Dispatcher struct {
	agent    Agent
	notifier Notifier
	logger   zerolog.Logger
	timeout  time.Duration
	wg       sync.WaitGroup
}

// New creates a Dispatcher. timeout bounds a single work item; zero means
// a generous default.
func New(agent Agent, notifier Notifier, logger zerolog.Logger, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Dispatcher{
		agent:    agent,
		notifier: notifier,
		logger:   logger,
		timeout:  timeout,
	}
}

// DispatchMention hands a mention to the agent pipeline and returns
// immediately.
func (d *Dispatcher) DispatchMention(ev *models.InboundEvent) {
	d.spawn("mention", func(ctx context.Context, logger zerolog.Logger) error {
		if name, err := d.notifier.ChannelName(ctx, ev.ChannelID); err == nil {
			logger = logger.With().Str("channel", name).Logger()
		}

		reply, err := d.agent.HandleMessage(ctx, ev.Text, ev.ConversationID, ev.ChannelID)
		if err != nil {
			// Best-effort apology on a fresh context: when the failure is
			// the work item's own timeout, ctx is already dead and the
			// apology would die with it.
			apologyCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if postErr := d.notifier.PostMessage(apologyCtx, ev.ChannelID, ev.ConversationID, apologyText); postErr != nil {
				logger.Error().Err(postErr).Msg("failed to post apology")
			}
			return fmt.Errorf("agent turn: %w", err)
		}

		logger.Info().Str("conversation_id", ev.ConversationID).Msg("posting agent reply")
		if err := d.notifier.PostMessage(ctx, ev.ChannelID, ev.ConversationID, reply); err != nil {
			return fmt.Errorf("post reply: %w", err)
		}
		return nil
	})
}

// DispatchReaction handles a reaction event. Only the recognized positive
// set produces a feedback acknowledgment; everything else is a no-op.
func (d *Dispatcher) DispatchReaction(ev *models.InboundEvent) {
	if !slack.IsPositiveReaction(ev.ReactionName) {
		d.logger.Debug().Str("reaction", ev.ReactionName).Msg("ignoring unrecognized reaction")
		return
	}

	d.spawn("reaction", func(ctx context.Context, logger zerolog.Logger) error {
		logger.Info().
			Str("reaction", ev.ReactionName).
			Str("user", ev.UserID).
			Str("conversation_id", ev.ConversationID).
			Msg("received feedback reaction")

		text := fmt.Sprintf("Feedback received: %s", ev.ReactionName)
		if err := d.notifier.PostMessage(ctx, ev.ChannelID, ev.ConversationID, text); err != nil {
			return fmt.Errorf("post feedback ack: %w", err)
		}
		return nil
	})
}

// spawn runs fn as a detached work item. The context is independent of any
// HTTP request: the work outlives the response. Panics and errors stop at
// this boundary.
func (d *Dispatcher) spawn(kind string, fn func(ctx context.Context, logger zerolog.Logger) error) {
	id := ulid.Make().String()
	logger := d.logger.With().Str("work_item", id).Str("kind", kind).Logger()

	metrics.DispatchesStarted.WithLabelValues(kind).Inc()
	d.wg.Add(1)

	go func() {
		defer d.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				metrics.DispatchFailures.WithLabelValues(kind).Inc()
				logger.Error().Interface("panic", rec).Msg("work item panicked")
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		if err := fn(ctx, logger); err != nil {
			metrics.DispatchFailures.WithLabelValues(kind).Inc()
			logger.Error().Err(err).Msg("work item failed")
		}
	}()
}

// Wait blocks until all in-flight work items finish. Used at shutdown to
// drain before the process exits.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
