// Package agent runs conversation turns against an LLM with tool calling.
package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/rs/zerolog"

	"github.com/zzstoatzz/slackbot/internal/metrics"
	"github.com/zzstoatzz/slackbot/internal/models"
	"github.com/zzstoatzz/slackbot/internal/store"
)

// maxToolRounds bounds the model's tool-calling loop for a single turn.
const maxToolRounds = 8

// ErrNoCompletion is returned when the model yields no choices.
var ErrNoCompletion = errors.New("model returned no completion")

// ToolObserver wraps every tool invocation. Injected at construction so
// instrumentation is explicit; invoke runs the tool itself.
type ToolObserver func(ctx context.Context, tool, args string, invoke func(context.Context) (string, error)) (string, error)

// Runner drives agent turns: history in, completion loop with tools,
// reply out, history appended write-through.
type Runner struct {
	client        openai.Client
	conversations store.ConversationStore
	tools         []Tool
	observer      ToolObserver
	logger        zerolog.Logger

	model        string
	temperature  float64
	systemPrompt string
}

// Option configures a Runner.
type Option func(*Runner)

// WithToolObserver replaces the default logging observer.
func WithToolObserver(obs ToolObserver) Option {
	return func(r *Runner) { r.observer = obs }
}

// WithTools sets the tool set available to the model.
func WithTools(tools ...Tool) Option {
	return func(r *Runner) { r.tools = tools }
}

// New creates a Runner.
func New(client openai.Client, conversations store.ConversationStore, model, systemPrompt string, temperature float64, logger zerolog.Logger, opts ...Option) *Runner {
	r := &Runner{
		client:        client,
		conversations: conversations,
		logger:        logger,
		model:         model,
		temperature:   temperature,
		systemPrompt:  systemPrompt,
	}
	r.observer = r.defaultObserver
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// HandleMessage runs one agent turn for a conversation and returns the
// reply. The user message and the reply are appended to the conversation
// store before returning, so a crash after this call loses nothing.
func (r *Runner) HandleMessage(ctx context.Context, text, conversationID, channelID string) (string, error) {
	start := time.Now()
	defer func() {
		metrics.AgentTurnDuration.Observe(time.Since(start).Seconds())
	}()

	history, err := r.conversations.Get(ctx, conversationID)
	if err != nil {
		return "", fmt.Errorf("load history: %w", err)
	}
	r.logger.Debug().
		Str("conversation_id", conversationID).
		Int("history_len", len(history)).
		Msg("starting agent turn")

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(r.model),
		Temperature: openai.Float(r.temperature),
		Messages:    r.buildMessages(history, text),
		Tools:       r.toolParams(),
	}

	var reply string
	for round := 0; ; round++ {
		if round >= maxToolRounds {
			return "", fmt.Errorf("tool loop exceeded %d rounds", maxToolRounds)
		}

		resp, err := r.client.Chat.Completions.New(ctx, params)
		if err != nil {
			return "", fmt.Errorf("chat completion: %w", err)
		}
		if len(resp.Choices) == 0 {
			return "", ErrNoCompletion
		}

		msg := resp.Choices[0].Message
		if len(msg.ToolCalls) == 0 {
			reply = msg.Content
			break
		}

		params.Messages = append(params.Messages, msg.ToParam())
		for _, call := range msg.ToolCalls {
			out := r.runTool(ctx, call.Function.Name, call.Function.Arguments)
			params.Messages = append(params.Messages, openai.ToolMessage(out, call.ID))
		}
	}

	turn := []models.Message{
		models.UserMessage(text),
		models.AssistantMessage(reply),
	}
	if err := r.conversations.Append(ctx, conversationID, turn); err != nil {
		// The reply still goes out; durability is degraded, not the turn.
		metrics.CacheSaveFailures.Inc()
		r.logger.Error().Err(err).
			Str("conversation_id", conversationID).
			Msg("failed to persist conversation turn")
	}

	return reply, nil
}

// buildMessages assembles the completion input: system prompt, stored
// history in append order, then the new user message.
func (r *Runner) buildMessages(history []models.Message, text string) []openai.ChatCompletionMessageParamUnion {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+2)
	msgs = append(msgs, openai.SystemMessage(r.systemPrompt))
	for _, m := range history {
		switch m.Role {
		case models.RoleAssistant:
			msgs = append(msgs, openai.AssistantMessage(m.Content))
		default:
			msgs = append(msgs, openai.UserMessage(m.Content))
		}
	}
	return append(msgs, openai.UserMessage(text))
}

func (r *Runner) toolParams() []openai.ChatCompletionToolUnionParam {
	params := make([]openai.ChatCompletionToolUnionParam, 0, len(r.tools))
	for _, t := range r.tools {
		params = append(params, openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        t.Name,
			Description: openai.String(t.Description),
			Parameters:  openai.FunctionParameters(t.Parameters),
		}))
	}
	return params
}

// runTool executes a named tool through the observer. Tool failures are
// reported back to the model as content; the model decides how to recover.
func (r *Runner) runTool(ctx context.Context, name, args string) string {
	tool, ok := r.findTool(name)
	if !ok {
		metrics.ToolCalls.WithLabelValues(name, "unknown").Inc()
		return fmt.Sprintf("error: unknown tool %q", name)
	}

	out, err := r.observer(ctx, name, args, func(ctx context.Context) (string, error) {
		return tool.Run(ctx, []byte(args))
	})
	if err != nil {
		metrics.ToolCalls.WithLabelValues(name, "error").Inc()
		return fmt.Sprintf("error: %v", err)
	}
	metrics.ToolCalls.WithLabelValues(name, "ok").Inc()
	return out
}

func (r *Runner) findTool(name string) (Tool, bool) {
	for _, t := range r.tools {
		if t.Name == name {
			return t, true
		}
	}
	return Tool{}, false
}

func (r *Runner) defaultObserver(ctx context.Context, tool, args string, invoke func(context.Context) (string, error)) (string, error) {
	start := time.Now()
	r.logger.Info().Str("tool", tool).RawJSON("args", normalizeArgs(args)).Msg("tool call")

	out, err := invoke(ctx)

	evt := r.logger.Info()
	if err != nil {
		evt = r.logger.Error().Err(err)
	}
	evt.Str("tool", tool).Dur("duration", time.Since(start)).Msg("tool call finished")
	return out, err
}

// normalizeArgs guards RawJSON against models emitting empty argument
// strings.
func normalizeArgs(args string) []byte {
	if args == "" {
		return []byte("{}")
	}
	return []byte(args)
}
