package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/rs/zerolog"

	"github.com/zzstoatzz/slackbot/internal/agent"
	"github.com/zzstoatzz/slackbot/internal/api"
	"github.com/zzstoatzz/slackbot/internal/config"
	"github.com/zzstoatzz/slackbot/internal/dispatch"
	"github.com/zzstoatzz/slackbot/internal/handlers"
	"github.com/zzstoatzz/slackbot/internal/kb"
	"github.com/zzstoatzz/slackbot/internal/search"
	"github.com/zzstoatzz/slackbot/internal/slack"
	"github.com/zzstoatzz/slackbot/internal/store"
	"github.com/zzstoatzz/slackbot/internal/workflow"
)

// dispatchTimeout bounds each detached agent turn.
const dispatchTimeout = 5 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := zerolog.New(os.Stderr)
		bootLogger.Fatal().Err(err).Msg("configuration error")
	}

	var logger zerolog.Logger
	if cfg.IsDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	} else {
		logger = zerolog.New(os.Stdout).
			With().
			Timestamp().
			Logger()
	}
	if cfg.Debug {
		logger = logger.Level(zerolog.DebugLevel)
	} else {
		logger = logger.Level(zerolog.InfoLevel)
	}

	if err := cfg.Ensure(); err != nil {
		logger.Fatal().Err(err).Msg("storage initialization failed")
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Conversation store: postgres, sqlite, or the JSON file cache.
	var conversations store.ConversationStore
	var pgStore *store.PostgresStore
	switch {
	case cfg.DatabaseURL != "":
		pgStore, err = store.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres connection failed")
		}
		conversations = pgStore
		logger.Info().Msg("conversation store: postgres")
	case cfg.SQLitePath != "":
		conversations, err = store.NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			logger.Fatal().Err(err).Msg("sqlite open failed")
		}
		logger.Info().Str("path", cfg.SQLitePath).Msg("conversation store: sqlite")
	default:
		conversations = store.NewFileStore(cfg.MessageCachePath)
		logger.Info().Str("path", cfg.MessageCachePath).Msg("conversation store: file")
	}
	if err := conversations.Load(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to load conversation store")
	}
	defer conversations.Close()

	// Event dedup: Redis when configured, otherwise in-process.
	var dedup store.EventDeduper
	if cfg.RedisURL != "" {
		redisDedup, err := store.NewRedisDeduper(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connection failed")
		}
		defer redisDedup.Close()
		dedup = redisDedup
		logger.Info().Msg("event dedup: redis")
	} else {
		dedup = store.NewMemoryDeduper()
	}

	slackClient := slack.NewClient(cfg.BotToken)
	if botID, err := slackClient.AuthTest(ctx); err != nil {
		logger.Warn().Err(err).Msg("slack auth test failed")
	} else {
		logger.Info().Str("bot_user_id", botID).Msg("authenticated with slack")
	}

	systemPrompt, err := cfg.SystemPrompt()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to read system prompt")
	}

	openaiClient := openai.NewClient(option.WithAPIKey(cfg.OpenAIAPIKey))

	// Tools are wired only when their backends are configured.
	var tools []agent.Tool
	if pgStore != nil {
		kbStore, err := kb.New(ctx, pgStore.Pool(), openaiClient, cfg.KBNamespace, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("knowledgebase initialization failed")
		}
		tools = append(tools, agent.QueryKnowledgebaseTool(kbStore), agent.AddSitemapTool(kbStore))
	}
	if cfg.GoogleAPIKey != "" && cfg.GoogleCX != "" {
		tools = append(tools, agent.GoogleSearchTool(search.NewClient(cfg.GoogleAPIKey, cfg.GoogleCX)))
	}
	if cfg.WorkflowAPIURL != "" {
		tools = append(tools, agent.TriggerDeploymentTool(workflow.NewClient(cfg.WorkflowAPIURL)))

		// Observe the orchestrator's event stream for the life of the
		// process.
		go workflow.NewListener(cfg.WorkflowAPIURL, logger).Run(ctx)
	}

	runner := agent.New(openaiClient, conversations, cfg.Model, systemPrompt, cfg.Temperature, logger,
		agent.WithTools(tools...))

	dispatcher := dispatch.New(runner, slackClient, logger, dispatchTimeout)
	h := handlers.NewHandler(conversations, dedup, dispatcher, logger)
	router := api.NewRouter(logger, h, []byte(cfg.SigningSecret))

	srv := &http.Server{
		Addr:         cfg.Host + ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().
			Str("addr", srv.Addr).
			Str("env", cfg.Env).
			Int("tools", len(tools)).
			Msg("starting slackbot gateway")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}

	// Stop the event-stream listener.
	stop()

	// Let in-flight agent turns finish so their replies and history writes
	// are not lost.
	dispatcher.Wait()

	logger.Info().Msg("server stopped")
}
