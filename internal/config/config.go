package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// defaultSystemPrompt seeds the prompt file the first time the service runs.
const defaultSystemPrompt = "You are a helpful and friendly Slack assistant. " +
	"Use your memory of conversation threads and tools " +
	"to answer questions and help the user."

// Config holds all configuration, constructed once at startup and passed to
// components. Reading config has no side effects; file and directory
// creation happen in the explicit Ensure step.
type Config struct {
	Host string `env:"HOST" envDefault:"0.0.0.0"`
	Port string `env:"PORT" envDefault:"8000"`
	Env  string `env:"ENV" envDefault:"development"`

	// Slack credentials.
	BotToken      string `env:"SLACK_BOT_TOKEN"`
	SigningSecret string `env:"SLACK_SIGNING_SECRET"`

	// Conversation store. Backend is chosen by what is configured:
	// DATABASE_URL -> postgres, SQLITE_PATH -> sqlite, else file.
	MessageCachePath string `env:"MESSAGE_CACHE_PATH"`
	SQLitePath       string `env:"SQLITE_PATH"`
	DatabaseURL      string `env:"DATABASE_URL"`
	RedisURL         string `env:"REDIS_URL"`

	// Agent.
	OpenAIAPIKey     string  `env:"OPENAI_API_KEY"`
	Model            string  `env:"AI_MODEL" envDefault:"gpt-4o"`
	Temperature      float64 `env:"AI_TEMPERATURE" envDefault:"0.7"`
	SystemPromptPath string  `env:"SYSTEM_PROMPT_PATH"`

	// Tools.
	GoogleAPIKey   string `env:"GOOGLE_API_KEY"`
	GoogleCX       string `env:"GOOGLE_CX"`
	WorkflowAPIURL string `env:"WORKFLOW_API_URL"`
	KBNamespace    string `env:"KB_NAMESPACE" envDefault:"slackbot"`

	Debug bool `env:"DEBUG" envDefault:"false"`
}

// Load reads configuration from the environment, after loading .env in
// development. Missing required values are reported together rather than
// one at a time.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if cfg.MessageCachePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		cfg.MessageCachePath = filepath.Join(home, ".slackbot", "message_cache.json")
	}
	if cfg.SystemPromptPath == "" {
		cfg.SystemPromptPath = filepath.Join(filepath.Dir(cfg.MessageCachePath), "base_system_prompt.txt")
	}

	var missing []string
	if cfg.BotToken == "" {
		missing = append(missing, "SLACK_BOT_TOKEN")
	}
	if cfg.SigningSecret == "" {
		missing = append(missing, "SLACK_SIGNING_SECRET")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required configuration: %v", missing)
	}

	return cfg, nil
}

// IsDevelopment reports whether the service runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Ensure creates the storage directory and seeds the system prompt file if
// absent. This is an explicit initialization step, not a property of
// reading configuration.
func (c *Config) Ensure() error {
	if err := os.MkdirAll(filepath.Dir(c.MessageCachePath), 0o755); err != nil {
		return fmt.Errorf("create storage directory: %w", err)
	}

	if _, err := os.Stat(c.SystemPromptPath); os.IsNotExist(err) {
		if err := os.WriteFile(c.SystemPromptPath, []byte(defaultSystemPrompt), 0o644); err != nil {
			return fmt.Errorf("seed system prompt: %w", err)
		}
	} else if err != nil {
		return err
	}
	return nil
}

// SystemPrompt reads the prompt file. Call Ensure first.
func (c *Config) SystemPrompt() (string, error) {
	data, err := os.ReadFile(c.SystemPromptPath)
	if err != nil {
		return "", fmt.Errorf("read system prompt: %w", err)
	}
	return string(data), nil
}
