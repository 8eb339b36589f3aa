package config

import (
	"os"
	"path/filepath"
	"testing"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SLACK_BOT_TOKEN", "xoxb-test")
	t.Setenv("SLACK_SIGNING_SECRET", "secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("MESSAGE_CACHE_PATH", filepath.Join(t.TempDir(), "cache.json"))

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != "8000" {
		t.Errorf("Port = %q, want 8000", cfg.Port)
	}
	if cfg.Model != "gpt-4o" {
		t.Errorf("Model = %q, want gpt-4o", cfg.Model)
	}
	if cfg.Temperature != 0.7 {
		t.Errorf("Temperature = %v, want 0.7", cfg.Temperature)
	}
	if !cfg.IsDevelopment() {
		t.Error("default env should be development")
	}
}

func TestLoadMissingRequired(t *testing.T) {
	t.Setenv("SLACK_BOT_TOKEN", "")
	t.Setenv("SLACK_SIGNING_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing Slack credentials")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "9999")
	t.Setenv("AI_MODEL", "gpt-4o-mini")
	t.Setenv("ENV", "production")
	t.Setenv("MESSAGE_CACHE_PATH", filepath.Join(t.TempDir(), "cache.json"))

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != "9999" {
		t.Errorf("Port = %q, want 9999", cfg.Port)
	}
	if cfg.Model != "gpt-4o-mini" {
		t.Errorf("Model = %q, want gpt-4o-mini", cfg.Model)
	}
	if cfg.IsDevelopment() {
		t.Error("ENV=production should not be development")
	}
}

func TestPromptPathDefaultsNextToCache(t *testing.T) {
	setRequiredEnv(t)
	dir := t.TempDir()
	t.Setenv("MESSAGE_CACHE_PATH", filepath.Join(dir, "cache.json"))

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if got, want := cfg.SystemPromptPath, filepath.Join(dir, "base_system_prompt.txt"); got != want {
		t.Errorf("SystemPromptPath = %q, want %q", got, want)
	}
}

func TestEnsureSeedsPromptFile(t *testing.T) {
	setRequiredEnv(t)
	dir := t.TempDir()
	t.Setenv("MESSAGE_CACHE_PATH", filepath.Join(dir, "nested", "cache.json"))

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if err := cfg.Ensure(); err != nil {
		t.Fatal(err)
	}

	prompt, err := cfg.SystemPrompt()
	if err != nil {
		t.Fatal(err)
	}
	if prompt == "" {
		t.Fatal("Ensure should seed a non-empty default prompt")
	}

	// A user-edited prompt must survive a second Ensure.
	if err := os.WriteFile(cfg.SystemPromptPath, []byte("custom"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := cfg.Ensure(); err != nil {
		t.Fatal(err)
	}
	prompt, _ = cfg.SystemPrompt()
	if prompt != "custom" {
		t.Fatalf("Ensure overwrote user prompt: %q", prompt)
	}
}
