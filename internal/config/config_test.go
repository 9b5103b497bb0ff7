package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/hub")
	t.Setenv("SITE_TOKEN_SECRET", "secret")
	t.Setenv("TAILSCALE_AUTHSTATE2", "auth")
	t.Setenv("TAILSCALE_TAILCONTROL", "control")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("expected default addr, got %q", cfg.HTTPAddr)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("expected default log level, got %q", cfg.LogLevel)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("HTTP_ADDR", ":9999")
	t.Setenv("INVITE_RATE_LIMIT", "7")
	t.Setenv("INVITE_RATE_WINDOW", "15m")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTPAddr != ":9999" {
		t.Fatalf("expected env addr, got %q", cfg.HTTPAddr)
	}
	if cfg.Discord.InviteLimit != 7 {
		t.Fatalf("expected invite limit 7, got %d", cfg.Discord.InviteLimit)
	}
	if cfg.Discord.InviteWindow != 15*time.Minute {
		t.Fatalf("expected 15m window, got %v", cfg.Discord.InviteWindow)
	}
}

func TestLoad_FileThenEnvWins(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("LOG_LEVEL", "debug")

	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "http_addr: \":7777\"\nlog_level: warn\nsite:\n  base_url: https://writeups.example.org\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTPAddr != ":7777" {
		t.Fatalf("expected file addr, got %q", cfg.HTTPAddr)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("expected env to win over file, got %q", cfg.LogLevel)
	}
	if cfg.Site.BaseURL != "https://writeups.example.org" {
		t.Fatalf("expected file base url, got %q", cfg.Site.BaseURL)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DATABASE_URL", "")

	if _, err := Load(""); err == nil {
		t.Fatalf("expected error for missing DATABASE_URL")
	}
}

func TestLoad_BotRequiresGuild(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DISCORD_TOKEN", "token")

	if _, err := Load(""); err == nil {
		t.Fatalf("expected error for bot without guild id")
	}
}

func TestLoad_BadDuration(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SITE_TOKEN_TTL", "soon")

	if _, err := Load(""); err == nil {
		t.Fatalf("expected error for bad duration")
	}
}
