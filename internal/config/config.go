package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTPAddr    string `yaml:"http_addr"`
	LogLevel    string `yaml:"log_level"`
	DatabaseURL string `yaml:"database_url"`
	RedisURL    string `yaml:"redis_url"`

	Site      Site      `yaml:"site"`
	Discord   Discord   `yaml:"discord"`
	Tailscale Tailscale `yaml:"tailscale"`
}

type Site struct {
	// BaseURL is the externally visible root of the website, used when
	// building login links handed out over Discord.
	BaseURL     string        `yaml:"base_url"`
	TokenSecret string        `yaml:"token_secret"`
	TokenTTL    time.Duration `yaml:"token_ttl"`
}

type Discord struct {
	// Token enables the bot when set.
	Token          string        `yaml:"token"`
	GuildID        string        `yaml:"guild_id"`
	LogChannelID   string        `yaml:"log_channel_id"`
	VerifiedRoleID string        `yaml:"verified_role_id"`
	InviteLimit    int64         `yaml:"invite_limit"`
	InviteWindow   time.Duration `yaml:"invite_window"`
}

type Tailscale struct {
	BaseURL     string `yaml:"base_url"`
	AuthState2  string `yaml:"authstate2"`
	TailControl string `yaml:"tailcontrol"`
}

// Load reads an optional YAML file, applies environment overrides, and
// validates required fields. Environment always wins over the file.
func Load(path string) (*Config, error) {
	cfg := &Config{
		HTTPAddr: ":8080",
		LogLevel: "info",
	}

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	overrideString(&cfg.HTTPAddr, "HTTP_ADDR")
	overrideString(&cfg.LogLevel, "LOG_LEVEL")
	overrideString(&cfg.DatabaseURL, "DATABASE_URL")
	overrideString(&cfg.RedisURL, "REDIS_URL")
	overrideString(&cfg.Site.BaseURL, "SITE_BASE_URL")
	overrideString(&cfg.Site.TokenSecret, "SITE_TOKEN_SECRET")
	if err := overrideDuration(&cfg.Site.TokenTTL, "SITE_TOKEN_TTL"); err != nil {
		return nil, err
	}
	overrideString(&cfg.Discord.Token, "DISCORD_TOKEN")
	overrideString(&cfg.Discord.GuildID, "DISCORD_GUILD_ID")
	overrideString(&cfg.Discord.LogChannelID, "DISCORD_LOG_CHANNEL_ID")
	overrideString(&cfg.Discord.VerifiedRoleID, "DISCORD_VERIFIED_ROLE_ID")
	if err := overrideInt(&cfg.Discord.InviteLimit, "INVITE_RATE_LIMIT"); err != nil {
		return nil, err
	}
	if err := overrideDuration(&cfg.Discord.InviteWindow, "INVITE_RATE_WINDOW"); err != nil {
		return nil, err
	}
	overrideString(&cfg.Tailscale.BaseURL, "TAILSCALE_BASE_URL")
	overrideString(&cfg.Tailscale.AuthState2, "TAILSCALE_AUTHSTATE2")
	overrideString(&cfg.Tailscale.TailControl, "TAILSCALE_TAILCONTROL")

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.Site.TokenSecret == "" {
		return nil, errors.New("SITE_TOKEN_SECRET is required")
	}
	if cfg.Tailscale.AuthState2 == "" || cfg.Tailscale.TailControl == "" {
		return nil, errors.New("TAILSCALE_AUTHSTATE2 and TAILSCALE_TAILCONTROL are required")
	}
	if cfg.Discord.Token != "" && cfg.Discord.GuildID == "" {
		return nil, errors.New("DISCORD_GUILD_ID is required when the bot is enabled")
	}

	return cfg, nil
}

func overrideString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func overrideDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = d
	return nil
}

func overrideInt(dst *int64, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = n
	return nil
}
