package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"luhack/hub/internal/auth"
	"luhack/hub/internal/bot"
	"luhack/hub/internal/config"
	"luhack/hub/internal/db"
	"luhack/hub/internal/devcache"
	"luhack/hub/internal/httpapi"
	"luhack/hub/internal/invite"
	"luhack/hub/internal/metrics"
	"luhack/hub/internal/ratelimit"
	"luhack/hub/internal/tailscale"
)

func main() {
	// .env is a development convenience; absence is not an error.
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		bootLogger := httpapi.NewLogger("info")
		bootLogger.Fatal().Err(err).Msg("invalid configuration")
	}

	logger := httpapi.NewLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	m := metrics.New()

	tsClient, err := tailscale.NewClient(tailscale.Config{
		BaseURL: cfg.Tailscale.BaseURL,
		Credentials: tailscale.Credentials{
			AuthState2:  cfg.Tailscale.AuthState2,
			TailControl: cfg.Tailscale.TailControl,
		},
		Logger: logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid control plane configuration")
	}

	// The device list is populated lazily: expired entries are recomputed
	// by the next caller, never by a background loop.
	cache := devcache.New(logger, tsClient, pool.Queries(), devcache.Options{Metrics: m})
	issuer := invite.New(logger, tsClient, m)

	tokens, err := auth.NewTokens(cfg.Site.TokenSecret, cfg.Site.TokenTTL)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid token configuration")
	}

	limiter := ratelimit.NewInviteLimiter(logger, nil, cfg.Discord.InviteLimit, cfg.Discord.InviteWindow)
	if cfg.RedisURL != "" {
		rdb, err := ratelimit.Open(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer rdb.Close()
		limiter = ratelimit.NewInviteLimiter(logger, rdb, cfg.Discord.InviteLimit, cfg.Discord.InviteWindow)
	}

	if cfg.Discord.Token != "" {
		b, err := bot.New(logger, cfg.Discord, cfg.Site.BaseURL, cache, issuer, tsClient, pool.Queries(), tokens, limiter)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to build bot")
		}
		go func() {
			if err := b.Run(ctx); err != nil {
				logger.Error().Err(err).Msg("bot stopped")
			}
		}()
	} else {
		logger.Info().Msg("no discord token configured, bot disabled")
	}

	h := httpapi.NewHandler(logger, pool, tokens, m)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           h.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("hubd listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server error")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	logger.Info().Msg("shutdown complete")
}
