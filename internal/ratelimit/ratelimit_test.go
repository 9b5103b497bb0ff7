package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestAllow_NilLimiterAllows(t *testing.T) {
	var l *InviteLimiter
	if !l.Allow(context.Background(), "123") {
		t.Fatalf("nil limiter must allow")
	}
}

func TestAllow_NoRedisAllows(t *testing.T) {
	l := NewInviteLimiter(zerolog.Nop(), nil, 5, 10*time.Minute)
	if !l.Allow(context.Background(), "123") {
		t.Fatalf("limiter without redis must allow")
	}
}

func TestNewInviteLimiter_Defaults(t *testing.T) {
	l := NewInviteLimiter(zerolog.Nop(), nil, 0, 0)
	if l.limit != 5 {
		t.Fatalf("expected default limit 5, got %d", l.limit)
	}
	if l.window != 10*time.Minute {
		t.Fatalf("expected default window 10m, got %v", l.window)
	}
}

func TestOpen_BadURL(t *testing.T) {
	if _, err := Open(context.Background(), "not a url"); err == nil {
		t.Fatalf("expected error for malformed redis URL")
	}
}
