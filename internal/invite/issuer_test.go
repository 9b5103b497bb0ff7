package invite

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"luhack/hub/internal/tailscale"
)

type scriptedUpstream struct {
	selfCalls   int
	inviteCalls int

	// failFirst makes CreateInvite fail for the first n calls.
	failFirst int

	selfErr error
}

func (u *scriptedUpstream) Self(_ context.Context) (string, error) {
	u.selfCalls++
	if u.selfErr != nil {
		return "", u.selfErr
	}
	return fmt.Sprintf("csrf-%d", u.selfCalls), nil
}

func (u *scriptedUpstream) CreateInvite(_ context.Context, _, csrf string) (string, error) {
	u.inviteCalls++
	if u.inviteCalls <= u.failFirst {
		return "", errors.New("status 500")
	}
	// The token minted for this attempt must be the one presented.
	if want := fmt.Sprintf("csrf-%d", u.selfCalls); csrf != want {
		return "", fmt.Errorf("stale csrf token %q, want %q", csrf, want)
	}
	return "code-123", nil
}

func newTestIssuer(up Upstream) (*Issuer, *[]time.Duration) {
	iss := New(zerolog.Nop(), up, nil)
	var delays []time.Duration
	iss.sleep = func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}
	return iss, &delays
}

func TestIssue_FirstAttemptSucceeds(t *testing.T) {
	up := &scriptedUpstream{}
	iss, delays := newTestIssuer(up)

	code, err := iss.Issue(context.Background(), "node-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if code != "code-123" {
		t.Fatalf("wrong code %q", code)
	}
	if up.inviteCalls != 1 || len(*delays) != 0 {
		t.Fatalf("expected a single attempt with no delay, got %d calls, %v delays", up.inviteCalls, *delays)
	}
}

func TestIssue_RetriesWithLinearBackoff(t *testing.T) {
	up := &scriptedUpstream{failFirst: 2}
	iss, delays := newTestIssuer(up)

	code, err := iss.Issue(context.Background(), "node-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if code != "code-123" {
		t.Fatalf("wrong code %q", code)
	}
	if up.inviteCalls != 3 {
		t.Fatalf("expected success on attempt 3, got %d attempts", up.inviteCalls)
	}
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}
	if len(*delays) != len(want) {
		t.Fatalf("expected %d delays, got %v", len(want), *delays)
	}
	for i, d := range want {
		if (*delays)[i] != d {
			t.Fatalf("delay %d: expected %v, got %v", i, d, (*delays)[i])
		}
	}
}

func TestIssue_ExhaustsAttempts(t *testing.T) {
	up := &scriptedUpstream{failFirst: 100}
	iss, delays := newTestIssuer(up)

	_, err := iss.Issue(context.Background(), "node-1")
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
	if up.inviteCalls != 4 {
		t.Fatalf("expected exactly 4 attempts, got %d", up.inviteCalls)
	}
	if len(*delays) != 3 {
		t.Fatalf("expected 3 inter-attempt delays, got %v", *delays)
	}
}

func TestIssue_FreshCSRFPerAttempt(t *testing.T) {
	up := &scriptedUpstream{failFirst: 3}
	iss, _ := newTestIssuer(up)

	if _, err := iss.Issue(context.Background(), "node-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if up.selfCalls != 4 {
		t.Fatalf("expected a fresh csrf fetch per attempt, got %d", up.selfCalls)
	}
}

func TestIssue_LogsFailureTransience(t *testing.T) {
	cases := []struct {
		name    string
		selfErr error
		want    string
	}{
		{"transport error", errors.New("dial timeout"), `"transient":true`},
		{"expired session", &tailscale.APIError{StatusCode: 403, Body: "forbidden"}, `"transient":false`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			var buf bytes.Buffer
			iss := New(zerolog.New(&buf), &scriptedUpstream{selfErr: c.selfErr}, nil)
			iss.sleep = func(context.Context, time.Duration) error { return nil }

			if _, err := iss.Issue(context.Background(), "node-1"); !errors.Is(err, ErrUpstreamUnavailable) {
				t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
			}
			if !strings.Contains(buf.String(), c.want) {
				t.Fatalf("expected %s in retry logs, got %s", c.want, buf.String())
			}
		})
	}
}

func TestIssue_CancelledContextStopsRetrying(t *testing.T) {
	up := &scriptedUpstream{selfErr: errors.New("timeout")}
	iss := New(zerolog.Nop(), up, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := iss.Issue(ctx, "node-1")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
	if up.selfCalls > 1 {
		t.Fatalf("expected no retries after cancellation, got %d calls", up.selfCalls)
	}
}
