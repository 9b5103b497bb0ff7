// Package invite obtains one-time invite codes for lab devices from the
// upstream admin API, retrying transient failures with bounded backoff.
package invite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"luhack/hub/internal/metrics"
	"luhack/hub/internal/tailscale"
)

// ErrUpstreamUnavailable wraps the last failure once the retry budget is
// exhausted. Callers translate it into a "try again later" message.
var ErrUpstreamUnavailable = errors.New("invite: upstream unavailable")

// maxAttempts bounds total tries (one initial plus three retries). The
// upstream is known to intermittently reject the first request after a
// session refresh, but invite creation is an external side effect with
// rate limits, so retrying indefinitely is not safe.
const maxAttempts = 4

// retryStep is the linear delay increment between attempts.
const retryStep = 100 * time.Millisecond

// Upstream is the slice of the admin API client the issuer needs.
type Upstream interface {
	Self(ctx context.Context) (string, error)
	CreateInvite(ctx context.Context, nodeID, csrf string) (string, error)
}

type Issuer struct {
	client  Upstream
	log     zerolog.Logger
	metrics *metrics.Metrics

	// sleep is injectable for tests. Defaults to a context-aware wait.
	sleep func(ctx context.Context, d time.Duration) error
}

func New(log zerolog.Logger, client Upstream, m *metrics.Metrics) *Issuer {
	return &Issuer{
		client:  client,
		log:     log,
		metrics: m,
		sleep:   sleepCtx,
	}
}

// Issue requests a one-time invite code for the device id. Each attempt
// fetches a fresh CSRF token; the token is short-lived and must never be
// reused across attempts. On failure the attempt is retried after
// attempt_index * 100ms, up to four attempts total, after which the last
// error is surfaced wrapped in ErrUpstreamUnavailable.
//
// There is no cancellation path once the invite request is submitted: a
// cancelled caller may still have created an upstream invite. Unused
// invites expire upstream.
func (iss *Issuer) Issue(ctx context.Context, nodeID string) (string, error) {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			if err := iss.sleep(ctx, time.Duration(attempt)*retryStep); err != nil {
				return "", err
			}
		}

		iss.metrics.IncInviteAttempt()
		code, err := iss.issueOnce(ctx, nodeID)
		if err == nil {
			return code, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		// Every failure is retried; the classification only feeds the
		// logs so permanent failures (an expired admin session) stand
		// out from upstream blips.
		iss.log.Warn().
			Err(err).
			Str("node", nodeID).
			Int("attempt", attempt+1).
			Bool("transient", tailscale.IsTransient(err)).
			Msg("invite attempt failed")
	}

	iss.metrics.IncInviteFailure()
	return "", fmt.Errorf("%w after %d attempts: %w", ErrUpstreamUnavailable, maxAttempts, lastErr)
}

func (iss *Issuer) issueOnce(ctx context.Context, nodeID string) (string, error) {
	csrf, err := iss.client.Self(ctx)
	if err != nil {
		return "", fmt.Errorf("fetching csrf token: %w", err)
	}

	code, err := iss.client.CreateInvite(ctx, nodeID, csrf)
	if err != nil {
		return "", fmt.Errorf("creating invite: %w", err)
	}
	return code, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
