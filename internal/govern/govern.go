// Package govern serializes and rate-limits calls to the external generation
// service. The service's quota is global to the process, so at most one call
// is ever in flight; waiting callers are admitted in FIFO order and suspend
// cooperatively in bounded slices so cancellation stays responsive.
package govern

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Limits are the admission ceilings for outbound generation calls.
type Limits struct {
	// MinInterval is the minimum delay between consecutive calls.
	MinInterval time.Duration
	// PerMinute caps calls in any trailing 60-second window.
	PerMinute int
	// PerDay caps calls in any trailing 24-hour window.
	PerDay int
	// TokensPerMinute caps estimated prompt tokens in the trailing minute.
	TokensPerMinute int
	// MaxAttempts includes the initial attempt. Minimum 1.
	MaxAttempts int
	// RetryDelay is the base delay between attempts, scaled linearly.
	RetryDelay time.Duration
	// MaxSleepSlice bounds each cooperative sleep so waiters re-check and
	// notice cancellation promptly.
	MaxSleepSlice time.Duration
}

// DefaultLimits mirrors the free-tier ceilings of common hosted models.
func DefaultLimits() Limits {
	return Limits{
		MinInterval:     2 * time.Second,
		PerMinute:       15,
		PerDay:          1500,
		TokensPerMinute: 1_000_000,
		MaxAttempts:     3,
		RetryDelay:      5 * time.Second,
		MaxSleepSlice:   500 * time.Millisecond,
	}
}

// CallError reports a failed governed call. Transient means the retry budget
// was exhausted on retryable failures; non-transient failures are surfaced
// after the first attempt.
type CallError struct {
	Transient bool
	Attempts  int
	Err       error
}

func (e *CallError) Error() string {
	if e.Transient {
		return fmt.Sprintf("call failed after %d attempts: %v", e.Attempts, e.Err)
	}
	return fmt.Sprintf("call failed: %v", e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }

// Governor admits calls one at a time, blocking each until every configured
// ceiling allows it, and retries transient failures up to the attempt budget.
// The zero value is not usable; populate Limits first.
type Governor struct {
	Limits Limits
	// Clock defaults to the system clock when nil.
	Clock Clock
	// Transient overrides the default failure classifier when non-nil.
	Transient func(error) bool

	state     rateState
	admit     chan struct{}
	admitOnce sync.Once
}

func (g *Governor) clock() Clock {
	if g.Clock != nil {
		return g.Clock
	}
	return systemClock{}
}

func (g *Governor) transient(err error) bool {
	if g.Transient != nil {
		return g.Transient(err)
	}
	return IsTransient(err)
}

func (g *Governor) gate() chan struct{} {
	g.admitOnce.Do(func() { g.admit = make(chan struct{}, 1) })
	return g.admit
}

// Execute runs op under the governor's admission and retry policy.
// estTokens is the estimated prompt token cost charged against the
// per-minute token window; use EstimateTokens for a reasonable value.
func (g *Governor) Execute(ctx context.Context, estTokens int, op func(context.Context) (string, error)) (string, error) {
	gate := g.gate()
	select {
	case gate <- struct{}{}:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	defer func() { <-gate }()

	// The select above picks randomly when both the gate and Done are
	// ready, so a cancelled caller can still win admission.
	if err := ctx.Err(); err != nil {
		return "", err
	}

	clk := g.clock()
	attempts := g.Limits.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := g.waitEligible(ctx, clk, estTokens); err != nil {
			return "", err
		}
		g.state.record(clk.Now(), estTokens)

		out, err := op(ctx)
		if err == nil {
			return out, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		lastErr = err
		if !g.transient(err) {
			return "", &CallError{Attempts: attempt, Err: err}
		}
		if attempt == attempts {
			break
		}
		delay := time.Duration(attempt) * g.Limits.RetryDelay
		log.Warn().Str("stage", "govern").Int("attempt", attempt).Dur("delay", delay).Err(err).
			Msg("transient call failure, retrying")
		if err := clk.Sleep(ctx, delay); err != nil {
			return "", err
		}
	}
	return "", &CallError{Transient: true, Attempts: attempts, Err: lastErr}
}

// waitEligible suspends in bounded slices until all admission conditions
// hold at once. Conditions are re-evaluated after every wake because other
// histories (or the quota flag) may have moved while sleeping.
func (g *Governor) waitEligible(ctx context.Context, clk Clock, estTokens int) error {
	for {
		wait := g.state.nextWait(clk.Now(), g.Limits, estTokens)
		if wait <= 0 {
			return nil
		}
		if g.Limits.MaxSleepSlice > 0 && wait > g.Limits.MaxSleepSlice {
			wait = g.Limits.MaxSleepSlice
		}
		if err := clk.Sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// Backoff opens a backoff window; no call is admitted before until.
func (g *Governor) Backoff(until time.Time) {
	g.state.setBackoff(until)
}

// MarkQuotaExhausted sets the standing quota-exceeded flag, which expires at
// the next daily boundary. The governor never infers this itself: the caller
// sets it upon receiving an explicit quota-exhaustion signal.
func (g *Governor) MarkQuotaExhausted() {
	now := g.clock().Now()
	y, m, d := now.Date()
	midnight := time.Date(y, m, d+1, 0, 0, 0, 0, now.Location())
	g.state.setQuota(midnight)
	log.Warn().Str("stage", "govern").Time("until", midnight).Msg("quota exhausted, blocking calls")
}

// Usage reports the pruned window counters, mainly for logging.
func (g *Governor) Usage() (minuteCalls, dayCalls, minuteTokens int) {
	return g.state.snapshot(g.clock().Now())
}

// IsTransient classifies failures that are worth retrying: timeouts, network
// errors, and explicit too-many-requests signals. Everything else (bad
// credentials, malformed requests) propagates immediately.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var nerr net.Error
	if errors.As(err, &nerr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, hint := range []string{
		"timeout",
		"timed out",
		"connection refused",
		"connection reset",
		"too many requests",
		"rate limit",
		"429",
		"unavailable",
	} {
		if strings.Contains(msg, hint) {
			return true
		}
	}
	return false
}
