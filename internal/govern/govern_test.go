package govern

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// manualClock advances instantly on sleep so wait loops are deterministic.
type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
	return nil
}

func TestExecute_MinIntervalAndMinuteCeiling(t *testing.T) {
	clk := newManualClock()
	g := &Governor{
		Limits: Limits{
			MinInterval:   2 * time.Second,
			PerMinute:     5,
			PerDay:        100,
			MaxAttempts:   1,
			MaxSleepSlice: 250 * time.Millisecond,
		},
		Clock: clk,
	}

	const n = 12
	var mu sync.Mutex
	var times []time.Time
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := g.Execute(context.Background(), 0, func(context.Context) (string, error) {
				mu.Lock()
				times = append(times, clk.Now())
				mu.Unlock()
				return "ok", nil
			})
			if err != nil {
				t.Errorf("execute: %v", err)
			}
		}()
	}
	wg.Wait()

	if len(times) != n {
		t.Fatalf("expected %d calls, got %d", n, len(times))
	}
	for i := 1; i < len(times); i++ {
		if d := times[i].Sub(times[i-1]); d < 2*time.Second {
			t.Fatalf("calls %d and %d only %v apart", i-1, i, d)
		}
	}
	// No rolling 60s window may contain more than PerMinute calls.
	for i := range times {
		count := 0
		for j := range times {
			if !times[j].Before(times[i]) && times[j].Sub(times[i]) < time.Minute {
				count++
			}
		}
		if count > 5 {
			t.Fatalf("window starting at call %d holds %d calls", i, count)
		}
	}
}

func TestExecute_TokenWindow(t *testing.T) {
	clk := newManualClock()
	g := &Governor{
		Limits: Limits{
			TokensPerMinute: 100,
			MaxAttempts:     1,
			MaxSleepSlice:   time.Second,
		},
		Clock: clk,
	}
	var times []time.Time
	for i := 0; i < 2; i++ {
		_, err := g.Execute(context.Background(), 60, func(context.Context) (string, error) {
			times = append(times, clk.Now())
			return "ok", nil
		})
		if err != nil {
			t.Fatalf("execute: %v", err)
		}
	}
	if d := times[1].Sub(times[0]); d < time.Minute {
		t.Fatalf("second call admitted after %v, want >= 1m (token window)", d)
	}
}

func TestExecute_RetriesTransientThenSucceeds(t *testing.T) {
	clk := newManualClock()
	g := &Governor{
		Limits: Limits{MaxAttempts: 3, RetryDelay: time.Second, MaxSleepSlice: time.Second},
		Clock:  clk,
	}
	calls := 0
	out, err := g.Execute(context.Background(), 0, func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("request timeout")
		}
		return "done", nil
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if out != "done" || calls != 3 {
		t.Fatalf("out=%q calls=%d", out, calls)
	}
}

func TestExecute_TransientExhaustionSurfacesLastError(t *testing.T) {
	clk := newManualClock()
	g := &Governor{
		Limits: Limits{MaxAttempts: 2, RetryDelay: time.Second, MaxSleepSlice: time.Second},
		Clock:  clk,
	}
	calls := 0
	_, err := g.Execute(context.Background(), 0, func(context.Context) (string, error) {
		calls++
		return "", errors.New("too many requests")
	})
	if calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls)
	}
	var ce *CallError
	if !errors.As(err, &ce) || !ce.Transient || ce.Attempts != 2 {
		t.Fatalf("expected transient CallError with 2 attempts, got %v", err)
	}
}

func TestExecute_NonTransientNotRetried(t *testing.T) {
	clk := newManualClock()
	g := &Governor{
		Limits: Limits{MaxAttempts: 3, RetryDelay: time.Second, MaxSleepSlice: time.Second},
		Clock:  clk,
	}
	calls := 0
	_, err := g.Execute(context.Background(), 0, func(context.Context) (string, error) {
		calls++
		return "", errors.New("invalid api key")
	})
	if calls != 1 {
		t.Fatalf("non-transient error retried: %d attempts", calls)
	}
	var ce *CallError
	if !errors.As(err, &ce) || ce.Transient {
		t.Fatalf("expected non-transient CallError, got %v", err)
	}
}

func TestExecute_QuotaFlagBlocksUntilMidnight(t *testing.T) {
	clk := newManualClock()
	g := &Governor{
		Limits: Limits{MaxAttempts: 1, MaxSleepSlice: time.Hour},
		Clock:  clk,
	}
	g.MarkQuotaExhausted()

	var ran time.Time
	_, err := g.Execute(context.Background(), 0, func(context.Context) (string, error) {
		ran = clk.Now()
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	midnight := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	if ran.Before(midnight) {
		t.Fatalf("call admitted at %v, before quota window expiry %v", ran, midnight)
	}
}

func TestExecute_CancelledContext(t *testing.T) {
	g := &Governor{Limits: DefaultLimits()}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// Repeat because a free gate and a cancelled context race in a
	// select; a single call can pass by luck.
	for i := 0; i < 200; i++ {
		_, err := g.Execute(ctx, 0, func(context.Context) (string, error) {
			t.Fatalf("op ran on iteration %d despite cancelled context", i)
			return "", nil
		})
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	}
}

func TestIsTransient(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{context.DeadlineExceeded, true},
		{errors.New("429 too many requests"), true},
		{errors.New("dial tcp: connection refused"), true},
		{errors.New("401 unauthorized"), false},
		{errors.New("invalid request"), false},
		{nil, false},
	}
	for _, c := range cases {
		if got := IsTransient(c.err); got != c.want {
			t.Fatalf("IsTransient(%v) = %v, want %v", c.err, got, c.want)
		}
	}
}

func TestEstimateTokens(t *testing.T) {
	if EstimateTokens("") != 0 {
		t.Fatal("empty text must cost nothing")
	}
	n := EstimateTokens("Extract the purchase order fields from the following text.")
	if n <= 0 {
		t.Fatalf("expected positive estimate, got %d", n)
	}
}
