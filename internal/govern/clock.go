package govern

import (
	"context"
	"time"
)

// Clock abstracts wall-clock time and cooperative sleeping so the governor
// can be driven deterministically in tests. Sleep must return early with the
// context's error when the caller is cancelled.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// SystemClock returns the real wall clock.
func SystemClock() Clock { return systemClock{} }
