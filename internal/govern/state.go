package govern

import (
	"sync"
	"time"
)

type tokenUse struct {
	at time.Time
	n  int
}

// rateState holds the rolling call and token histories together with the
// standing backoff and quota windows. It is the only shared mutable state in
// the pipeline; all reads and updates happen under one mutex, and stale
// entries are pruned before any ceiling is evaluated.
type rateState struct {
	mu           sync.Mutex
	minute       []time.Time
	day          []time.Time
	tokens       []tokenUse
	lastCall     time.Time
	backoffUntil time.Time
	quotaUntil   time.Time
}

func (s *rateState) prune(now time.Time) {
	minuteFloor := now.Add(-time.Minute)
	dayFloor := now.Add(-24 * time.Hour)
	i := 0
	for i < len(s.minute) && !s.minute[i].After(minuteFloor) {
		i++
	}
	s.minute = s.minute[i:]
	i = 0
	for i < len(s.day) && !s.day[i].After(dayFloor) {
		i++
	}
	s.day = s.day[i:]
	i = 0
	for i < len(s.tokens) && !s.tokens[i].at.After(minuteFloor) {
		i++
	}
	s.tokens = s.tokens[i:]
}

// nextWait reports how long the caller must wait before a call consuming
// estTokens becomes admissible. Zero or negative means eligible now. The
// returned duration is the largest of the individual condition waits so a
// single sleep usually suffices, but callers re-check after waking.
func (s *rateState) nextWait(now time.Time, lim Limits, estTokens int) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prune(now)

	var until time.Time
	later := func(t time.Time) {
		if t.After(until) {
			until = t
		}
	}

	if lim.MinInterval > 0 && !s.lastCall.IsZero() {
		later(s.lastCall.Add(lim.MinInterval))
	}
	if lim.PerMinute > 0 && len(s.minute) >= lim.PerMinute {
		later(s.minute[len(s.minute)-lim.PerMinute].Add(time.Minute))
	}
	if lim.PerDay > 0 && len(s.day) >= lim.PerDay {
		later(s.day[len(s.day)-lim.PerDay].Add(24 * time.Hour))
	}
	if lim.TokensPerMinute > 0 && len(s.tokens) > 0 {
		sum := 0
		for _, t := range s.tokens {
			sum += t.n
		}
		if sum+estTokens > lim.TokensPerMinute {
			// Wait for the oldest entries to roll out of the window until the
			// estimate fits again.
			for _, t := range s.tokens {
				sum -= t.n
				later(t.at.Add(time.Minute))
				if sum+estTokens <= lim.TokensPerMinute {
					break
				}
			}
		}
	}
	later(s.backoffUntil)
	later(s.quotaUntil)

	if until.IsZero() {
		return 0
	}
	return until.Sub(now)
}

func (s *rateState) record(now time.Time, estTokens int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.minute = append(s.minute, now)
	s.day = append(s.day, now)
	if estTokens > 0 {
		s.tokens = append(s.tokens, tokenUse{at: now, n: estTokens})
	}
	s.lastCall = now
}

func (s *rateState) setBackoff(until time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if until.After(s.backoffUntil) {
		s.backoffUntil = until
	}
}

func (s *rateState) setQuota(until time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if until.After(s.quotaUntil) {
		s.quotaUntil = until
	}
}

func (s *rateState) snapshot(now time.Time) (minuteCalls, dayCalls, minuteTokens int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prune(now)
	for _, t := range s.tokens {
		minuteTokens += t.n
	}
	return len(s.minute), len(s.day), minuteTokens
}
