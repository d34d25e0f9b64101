package delivery

import (
	"sync"
	"time"
)

// Breaker is a small circuit breaker guarding one sink. After a run of
// consecutive failures the sink is skipped for a cooldown period; the first
// delivery after the cooldown probes whether the destination recovered.
// Skipped deliveries are still reported to the error sink, so no failure
// goes silent. Safe for concurrent use.
type Breaker struct {
	mu sync.Mutex

	threshold int
	cooldown  time.Duration

	failures    int
	openedAt    time.Time
	probing     bool
	now         func() time.Time
}

// NewBreaker creates a breaker opening after threshold consecutive failures
// and cooling down for the given duration. Non-positive arguments fall back
// to 5 failures and 30 seconds.
func NewBreaker(threshold int, cooldown time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &Breaker{
		threshold: threshold,
		cooldown:  cooldown,
		now:       time.Now,
	}
}

// Allow reports whether a delivery attempt should proceed.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.failures < b.threshold {
		return true
	}
	if b.probing {
		return false
	}
	if b.now().Sub(b.openedAt) >= b.cooldown {
		// One probe at a time while open
		b.probing = true
		return true
	}
	return false
}

// RecordSuccess closes the breaker.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.probing = false
}

// RecordFailure counts a failure and may open the breaker.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	b.probing = false
	if b.failures >= b.threshold {
		b.openedAt = b.now()
	}
}
