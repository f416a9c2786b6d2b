package engine

import (
	"math/rand"
	"time"
)

// Defaults is the engine-wide retry and timeout policy. Individual nodes may
// override MaxAttempts and Timeout in their spec; the backoff settings apply
// to every node.
type Defaults struct {
	MaxAttempts int
	Timeout     time.Duration
	Backoff     time.Duration
	BackoffMax  time.Duration
	Jitter      bool
}

func (d Defaults) normalized() Defaults {
	q := d
	if q.MaxAttempts <= 0 {
		q.MaxAttempts = 3
	}
	if q.Timeout <= 0 {
		q.Timeout = 30 * time.Second
	}
	if q.Backoff <= 0 {
		q.Backoff = 200 * time.Millisecond
	}
	if q.BackoffMax <= 0 {
		q.BackoffMax = 5 * time.Second
	}
	if q.BackoffMax < q.Backoff {
		q.BackoffMax = q.Backoff
	}
	return q
}

// backoffDelay returns the delay before the next attempt, given how many
// attempts have failed so far.
func backoffDelay(failures int, d Defaults) time.Duration {
	delay := d.Backoff << (failures - 1)
	if delay > d.BackoffMax || delay <= 0 {
		delay = d.BackoffMax
	}
	if !d.Jitter {
		return delay
	}
	// +/- 50% jitter
	half := delay / 2
	return half + time.Duration(rand.Int63n(int64(half)+1)) // #nosec G404 non-crypto
}
