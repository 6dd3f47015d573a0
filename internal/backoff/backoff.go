// Package backoff computes the binary-exponential retry delay the SP uses
// between a rejected request and its resend.
package backoff

import (
	"math/rand"
	"time"
)

// Slot is the base unit of backoff, matching the spec's "slot = 1 s".
const Slot = time.Second

// MaxFailCount is the number of consecutive rejects after which a request
// is abandoned rather than retried again.
const MaxFailCount = 4

// Policy picks a pseudo-random backoff duration for a given fail count.
// A zero Policy uses the package-level default source and the default
// Slot duration.
type Policy struct {
	rng  *rand.Rand
	slot time.Duration
}

// NewPolicy returns a Policy seeded from src, using the default Slot
// duration. Pass a fixed-seed source in tests for reproducible delays.
func NewPolicy(src rand.Source) Policy {
	return Policy{rng: rand.New(src), slot: Slot}
}

// WithSlot returns a copy of p using slot as its base backoff unit instead
// of the default Slot constant, letting a configured backoff_slot_seconds
// actually take effect.
func (p Policy) WithSlot(slot time.Duration) Policy {
	p.slot = slot
	return p
}

func (p Policy) unit() time.Duration {
	if p.slot <= 0 {
		return Slot
	}
	return p.slot
}

// Delay returns a sleep duration uniformly distributed over
// [0, 2^failCount - 1] slots, the spec's binary-exponential backoff for
// failCount in {1,2,3}. failCount <= 0 always yields zero.
func (p Policy) Delay(failCount int) time.Duration {
	if failCount <= 0 {
		return 0
	}
	span := int64(1) << uint(failCount)
	n := p.intn(span)
	return time.Duration(n) * p.unit()
}

func (p Policy) intn(span int64) int64 {
	if p.rng != nil {
		return p.rng.Int63n(span)
	}
	return rand.Int63n(span)
}

// Coin flips a fair coin, used for the idle/wait pacing sleep.
func (p Policy) Coin() bool {
	if p.rng != nil {
		return p.rng.Intn(2) == 0
	}
	return rand.Intn(2) == 0
}
