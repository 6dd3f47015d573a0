package backoff

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDelayIsWithinSlotRange(t *testing.T) {
	p := NewPolicy(rand.NewSource(1))
	for failCount := 1; failCount <= 3; failCount++ {
		max := time.Duration(int64(1)<<uint(failCount)-1) * Slot
		for i := 0; i < 50; i++ {
			d := p.Delay(failCount)
			assert.GreaterOrEqual(t, d, time.Duration(0))
			assert.LessOrEqual(t, d, max)
		}
	}
}

func TestDelayZeroFailCount(t *testing.T) {
	p := NewPolicy(rand.NewSource(1))
	assert.Equal(t, time.Duration(0), p.Delay(0))
}

func TestCoinDeterministicWithFixedSeed(t *testing.T) {
	p1 := NewPolicy(rand.NewSource(42))
	p2 := NewPolicy(rand.NewSource(42))
	for i := 0; i < 10; i++ {
		assert.Equal(t, p1.Coin(), p2.Coin())
	}
}
