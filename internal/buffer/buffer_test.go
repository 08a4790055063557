package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGateCapacity(t *testing.T) {
	g := NewGate(2)

	assert.True(t, g.TryAcquire())
	assert.True(t, g.TryAcquire())
	assert.False(t, g.TryAcquire(), "full gate rejects")
	assert.Equal(t, 2, g.InFlight())

	g.Release()
	assert.Equal(t, 1, g.InFlight())
	assert.True(t, g.TryAcquire())
}

func TestGateReleaseWhenEmpty(t *testing.T) {
	g := NewGate(1)
	// Spurious releases must not grow capacity.
	g.Release()
	assert.True(t, g.TryAcquire())
	assert.False(t, g.TryAcquire())
}

func TestRingFIFO(t *testing.T) {
	r := NewRing[int](4)
	for i := 1; i <= 3; i++ {
		assert.False(t, r.Push(i))
	}
	assert.Equal(t, 3, r.Len())

	assert.Equal(t, []int{1, 2}, r.DrainBatch(2))
	assert.Equal(t, []int{3}, r.DrainBatch(10))
	assert.Nil(t, r.DrainBatch(10))
}

func TestRingDropsOldestWhenFull(t *testing.T) {
	r := NewRing[int](2)
	assert.False(t, r.Push(1))
	assert.False(t, r.Push(2))
	assert.True(t, r.Push(3), "push into a full ring drops")

	assert.Equal(t, []int{2, 3}, r.DrainBatch(0))
}
