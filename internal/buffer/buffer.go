// Package buffer provides the ingress admission gate and the bounded queues
// that decouple request handling from downstream delivery.
package buffer

import "sync"

// Gate bounds how many payloads are in flight at once. A full gate means
// the service sheds load instead of queueing unboundedly.
type Gate struct {
	slots chan struct{}
}

func NewGate(capacity int) *Gate {
	return &Gate{slots: make(chan struct{}, capacity)}
}

// TryAcquire claims a slot without blocking. The caller must Release the
// slot when the payload leaves the pipeline.
func (g *Gate) TryAcquire() bool {
	select {
	case g.slots <- struct{}{}:
		return true
	default:
		return false
	}
}

func (g *Gate) Release() {
	select {
	case <-g.slots:
	default:
	}
}

// InFlight reports how many slots are currently claimed.
func (g *Gate) InFlight() int {
	return len(g.slots)
}

// Ring is a bounded in-memory queue that preserves FIFO ordering. When
// full, the oldest entry is dropped: for periodic telemetry a fresh
// observation is worth more than a stale one.
type Ring[T any] struct {
	mu   sync.Mutex
	data []T
	cap  int
}

func NewRing[T any](capacity int) *Ring[T] {
	return &Ring[T]{
		data: make([]T, 0, capacity),
		cap:  capacity,
	}
}

// Push appends item, dropping the oldest entry if the ring is full. It
// reports whether an entry was dropped.
func (r *Ring[T]) Push(item T) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	dropped := false
	if len(r.data) >= r.cap {
		r.data = append(r.data[:0], r.data[1:]...)
		dropped = true
	}
	r.data = append(r.data, item)
	return dropped
}

// DrainBatch removes and returns up to max entries in arrival order.
func (r *Ring[T]) DrainBatch(max int) []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.data) == 0 {
		return nil
	}
	if max <= 0 || max > len(r.data) {
		max = len(r.data)
	}
	out := make([]T, max)
	copy(out, r.data[:max])
	r.data = append(r.data[:0], r.data[max:]...)
	return out
}

func (r *Ring[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.data)
}
