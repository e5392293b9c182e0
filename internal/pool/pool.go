// Package pool wraps sync.Pool with a typed interface. The DNS
// listeners recycle their per-request packet buffers through it so
// steady-state traffic stays off the allocator.
package pool

import "sync"

// Pool is a generic wrapper around sync.Pool.
type Pool[T any] struct {
	internal sync.Pool
}

// New creates a new Pool with the given constructor.
func New[T any](newFn func() T) *Pool[T] {
	return &Pool[T]{
		internal: sync.Pool{
			New: func() any {
				return newFn()
			},
		},
	}
}

// NewBuffers returns a pool of fixed-size byte buffers. Buffers travel
// as *[]byte: sync.Pool stores interface values, and boxing a bare
// slice would allocate on every Put.
func NewBuffers(size int) *Pool[*[]byte] {
	return New(func() *[]byte {
		buf := make([]byte, size)
		return &buf
	})
}

// Get retrieves an item from the pool.
func (p *Pool[T]) Get() T {
	return p.internal.Get().(T)
}

// Put returns an item to the pool.
func (p *Pool[T]) Put(item T) {
	p.internal.Put(item)
}
