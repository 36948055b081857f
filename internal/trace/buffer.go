package trace

import (
	"sync"
	"sync/atomic"
)

// ProbeSink receives a copy of every guard's entry and exit, keyed by the
// record id. Implementations must not block and must not fail loudly.
type ProbeSink interface {
	Enter(ts, exprID uint64, exprType, file string, line, column uint32)
	Exit(ts, exprID uint64, exprType string)
}

// Buffer is an append-only sequence of chunks. It is safe for concurrent use.
type Buffer struct {
	mu      sync.Mutex
	chunks  []*Chunk // guarded by mu
	current atomic.Pointer[Chunk]
	size    int
	clock   Clock
	sink    ProbeSink
}

// Option configures a Buffer.
type Option func(*Buffer)

// WithChunkSize sets the number of slots per chunk. Sizes below 2 leave no
// usable slot and fall back to DefaultChunkSize.
func WithChunkSize(size int) Option {
	return func(b *Buffer) {
		if size >= 2 {
			b.size = size
		}
	}
}

// WithClock replaces the monotonic clock.
func WithClock(c Clock) Option {
	return func(b *Buffer) {
		if c != nil {
			b.clock = c
		}
	}
}

// WithProbeSink mirrors every guard to s.
func WithProbeSink(s ProbeSink) Option {
	return func(b *Buffer) {
		b.sink = s
	}
}

// NewBuffer creates a buffer with its first chunk already allocated.
func NewBuffer(opts ...Option) *Buffer {
	b := &Buffer{
		size:  DefaultChunkSize,
		clock: MonotonicClock,
	}
	for _, opt := range opts {
		opt(b)
	}
	first := newChunk(b.size, 0)
	b.chunks = append(b.chunks, first)
	b.current.Store(first)
	return b
}

// Create claims a slot for rec, allocating a new chunk first when the current
// one is full, and returns the guard stamping it.
func (b *Buffer) Create(rec Record) Guard {
	for {
		c := b.current.Load()
		if e := c.allocate(); e != nil {
			return b.enter(e, rec)
		}
		b.grow(c)
	}
}

// grow appends a chunk unless another caller already replaced full.
func (b *Buffer) grow(full *Chunk) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.current.Load() != full {
		return
	}
	c := newChunk(b.size, len(b.chunks))
	b.chunks = append(b.chunks, c)
	b.current.Store(c)
}

// ChunkSize returns the configured slots per chunk.
func (b *Buffer) ChunkSize() int {
	return b.size
}

// Chunks returns the chunks in allocation order.
func (b *Buffer) Chunks() []*Chunk {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]*Chunk, len(b.chunks))
	copy(out, b.chunks)
	return out
}

// Current returns the chunk new slots are taken from.
func (b *Buffer) Current() *Chunk {
	return b.current.Load()
}

// Len returns the number of claimed slots across all chunks.
func (b *Buffer) Len() int {
	n := 0
	for _, c := range b.Chunks() {
		n += c.Len()
	}
	return n
}

// Snapshot returns a copy of all stamped entries in allocation order.
func (b *Buffer) Snapshot() []Entry {
	chunks := b.Chunks()
	out := make([]Entry, 0, len(chunks)*(b.size-1))
	for _, c := range chunks {
		out = append(out, c.Entries()...)
	}
	return out
}
