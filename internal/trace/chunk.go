package trace

import "sync/atomic"

// DefaultChunkSize is the number of slots in a chunk unless configured otherwise.
const DefaultChunkSize = 4096

// slot publication states, kept in the low bits of Entry.state
const (
	slotClaimed uint32 = iota // cursor advanced, not yet stamped
	slotEntered               // entry stamp and record visible
	slotExiting               // exit stamp being written
	slotExited                // exit stamp visible

	slotPhaseMask uint32 = 0xff
	slotInvalid   uint32 = 1 << 8 // set by Guard.Invalidate
)

// Entry is one event slot: the entry and exit timestamps of an instrumented
// expression and its record. Timestamps are monotonic nanoseconds.
type Entry struct {
	TSEntry uint64
	TSExit  uint64
	Data    Record

	state uint32
}

// Complete reports whether the exit stamp has been written.
func (e *Entry) Complete() bool {
	return atomic.LoadUint32(&e.state)&slotPhaseMask == slotExited
}

// setPhase moves the slot from phase from to phase to, keeping its flags.
// It reports false if the slot is not in phase from.
func (e *Entry) setPhase(from, to uint32) bool {
	for {
		s := atomic.LoadUint32(&e.state)
		if s&slotPhaseMask != from {
			return false
		}
		if atomic.CompareAndSwapUint32(&e.state, s, s&^slotPhaseMask|to) {
			return true
		}
	}
}

// setFlag sets flag on the slot state.
func (e *Entry) setFlag(flag uint32) {
	for {
		s := atomic.LoadUint32(&e.state)
		if s&flag != 0 || atomic.CompareAndSwapUint32(&e.state, s, s|flag) {
			return
		}
	}
}

// Duration returns TSExit-TSEntry for complete entries and 0 otherwise.
func (e *Entry) Duration() uint64 {
	if !e.Complete() || e.TSExit < e.TSEntry {
		return 0
	}
	return e.TSExit - e.TSEntry
}

// Chunk is a fixed block of pre-allocated slots.
type Chunk struct {
	entries []Entry
	pos     atomic.Int64
	index   int
}

func newChunk(size, index int) *Chunk {
	return &Chunk{entries: make([]Entry, size), index: index}
}

// Cap returns the physical number of slots.
func (c *Chunk) Cap() int {
	return len(c.entries)
}

// Len returns the number of claimed slots.
func (c *Chunk) Len() int {
	return int(c.pos.Load())
}

// Index returns the chunk's position in its buffer.
func (c *Chunk) Index() int {
	return c.index
}

// HasCapacity reports whether another slot can be claimed. The last slot is
// kept in reserve, so a chunk counts as full at Cap()-1 claimed slots.
func (c *Chunk) HasCapacity() bool {
	return c.pos.Load() < int64(len(c.entries)-1)
}

// allocate claims the next slot, or returns nil when the chunk is full.
func (c *Chunk) allocate() *Entry {
	limit := int64(len(c.entries) - 1)
	for {
		pos := c.pos.Load()
		if pos >= limit {
			return nil
		}
		if c.pos.CompareAndSwap(pos, pos+1) {
			return &c.entries[pos]
		}
	}
}

// Entries returns a copy of the stamped slots in allocation order. Slots that
// are claimed but not yet stamped are skipped.
func (c *Chunk) Entries() []Entry {
	n := c.Len()
	out := make([]Entry, 0, n)
	for i := 0; i < n; i++ {
		e := &c.entries[i]
		s := atomic.LoadUint32(&e.state)
		var cp Entry
		switch s & slotPhaseMask {
		case slotEntered, slotExiting:
			cp = Entry{TSEntry: e.TSEntry, Data: e.Data, state: slotEntered}
		case slotExited:
			cp = Entry{TSEntry: e.TSEntry, TSExit: e.TSExit, Data: e.Data, state: slotExited}
		default:
			continue
		}
		if s&slotInvalid != 0 {
			cp.Data.Invalid = true
		}
		out = append(out, cp)
	}
	return out
}
