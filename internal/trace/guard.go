package trace

import "sync/atomic"

// Guard holds one claimed slot for the duration of an evaluation step.
// The zero Guard is inactive and every method on it is a no-op, which is what
// Point returns when tracing is disabled.
//
// End must run on every exit path; use it with defer:
//
//	g := trace.Point(buf, positions, expr)
//	defer g.End()
type Guard struct {
	buf   *Buffer
	entry *Entry
}

func (b *Buffer) enter(e *Entry, rec Record) Guard {
	e.Data = rec
	e.TSEntry = b.clock.Now()
	atomic.StoreUint32(&e.state, slotEntered)
	if b.sink != nil {
		b.sink.Enter(e.TSEntry, rec.ID, rec.Type, rec.File, rec.Line, rec.Column)
	}
	return Guard{buf: b, entry: e}
}

// Active reports whether the guard holds a slot.
func (g Guard) Active() bool {
	return g.entry != nil
}

// End stamps the exit time. Only the first call has an effect.
func (g Guard) End() {
	if g.entry == nil {
		return
	}
	e := g.entry
	if !e.setPhase(slotEntered, slotExiting) {
		return
	}
	e.TSExit = g.buf.clock.Now()
	e.setPhase(slotExiting, slotExited)
	if g.buf.sink != nil {
		g.buf.sink.Exit(e.TSExit, e.Data.ID, e.Data.Type)
	}
}

// Entry returns the slot so the caller can read or adjust its record while
// the step runs. It returns nil for an inactive guard. Writes to Data are not
// synchronized with concurrent snapshots; Complete is, and Invalidate is the
// synchronized way to flag the record.
func (g Guard) Entry() *Entry {
	return g.entry
}

// ID returns the correlation id of the guarded record, 0 when inactive.
func (g Guard) ID() uint64 {
	if g.entry == nil {
		return 0
	}
	return g.entry.Data.ID
}

// Invalidate marks the guarded record as unreliable, e.g. when the step was
// abandoned in a way that makes its timing meaningless. The flag lives in
// the slot state, so it is safe against concurrent snapshots; snapshots and
// dumps report it as Data.Invalid.
func (g Guard) Invalidate() {
	if g.entry == nil {
		return
	}
	g.entry.setFlag(slotInvalid)
}
