package probe

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	// ErrShortRecord is returned for samples too small to hold any record.
	ErrShortRecord = errors.New("probe: short record")
)

// Record is a decoded probe hit, independent of the schema it arrived in.
type Record struct {
	Dir    Direction
	TS     uint64
	ExprID uint64
	Line   uint32
	Column uint32
	Probe  string // full probe name, e.g. "let__in"; empty for split exits
	File   string
}

// ExprType returns the expression part of the probe name.
func (r Record) ExprType() string {
	base, _ := SplitName(r.Probe)
	return base
}

// NewEntry builds the full record for an entry hit.
func NewEntry(ts, exprID uint64, exprType, file string, line, column uint32) Event {
	ev := Event{TS: ts, ExprID: exprID, Line: line, Column: column}
	ev.setProbe(exprType, DirEntry)
	ev.SetFile(file)
	return ev
}

// NewCombinedExit builds the full-size exit record of the combined schema.
func NewCombinedExit(ts, exprID uint64, exprType string) Event {
	ev := Event{TS: ts, ExprID: exprID}
	ev.setProbe(exprType, DirExit)
	return ev
}

// field offsets inside the wire struct
const (
	offTS        = 0
	offExprID    = 8
	offLine      = 16
	offColumn    = 20
	offProbeName = 24
	offFile      = offProbeName + ProbeNameSize
)

// Encode returns the little-endian wire form of ev.
func (e *Event) Encode() []byte {
	var buf [EventSize]byte
	e.encodeTo(&buf)
	return buf[:]
}

// encodeTo writes the wire form into buf, padding included.
func (e *Event) encodeTo(buf *[EventSize]byte) {
	binary.LittleEndian.PutUint64(buf[offTS:], e.TS)
	binary.LittleEndian.PutUint64(buf[offExprID:], e.ExprID)
	binary.LittleEndian.PutUint32(buf[offLine:], e.Line)
	binary.LittleEndian.PutUint32(buf[offColumn:], e.Column)
	copy(buf[offProbeName:offFile], e.ProbeName[:])
	copy(buf[offFile:eventPackedSize], e.File[:])
	clear(buf[eventPackedSize:])
}

func decodeEvent(raw []byte) Event {
	var ev Event
	ev.TS = binary.LittleEndian.Uint64(raw[offTS:])
	ev.ExprID = binary.LittleEndian.Uint64(raw[offExprID:])
	ev.Line = binary.LittleEndian.Uint32(raw[offLine:])
	ev.Column = binary.LittleEndian.Uint32(raw[offColumn:])
	copy(ev.ProbeName[:], raw[offProbeName:offFile])
	copy(ev.File[:], raw[offFile:eventPackedSize])
	return ev
}

// Encode returns the little-endian wire form of ev.
func (e *ExitEvent) Encode() []byte {
	var buf [ExitEventSize]byte
	e.encodeTo(&buf)
	return buf[:]
}

func (e *ExitEvent) encodeTo(buf *[ExitEventSize]byte) {
	binary.LittleEndian.PutUint64(buf[offTS:], e.TS)
	binary.LittleEndian.PutUint64(buf[offExprID:], e.ExprID)
}

// Record converts the wire struct into a Record. The direction comes from
// the probe name suffix; hits without one are exits when they carry no
// file, the way the kernel side fills exit probes.
func (e *Event) Record() Record {
	rec := Record{
		TS:     e.TS,
		ExprID: e.ExprID,
		Line:   e.Line,
		Column: e.Column,
		Probe:  e.ProbeNameString(),
		File:   e.FileString(),
	}
	_, rec.Dir = SplitName(rec.Probe)
	if rec.Dir == 0 {
		rec.Dir = DirEntry
		if rec.File == "" {
			rec.Dir = DirExit
		}
	}
	return rec
}

// DecodeSample decodes one raw sample. Samples at least as large as the
// packed full struct are full events; 16 bytes and up are split exits.
// Perf may pad samples, so trailing bytes are ignored.
func DecodeSample(raw []byte) (Record, error) {
	switch {
	case len(raw) >= eventPackedSize:
		ev := decodeEvent(raw)
		return ev.Record(), nil
	case len(raw) >= ExitEventSize:
		return Record{
			Dir:    DirExit,
			TS:     binary.LittleEndian.Uint64(raw[0:8]),
			ExprID: binary.LittleEndian.Uint64(raw[8:16]),
		}, nil
	default:
		return Record{}, fmt.Errorf("%w: %d bytes", ErrShortRecord, len(raw))
	}
}
