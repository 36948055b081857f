package trace

import (
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// DumpSchemaVersion is written into every dump; bump it when Dump changes.
const DumpSchemaVersion uint16 = 1

// Dump is the serialized form of a buffer.
type Dump struct {
	Schema    uint16      `msgpack:"schema"`
	ChunkSize int         `msgpack:"chunk_size"`
	Chunks    int         `msgpack:"chunks"`
	Entries   []DumpEntry `msgpack:"entries"`
}

// DumpEntry is one serialized slot.
type DumpEntry struct {
	TSEntry uint64 `msgpack:"ts_entry"`
	TSExit  uint64 `msgpack:"ts_exit"`
	Open    bool   `msgpack:"open,omitempty"`
	ID      uint64 `msgpack:"id"`
	File    string `msgpack:"file"`
	Type    string `msgpack:"type,omitempty"`
	Line    uint32 `msgpack:"line"`
	Column  uint32 `msgpack:"column,omitempty"`
	Invalid bool   `msgpack:"invalid,omitempty"`
}

// Entry converts a dumped slot back into an Entry.
func (d DumpEntry) Entry() Entry {
	e := Entry{
		TSEntry: d.TSEntry,
		TSExit:  d.TSExit,
		Data: Record{
			ID:      d.ID,
			File:    d.File,
			Type:    d.Type,
			Line:    d.Line,
			Column:  d.Column,
			Invalid: d.Invalid,
		},
		state: slotExited,
	}
	if d.Open {
		e.TSExit = 0
		e.state = slotEntered
	}
	return e
}

// Dump writes a snapshot of the buffer to w in msgpack.
func (b *Buffer) Dump(w io.Writer) error {
	entries := b.Snapshot()
	d := Dump{
		Schema:    DumpSchemaVersion,
		ChunkSize: b.size,
		Chunks:    len(b.Chunks()),
		Entries:   make([]DumpEntry, 0, len(entries)),
	}
	for _, e := range entries {
		d.Entries = append(d.Entries, DumpEntry{
			TSEntry: e.TSEntry,
			TSExit:  e.TSExit,
			Open:    !e.Complete(),
			ID:      e.Data.ID,
			File:    e.Data.File,
			Type:    e.Data.Type,
			Line:    e.Data.Line,
			Column:  e.Data.Column,
			Invalid: e.Data.Invalid,
		})
	}

	enc := msgpack.NewEncoder(w)
	if err := enc.Encode(&d); err != nil {
		return fmt.Errorf("encode trace dump: %w", err)
	}
	return nil
}

// ReadDump decodes a dump written by Buffer.Dump.
func ReadDump(r io.Reader) (*Dump, error) {
	var d Dump
	if err := msgpack.NewDecoder(r).Decode(&d); err != nil {
		return nil, fmt.Errorf("decode trace dump: %w", err)
	}
	if d.Schema != DumpSchemaVersion {
		return nil, fmt.Errorf("unsupported trace dump schema %d (want %d)", d.Schema, DumpSchemaVersion)
	}
	return &d, nil
}

// EntryList converts all dumped slots back into entries.
func (d *Dump) EntryList() []Entry {
	out := make([]Entry, len(d.Entries))
	for i, de := range d.Entries {
		out[i] = de.Entry()
	}
	return out
}
