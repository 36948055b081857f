package trace

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"evaltrace/internal/probe"
	"evaltrace/internal/source"
)

func TestNewDisabled(t *testing.T) {
	b, closer, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if b != nil {
		t.Fatalf("default config enabled tracing")
	}
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestNewRejectsChunkSizeOne(t *testing.T) {
	if _, _, err := New(Config{Enabled: true, ChunkSize: 1}); err == nil {
		t.Fatalf("New(chunk size 1) succeeded")
	}
}

func TestNewWithProbeStreamCorrelates(t *testing.T) {
	var out bytes.Buffer
	b, closer, err := New(Config{Enabled: true, ChunkSize: 16, Output: &out, Schema: probe.SchemaSplit})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	outer := PointAt(b, source.Pos{Origin: source.OriginFile, File: "/pkgs/foo.nix", Line: 42, Column: 2}, "let")
	inner := PointAt(b, source.Pos{Origin: source.OriginStdin, File: "-", Line: 9}, "call")
	inner.End()
	outer.End()
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := probe.NewReader(&out)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	var recs []probe.Record
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		recs = append(recs, rec)
	}
	if len(recs) != 4 {
		t.Fatalf("probe stream has %d records, want 4", len(recs))
	}

	c := probe.Correlate(recs)
	if len(c.Spans) != 2 || c.UnmatchedEntries != 0 || c.UnmatchedExits != 0 {
		t.Fatalf("correlation = %+v", c)
	}
	byID := make(map[uint64]probe.Span)
	for _, s := range c.Spans {
		byID[s.ExprID] = s
	}
	for _, e := range b.Snapshot() {
		s, ok := byID[e.Data.ID]
		if !ok {
			t.Fatalf("record %d missing from probe stream", e.Data.ID)
		}
		if s.Entry != e.TSEntry || s.Exit != e.TSExit {
			t.Fatalf("record %d: probe [%d,%d], buffer [%d,%d]", e.Data.ID, s.Entry, s.Exit, e.TSEntry, e.TSExit)
		}
		if s.File != e.Data.File || s.Line != e.Data.Line {
			t.Fatalf("record %d: probe %s:%d, buffer %s:%d", e.Data.ID, s.File, s.Line, e.Data.File, e.Data.Line)
		}
	}
	if s := byID[inner.ID()]; s.File != "<stdin>" || s.Line != 0 || s.Type != "call" {
		t.Fatalf("stdin span = %+v", s)
	}
}

func TestNewWritesProbeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "probes.evtp")
	b, closer, err := New(Config{Enabled: true, ProbeOutput: path, Schema: probe.SchemaCombined})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	PointAt(b, source.Pos{Origin: source.OriginFile, File: "a.nix", Line: 1}, "if").End()
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open probe file: %v", err)
	}
	defer f.Close()
	r, err := probe.NewReader(f)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	if r.Header().Schema != probe.SchemaCombined {
		t.Fatalf("schema = %v, want combined", r.Header().Schema)
	}
}

func TestProbeSinkNeverBlocksEvaluator(t *testing.T) {
	pr, pw := io.Pipe()
	b, closer, err := New(Config{Enabled: true, ChunkSize: 256, Output: pw, QueueSize: 64})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	const steps = 10000
	done := make(chan struct{})
	go func() {
		defer close(done)
		pos := source.Pos{Origin: source.OriginFile, File: "/pkgs/foo.nix", Line: 1, Column: 1}
		for i := 0; i < steps; i++ {
			g := PointAt(b, pos, "call")
			g.End()
		}
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("evaluation blocked on a probe reader that never reads")
	}
	if b.Len() != steps {
		t.Fatalf("buffer holds %d entries, want %d", b.Len(), steps)
	}

	sink := closer.(*probe.Writer)
	if sink.Dropped() == 0 {
		t.Fatalf("Dropped() = 0, want overflow counted")
	}
	_ = pr.Close()
	if err := closer.Close(); err == nil {
		t.Fatalf("Close() = nil, want the closed pipe error")
	}
}

func TestProbeSinkAllocationFree(t *testing.T) {
	b, closer, err := New(Config{Enabled: true, Output: io.Discard, QueueSize: 1 << 16})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer closer.Close()

	pos := source.Pos{Origin: source.OriginFile, File: "/pkgs/foo.nix", Line: 3, Column: 7}
	allocs := testing.AllocsPerRun(1000, func() {
		g := PointAt(b, pos, "select")
		g.End()
	})
	if allocs != 0 {
		t.Fatalf("entry and exit through the probe sink allocate %v times", allocs)
	}
}
