package main

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"evaltrace/internal/probe"
)

// blockingSource yields its records, then blocks until closed.
type blockingSource struct {
	records []probe.Record
	closed  chan struct{}
	once    sync.Once
}

func newBlockingSource(records ...probe.Record) *blockingSource {
	return &blockingSource{records: records, closed: make(chan struct{})}
}

func (s *blockingSource) Read() (probe.Record, error) {
	if len(s.records) > 0 {
		rec := s.records[0]
		s.records = s.records[1:]
		return rec, nil
	}
	<-s.closed
	return probe.Record{}, io.EOF
}

func (s *blockingSource) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

func TestRunCollectDrainsStream(t *testing.T) {
	var stream bytes.Buffer
	w, err := probe.NewWriter(&stream, probe.SchemaSplit)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	w.Enter(100, 1, "call", "/src/a.nix", 3, 5)
	w.Enter(110, 2, "select", "/src/a.nix", 4, 7)
	w.Exit(130, 2, "select")
	w.Exit(200, 1, "call")
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	src, err := probe.NewReader(&stream)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}

	var out bytes.Buffer
	n, err := runCollect(context.Background(), src, &out, zap.NewNop())
	if err != nil {
		t.Fatalf("runCollect: %v", err)
	}
	if n != 4 {
		t.Fatalf("collected %d events, want 4", n)
	}
	want := "100 1 call__in 3:5 /src/a.nix\n" +
		"110 2 select__in 4:7 /src/a.nix\n" +
		"130 2 __out 0:0 \n" +
		"200 1 __out 0:0 \n"
	if out.String() != want {
		t.Fatalf("output:\n%s\nwant:\n%s", out.String(), want)
	}

	// Collected lines fold into self-time stacks.
	var folded bytes.Buffer
	folder := probe.NewFolder(&folded)
	for _, line := range strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n") {
		rec, err := probe.ParseLine(line)
		if err != nil {
			t.Fatalf("ParseLine(%q): %v", line, err)
		}
		if err := folder.Push(rec); err != nil {
			t.Fatalf("Push: %v", err)
		}
	}
	wantFolded := "call:/src/a.nix:3:5;select:/src/a.nix:4:7 20\n" +
		"call:/src/a.nix:3:5 80\n"
	if folded.String() != wantFolded {
		t.Fatalf("folded:\n%s\nwant:\n%s", folded.String(), wantFolded)
	}
}

func TestRunCollectStopsOnCancel(t *testing.T) {
	src := newBlockingSource(
		probe.Record{Dir: probe.DirEntry, TS: 5, ExprID: 9, Probe: "let__in", File: "f.nix", Line: 1, Column: 1},
	)
	ctx, cancel := context.WithCancel(context.Background())

	var out bytes.Buffer
	done := make(chan error, 1)
	var n int
	go func() {
		var err error
		n, err = runCollect(ctx, src, &out, zap.NewNop())
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("runCollect: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("runCollect did not stop after cancel")
	}
	if n != 1 || out.String() != "5 9 let__in 1:1 f.nix\n" {
		t.Fatalf("collected %d events: %q", n, out.String())
	}
}
