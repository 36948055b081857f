package trace

import (
	"context"
	"testing"

	"evaltrace/internal/source"
)

// countingExpr records how often the instrumentation point looks at it.
type countingExpr struct {
	pos   source.PosIdx
	typ   string
	calls int
}

func (e *countingExpr) Pos() source.PosIdx {
	e.calls++
	return e.pos
}

func (e *countingExpr) ExprType() string {
	e.calls++
	return e.typ
}

type countingResolver struct {
	inner *source.PosTable
	calls int
}

func (r *countingResolver) Resolve(idx source.PosIdx) source.Pos {
	r.calls++
	return r.inner.Resolve(idx)
}

func TestPointDisabledDoesNothing(t *testing.T) {
	pt := source.NewPosTable()
	id := pt.Add(source.OriginFile, "/pkgs/foo.nix", []byte("x"))
	res := &countingResolver{inner: pt}
	e := &countingExpr{pos: pt.At(id, 0), typ: "var"}
	before := NextRecordID()

	for i := 0; i < 10000; i++ {
		g := Point(nil, res, e)
		if g.Active() {
			t.Fatalf("disabled point returned an active guard")
		}
		g.End()
		PointTop(nil, res, e).End()
		PointAt(nil, source.Pos{}, "var").End()
	}

	if e.calls != 0 || res.calls != 0 {
		t.Fatalf("disabled point inspected expression %d times, resolver %d times", e.calls, res.calls)
	}
	if after := NextRecordID(); after != before+1 {
		t.Fatalf("disabled point built %d records", after-before-1)
	}
}

func TestPointDisabledReadsNoClock(t *testing.T) {
	clock := &stepClock{}
	saved := MonotonicClock
	MonotonicClock = clock
	defer func() { MonotonicClock = saved }()

	b, closer, err := New(Config{Enabled: false})
	if err != nil || b != nil {
		t.Fatalf("New(disabled) = %v, %v; want nil buffer", b, err)
	}
	defer closer.Close()

	for i := 0; i < 10000; i++ {
		PointAt(b, source.Pos{Origin: source.OriginFile, File: "a.nix"}, "let").End()
	}
	if clock.Reads() != 0 {
		t.Fatalf("disabled points read the clock %d times", clock.Reads())
	}

	enabled := NewBuffer()
	PointAt(enabled, source.Pos{Origin: source.OriginFile, File: "a.nix"}, "let").End()
	if clock.Reads() != 2 {
		t.Fatalf("enabled point read the clock %d times, want 2", clock.Reads())
	}
}

func TestPointEnabledResolvesPosition(t *testing.T) {
	pt := source.NewPosTable()
	id := pt.Add(source.OriginFile, "/pkgs/foo.nix", []byte("let\n  a = 1;\nin a\n"))
	b := NewBuffer()

	g := Point(b, pt, &countingExpr{pos: pt.At(id, 6), typ: "let"})
	g.End()
	top := PointTop(b, pt, &countingExpr{pos: pt.At(id, 0), typ: "let"})
	top.End()

	snap := b.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("snapshot has %d entries, want 2", len(snap))
	}
	if r := snap[0].Data; r.File != "/pkgs/foo.nix" || r.Line != 2 || r.Column != 3 || r.Type != "let" {
		t.Fatalf("record = %+v", r)
	}
	if r := snap[1].Data; r.Type != TopLevelType || r.Line != 1 {
		t.Fatalf("top-level record = %+v", r)
	}
}

func TestPointStringOrigin(t *testing.T) {
	pt := source.NewPosTable()
	id := pt.AddString("let x = 1;\n in x")
	b := NewBuffer()
	Point(b, pt, &countingExpr{pos: pt.At(id, 13), typ: "var"}).End()

	r := b.Snapshot()[0].Data
	if r.File != "<string>" || r.Line != 0 {
		t.Fatalf("record = %+v, want <string> at line 0", r)
	}
}

func TestBufferContext(t *testing.T) {
	if FromContext(context.Background()) != nil {
		t.Fatalf("empty context carries a buffer")
	}
	b := NewBuffer()
	ctx := WithBuffer(context.Background(), b)
	if FromContext(ctx) != b {
		t.Fatalf("FromContext did not return the attached buffer")
	}
}
