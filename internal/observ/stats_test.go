package observ

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestReportOrdersByTotal(t *testing.T) {
	s := NewStats()
	s.Add(Sample{Type: "let", Duration: 2 * time.Millisecond})
	s.Add(Sample{Type: "call", Duration: 5 * time.Millisecond})
	s.Add(Sample{Type: "let", Duration: 4 * time.Millisecond})
	s.Add(Sample{Duration: time.Millisecond})
	s.AddOpen()

	r := s.Report()
	if r.Count != 4 || r.Open != 1 {
		t.Fatalf("count %d open %d, want 4 and 1", r.Count, r.Open)
	}
	if len(r.Types) != 3 {
		t.Fatalf("types = %d, want 3", len(r.Types))
	}
	let := r.Types[0]
	if let.Type != "let" || let.Count != 2 || let.TotalMS != 6 || let.MeanMS != 3 || let.MaxMS != 4 {
		t.Fatalf("first row = %+v, want let totals", let)
	}
	if r.Types[1].Type != "call" || r.Types[2].Type != "n/a" {
		t.Fatalf("order = %s, %s", r.Types[1].Type, r.Types[2].Type)
	}
}

func TestRenderAlignsColumns(t *testing.T) {
	s := NewStats()
	s.Add(Sample{Type: "a-very-long-expression-type-name", Duration: time.Millisecond})
	s.Add(Sample{Type: "if", Duration: time.Millisecond})
	s.AddInvalid()

	var buf bytes.Buffer
	if err := s.Report().Render(&buf, false); err != nil {
		t.Fatalf("Render: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("rendered %d lines, want 4:\n%s", len(lines), buf.String())
	}
	if len(lines[1]) != len(lines[2]) || len(lines[0]) != len(lines[1]) {
		t.Fatalf("rows are not aligned:\n%s", buf.String())
	}
	if !strings.Contains(lines[1], "...") {
		t.Fatalf("long type not truncated: %q", lines[1])
	}
	if lines[3] != "2 expressions, 1 invalid" {
		t.Fatalf("footer = %q", lines[3])
	}
}
