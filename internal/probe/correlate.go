package probe

import "sort"

// Span is an entry/exit pair matched by expression id.
type Span struct {
	ExprID  uint64
	Type    string
	File    string
	Line    uint32
	Column  uint32
	Entry   uint64
	Exit    uint64
	Invalid bool // exit stamped before entry
}

// Duration returns the span length in nanoseconds, 0 for invalid spans.
func (s Span) Duration() uint64 {
	if s.Invalid {
		return 0
	}
	return s.Exit - s.Entry
}

// Correlation is the result of matching a record stream.
type Correlation struct {
	Spans            []Span // ordered by entry time
	UnmatchedEntries int
	UnmatchedExits   int
}

// Correlate pairs entries and exits sharing an expression id. Records may
// arrive in any order across ids; for one id the entry must precede its exit
// in the input. A second entry for a pending id replaces the first, which
// is then counted as unmatched.
func Correlate(records []Record) Correlation {
	pending := make(map[uint64]Record)
	var out Correlation
	for _, rec := range records {
		switch rec.Dir {
		case DirEntry:
			if _, dup := pending[rec.ExprID]; dup {
				out.UnmatchedEntries++
			}
			pending[rec.ExprID] = rec
		case DirExit:
			in, ok := pending[rec.ExprID]
			if !ok {
				out.UnmatchedExits++
				continue
			}
			delete(pending, rec.ExprID)
			out.Spans = append(out.Spans, Span{
				ExprID:  rec.ExprID,
				Type:    in.ExprType(),
				File:    in.File,
				Line:    in.Line,
				Column:  in.Column,
				Entry:   in.TS,
				Exit:    rec.TS,
				Invalid: rec.TS < in.TS,
			})
		}
	}
	out.UnmatchedEntries += len(pending)
	sort.SliceStable(out.Spans, func(i, j int) bool {
		return out.Spans[i].Entry < out.Spans[j].Entry
	})
	return out
}
