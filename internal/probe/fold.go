package probe

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

type frame struct {
	rec      Record
	children uint64
}

// Folder turns an ordered probe stream into folded stacks, one line per
// completed expression:
//
//	frame;frame;frame <self_ns>
//
// A frame is "<type>:<file>:<line>:<column>". The sample value is the time
// spent in the expression minus the time of its traced children, so the
// lines can be summed by flame graph tools without double counting.
type Folder struct {
	w     io.Writer
	stack []frame
	lines int
}

// NewFolder writes folded stacks to w.
func NewFolder(w io.Writer) *Folder {
	return &Folder{w: w}
}

// Push feeds the next record. Exits must match the innermost open entry.
func (f *Folder) Push(rec Record) error {
	switch rec.Dir {
	case DirEntry:
		f.stack = append(f.stack, frame{rec: rec})
		return nil
	case DirExit:
	default:
		return fmt.Errorf("record for expression %d has no direction", rec.ExprID)
	}

	if len(f.stack) == 0 {
		return fmt.Errorf("exit of expression %d at %d has no open entry", rec.ExprID, rec.TS)
	}
	top := f.stack[len(f.stack)-1]
	if top.rec.ExprID != rec.ExprID {
		return fmt.Errorf("exit of expression %d does not match open expression %d", rec.ExprID, top.rec.ExprID)
	}
	if rec.TS < top.rec.TS {
		return fmt.Errorf("exit of expression %d at %d precedes its entry at %d", rec.ExprID, rec.TS, top.rec.TS)
	}

	total := rec.TS - top.rec.TS
	self := uint64(0)
	if total > top.children {
		self = total - top.children
	}
	if _, err := io.WriteString(f.w, f.stackLine()+" "+strconv.FormatUint(self, 10)+"\n"); err != nil {
		return err
	}
	f.lines++

	f.stack = f.stack[:len(f.stack)-1]
	if n := len(f.stack); n > 0 {
		f.stack[n-1].children += total
	}
	return nil
}

// Depth returns the number of open entries.
func (f *Folder) Depth() int {
	return len(f.stack)
}

// Lines returns the number of folded lines written.
func (f *Folder) Lines() int {
	return f.lines
}

func (f *Folder) stackLine() string {
	var sb strings.Builder
	for i, fr := range f.stack {
		if i > 0 {
			sb.WriteByte(';')
		}
		fmt.Fprintf(&sb, "%s:%s:%d:%d", fr.rec.ExprType(), fr.rec.File, fr.rec.Line, fr.rec.Column)
	}
	return sb.String()
}
