package trace

import (
	"strconv"
	"strings"
	"sync/atomic"

	"evaltrace/internal/source"
)

const (
	stringFile    = "<string>"
	stdinFile     = "<stdin>"
	undefinedFile = "<undefined>"
	noType        = "n/a"

	// TopLevelType tags the root expression of an evaluation.
	TopLevelType = "top-level"
)

var globalRecordID uint64

// NextRecordID returns a process-wide unique record id.
func NextRecordID() uint64 {
	return atomic.AddUint64(&globalRecordID, 1)
}

// Record is the normalized description of one instrumented expression.
type Record struct {
	ID      uint64
	File    string
	Type    string // empty when the evaluator supplied no tag
	Line    uint32
	Column  uint32
	Invalid bool
}

// NewRecord normalizes a resolved position. Inline strings and stdin
// expressions have no stable file/line mapping, so they are reported under a
// fixed file name with line and column zeroed.
func NewRecord(pos source.Pos, exprType string) Record {
	rec := Record{
		ID:     NextRecordID(),
		File:   pos.File,
		Type:   exprType,
		Line:   pos.Line,
		Column: pos.Column,
	}
	switch pos.Origin {
	case source.OriginString:
		rec.File, rec.Line, rec.Column = stringFile, 0, 0
	case source.OriginStdin:
		rec.File, rec.Line, rec.Column = stdinFile, 0, 0
	}
	return rec
}

// String renders "<id> <file> <type> <line>", with " invalid" appended for
// invalidated records.
func (r Record) String() string {
	var sb strings.Builder
	sb.Grow(len(r.File) + len(r.Type) + 32)
	sb.WriteString(strconv.FormatUint(r.ID, 10))
	sb.WriteByte(' ')
	if r.File != "" {
		sb.WriteString(r.File)
	} else {
		sb.WriteString(undefinedFile)
	}
	sb.WriteByte(' ')
	if r.Type != "" {
		sb.WriteString(r.Type)
	} else {
		sb.WriteString(noType)
	}
	sb.WriteByte(' ')
	sb.WriteString(strconv.FormatUint(uint64(r.Line), 10))
	if r.Invalid {
		sb.WriteString(" invalid")
	}
	return sb.String()
}
