package probe

import (
	"fmt"
	"strings"
)

const (
	// ProbeNameSize is the capacity of the probe_name field.
	ProbeNameSize = 25
	// FileSize is the capacity of the file field, NUL terminator included.
	FileSize = 128

	// EventSize is sizeof(struct trace_event) including tail padding.
	EventSize = 184
	// eventPackedSize is the size without tail padding.
	eventPackedSize = 8 + 8 + 4 + 4 + ProbeNameSize + FileSize
	// ExitEventSize is the size of the split-schema exit record.
	ExitEventSize = 16
)

// Event is the full probe record.
type Event struct {
	TS        uint64
	ExprID    uint64
	Line      uint32
	Column    uint32
	ProbeName [ProbeNameSize]byte
	File      [FileSize]byte
	_         [EventSize - eventPackedSize]byte
}

// ExitEvent is the compact exit record of the split schema.
type ExitEvent struct {
	TS     uint64
	ExprID uint64
}

// SetProbeName copies name into the probe_name field. Names longer than the
// field fill it completely and carry no NUL terminator, like strcpy into the
// kernel struct would after truncation.
func (e *Event) SetProbeName(name string) {
	e.ProbeName = [ProbeNameSize]byte{}
	copy(e.ProbeName[:], name)
}

// SetFile copies path into the file field, keeping at most FileSize-1 bytes
// so the field stays NUL terminated, as bpf_probe_read_user_str does.
func (e *Event) SetFile(path string) {
	e.File = [FileSize]byte{}
	if len(path) > FileSize-1 {
		path = path[:FileSize-1]
	}
	copy(e.File[:], path)
}

// ProbeNameString returns the probe name up to the first NUL.
func (e *Event) ProbeNameString() string {
	return cstring(e.ProbeName[:])
}

// FileString returns the file path up to the first NUL.
func (e *Event) FileString() string {
	return cstring(e.File[:])
}

func cstring(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

// Direction tells entry and exit hits apart.
type Direction uint8

const (
	DirEntry Direction = iota + 1
	DirExit
)

// String returns the probe name suffix of d.
func (d Direction) String() string {
	switch d {
	case DirEntry:
		return "in"
	case DirExit:
		return "out"
	default:
		return "unknown"
	}
}

// setProbe writes Name(exprType, dir) into the probe_name field without
// building the string.
func (e *Event) setProbe(exprType string, dir Direction) {
	e.ProbeName = [ProbeNameSize]byte{}
	if exprType == "" {
		exprType = "unknown"
	}
	suffix := dir.String()
	limit := ProbeNameSize - 2 - len(suffix)
	n := min(len(exprType), limit)
	for i := 0; i < n; i++ {
		c := exprType[i]
		if c == '-' {
			c = '_'
		}
		e.ProbeName[i] = c
	}
	e.ProbeName[n] = '_'
	e.ProbeName[n+1] = '_'
	copy(e.ProbeName[n+2:], suffix)
}

// Name builds the probe name for an expression type, e.g. "top-level" and
// DirEntry give "top_level__in". Long types are cut so the direction suffix
// always fits in ProbeNameSize.
func Name(exprType string, dir Direction) string {
	if exprType == "" {
		exprType = "unknown"
	}
	suffix := "__" + dir.String()
	base := strings.ReplaceAll(exprType, "-", "_")
	if limit := ProbeNameSize - len(suffix); len(base) > limit {
		base = base[:limit]
	}
	return base + suffix
}

// SplitName splits a probe name into its expression part and direction.
// Names without a direction suffix report 0.
func SplitName(name string) (string, Direction) {
	i := strings.LastIndex(name, "__")
	if i < 0 {
		return name, 0
	}
	base, suffix := name[:i], name[i+2:]
	switch suffix {
	case "in":
		return base, DirEntry
	case "out":
		return base, DirExit
	default:
		return name, 0
	}
}

// Probes lists the expression probes the evaluator exposes. Each has an
// "__in" and an "__out" point.
var Probes = []string{
	"top_level", "attrs", "let", "list", "var", "select",
	"lambda", "with", "if", "assert",
	"op_update", "call", "has_attr",
}

// ExtraExitProbes are exit points taken on early or failing paths.
var ExtraExitProbes = []string{
	"call_throwned__out", "has_attr_failed__out", "op_update_empty1__out",
	"op_update_empty2__out", "select_short__out",
}

// Schema selects the record shapes used for exits.
type Schema uint8

const (
	SchemaCombined Schema = iota + 1
	SchemaSplit
)

// String returns the string representation of Schema.
func (s Schema) String() string {
	switch s {
	case SchemaCombined:
		return "combined"
	case SchemaSplit:
		return "split"
	default:
		return "unknown"
	}
}

// ParseSchema converts a string to Schema.
func ParseSchema(s string) (Schema, error) {
	switch strings.ToLower(s) {
	case "combined":
		return SchemaCombined, nil
	case "split", "":
		return SchemaSplit, nil
	default:
		return SchemaSplit, fmt.Errorf("invalid probe schema: %q (expected: combined|split)", s)
	}
}

// UnmarshalText implements encoding.TextUnmarshaler for config files.
func (s *Schema) UnmarshalText(text []byte) error {
	v, err := ParseSchema(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (s Schema) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
