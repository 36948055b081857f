package source

import "fmt"

type (
	// FileID uniquely identifies a source within a PosTable.
	FileID uint32
	// PosIdx is an opaque position handle handed out by a PosTable.
	// The zero value is NoPos.
	PosIdx uint64
	// Origin classifies where a source came from.
	Origin uint8
)

// NoPos is the position of synthesized expressions.
const NoPos PosIdx = 0

const (
	// OriginNone marks positions that have no source at all.
	OriginNone Origin = iota
	// OriginFile marks sources read from a file on disk.
	OriginFile
	// OriginString marks inline string literals passed to the evaluator.
	OriginString
	// OriginStdin marks expressions entered on standard input.
	OriginStdin
)

// String returns the string representation of Origin.
func (o Origin) String() string {
	switch o {
	case OriginNone:
		return "none"
	case OriginFile:
		return "file"
	case OriginString:
		return "string"
	case OriginStdin:
		return "stdin"
	default:
		return "unknown"
	}
}

// File captures metadata and content for a single source.
type File struct {
	ID      FileID
	Origin  Origin
	Path    string
	Content []byte
	LineIdx []uint32
}

// LineCol represents a human-readable position in a source file.
type LineCol struct {
	Line uint32 // 1-based
	Col  uint32 // 1-based
}

// Pos is a fully resolved source position as the evaluator reports it.
type Pos struct {
	Origin Origin
	File   string
	Line   uint32
	Column uint32
}

func (p Pos) String() string {
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
}

// Resolver turns position handles into resolved positions.
type Resolver interface {
	Resolve(idx PosIdx) Pos
}
