package source

import (
	"fmt"
	"os"

	"fortio.org/safecast"
)

// PosTable manages the sources an evaluator has seen and resolves position
// handles into file/line/column triples.
type PosTable struct {
	files []File
	index map[string]FileID // path -> latest id, file origins only
}

// NewPosTable creates a new empty PosTable.
func NewPosTable() *PosTable {
	return &PosTable{
		files: make([]File, 0),
		index: make(map[string]FileID),
	}
}

// Add stores a source and returns a new FileID. Paths of file origins are
// normalized; string and stdin sources keep their text as the path.
func (t *PosTable) Add(origin Origin, path string, content []byte) FileID {
	lenFiles, err := safecast.Conv[uint32](len(t.files))
	if err != nil {
		panic(fmt.Errorf("len files overflow: %w", err))
	}
	id := FileID(lenFiles)
	if origin == OriginFile {
		path = normalizePath(path)
		t.index[path] = id
	}
	t.files = append(t.files, File{
		ID:      id,
		Origin:  origin,
		Path:    path,
		Content: content,
		LineIdx: buildLineIndex(content),
	})
	return id
}

// AddString registers an inline string expression. The whole string is used
// as the path, the way evaluators usually report it.
func (t *PosTable) AddString(expr string) FileID {
	return t.Add(OriginString, expr, []byte(expr))
}

// AddStdin registers an expression read from standard input.
func (t *PosTable) AddStdin(content []byte) FileID {
	return t.Add(OriginStdin, "", content)
}

// Load reads a file from disk, normalizes CRLF/BOM, and calls Add.
func (t *PosTable) Load(path string) (FileID, error) {
	// #nosec G304 -- path is provided by the caller
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	content, _ = removeBOM(content)
	content, _ = normalizeCRLF(content)
	return t.Add(OriginFile, path, content), nil
}

// Get returns the file metadata for the given ID.
func (t *PosTable) Get(id FileID) *File {
	return &t.files[id]
}

// Lookup returns the latest FileID registered for a file path.
func (t *PosTable) Lookup(path string) (FileID, bool) {
	id, ok := t.index[normalizePath(path)]
	return id, ok
}

// At builds a position handle for a byte offset inside a registered source.
func (t *PosTable) At(id FileID, offset uint32) PosIdx {
	return PosIdx(uint64(id)+1)<<32 | PosIdx(offset)
}

// Resolve converts a position handle into a Pos. NoPos and handles of unknown
// files resolve to a Pos with OriginNone.
func (t *PosTable) Resolve(idx PosIdx) Pos {
	if idx == NoPos {
		return Pos{Origin: OriginNone}
	}
	hi := uint64(idx >> 32)
	if hi == 0 || hi > uint64(len(t.files)) {
		return Pos{Origin: OriginNone}
	}
	f := &t.files[hi-1]
	off := uint32(idx & 0xffffffff)
	lc := toLineCol(f.LineIdx, off)
	return Pos{Origin: f.Origin, File: f.Path, Line: lc.Line, Column: lc.Col}
}
