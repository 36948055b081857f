package source

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveLineAndColumn(t *testing.T) {
	pt := NewPosTable()
	id := pt.Add(OriginFile, "pkgs/foo.nix", []byte("let\n  x = 1;\nin x\n"))

	cases := []struct {
		off  uint32
		line uint32
		col  uint32
	}{
		{0, 1, 1},
		{3, 1, 4},
		{4, 2, 1},
		{6, 2, 3},
		{13, 3, 1},
		{16, 3, 4},
	}
	for _, tc := range cases {
		got := pt.Resolve(pt.At(id, tc.off))
		if got.Line != tc.line || got.Column != tc.col {
			t.Fatalf("Resolve(off=%d) = %d:%d, want %d:%d", tc.off, got.Line, got.Column, tc.line, tc.col)
		}
		if got.Origin != OriginFile || got.File != "pkgs/foo.nix" {
			t.Fatalf("Resolve(off=%d) = %+v, want file origin for pkgs/foo.nix", tc.off, got)
		}
	}
}

func TestResolveKeepsOrigin(t *testing.T) {
	pt := NewPosTable()
	str := pt.AddString("1 + 2")
	in := pt.AddStdin([]byte("builtins.length [ ]\n"))

	if got := pt.Resolve(pt.At(str, 4)); got.Origin != OriginString || got.File != "1 + 2" {
		t.Fatalf("string position = %+v", got)
	}
	if got := pt.Resolve(pt.At(in, 0)); got.Origin != OriginStdin || got.Line != 1 {
		t.Fatalf("stdin position = %+v", got)
	}
}

func TestResolveNoPos(t *testing.T) {
	pt := NewPosTable()
	if got := pt.Resolve(NoPos); got.Origin != OriginNone || got.File != "" {
		t.Fatalf("Resolve(NoPos) = %+v, want empty none origin", got)
	}
	if got := pt.Resolve(PosIdx(42) << 32); got.Origin != OriginNone {
		t.Fatalf("Resolve(unknown file) = %+v, want none origin", got)
	}
}

func TestLoadNormalizesContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "default.nix")
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("a\r\nb\r\n")...)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write default.nix: %v", err)
	}

	pt := NewPosTable()
	id, err := pt.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	f := pt.Get(id)
	if string(f.Content) != "a\nb\n" {
		t.Fatalf("content = %q, want %q", f.Content, "a\nb\n")
	}
	if got, ok := pt.Lookup(path); !ok || got != id {
		t.Fatalf("Lookup(%q) = %d, %v", path, got, ok)
	}
	if got := pt.Resolve(pt.At(id, 2)); got.Line != 2 {
		t.Fatalf("line after CRLF normalization = %d, want 2", got.Line)
	}
}

func TestNormalizeCRLFKeepsLoneCR(t *testing.T) {
	out, changed := normalizeCRLF([]byte("a\rb\r\nc"))
	if !changed || string(out) != "a\rb\nc" {
		t.Fatalf("normalizeCRLF = %q, %v", out, changed)
	}
}
