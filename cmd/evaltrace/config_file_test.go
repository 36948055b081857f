package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"evaltrace/internal/probe"
	"evaltrace/internal/trace"
)

func TestFindConfigWalksParents(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, configFileName)
	if err := os.WriteFile(path, []byte("[trace]\nenabled = true\n"), 0o600); err != nil {
		t.Fatalf("write %s: %v", configFileName, err)
	}
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	got, ok, err := findConfig(nested)
	if err != nil {
		t.Fatalf("findConfig: %v", err)
	}
	if !ok || got != path {
		t.Fatalf("findConfig = %q, %v; want %q", got, ok, path)
	}
}

func TestReadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), configFileName)
	data := `# tracing setup
[trace]
enabled = true
chunk_size = 128
schema = "combined"
probe_output = "trace.evtp"

[collect]
map_path = "/sys/fs/bpf/evaltrace/events"
output = "events.log"
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := readConfigFile(path)
	if err != nil {
		t.Fatalf("readConfigFile: %v", err)
	}
	if !cfg.Trace.Enabled || cfg.Trace.ChunkSize != 128 || cfg.Trace.ProbeOutput != "trace.evtp" {
		t.Fatalf("trace config = %+v", cfg.Trace)
	}
	if cfg.Trace.Schema != probe.SchemaCombined {
		t.Fatalf("schema = %v, want combined", cfg.Trace.Schema)
	}
	perf := cfg.Collect.perf()
	if perf.MapPath != "/sys/fs/bpf/evaltrace/events" {
		t.Fatalf("map path = %q", perf.MapPath)
	}
	if perf.PerCPUBuffer != probe.DefaultPerCPUBuffer {
		t.Fatalf("per-cpu buffer = %d, want default %d", perf.PerCPUBuffer, probe.DefaultPerCPUBuffer)
	}
	if cfg.Collect.Output != "events.log" {
		t.Fatalf("output = %q", cfg.Collect.Output)
	}
}

func TestReadConfigFileDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), configFileName)
	if err := os.WriteFile(path, []byte(""), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := readConfigFile(path)
	if err != nil {
		t.Fatalf("readConfigFile: %v", err)
	}
	if cfg.Trace.Enabled {
		t.Fatalf("tracing enabled by default")
	}
	if cfg.Trace.ChunkSize != trace.DefaultChunkSize || cfg.Trace.Schema != probe.SchemaSplit {
		t.Fatalf("defaults = %+v", cfg.Trace)
	}
}

func TestReadConfigFileRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), configFileName)
	if err := os.WriteFile(path, []byte("[trace]\nchunk_sise = 10\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, err := readConfigFile(path)
	if err == nil || !strings.Contains(err.Error(), "trace.chunk_sise") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestReadConfigFileRejectsBadSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), configFileName)
	if err := os.WriteFile(path, []byte("[trace]\nschema = \"packed\"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := readConfigFile(path); err == nil {
		t.Fatalf("expected schema error")
	}
}
