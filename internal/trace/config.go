package trace

import (
	"fmt"
	"io"
	"os"

	"evaltrace/internal/probe"
)

// Config holds tracing configuration. The toml tags match the [trace]
// section of evaltrace.toml.
type Config struct {
	Enabled     bool         `toml:"enabled"`
	ChunkSize   int          `toml:"chunk_size"`   // slots per chunk (default 4096)
	ProbeOutput string       `toml:"probe_output"` // probe stream path ("-" for stdout, empty for none)
	Schema      probe.Schema `toml:"schema"`       // probe stream schema (default split)
	QueueSize   int          `toml:"queue_size"`   // pending probe hits before dropping

	// Output overrides ProbeOutput when set.
	Output io.Writer `toml:"-"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() Config {
	return Config{ChunkSize: DefaultChunkSize, Schema: probe.SchemaSplit, QueueSize: probe.DefaultQueueSize}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New creates a Buffer from cfg. A disabled config returns a nil Buffer,
// which every instrumentation point treats as "off". The returned closer
// flushes and closes the probe stream, if any.
func New(cfg Config) (*Buffer, io.Closer, error) {
	if !cfg.Enabled {
		return nil, nopCloser{}, nil
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.ChunkSize < 2 {
		return nil, nil, fmt.Errorf("chunk size %d leaves no usable slot (minimum 2)", cfg.ChunkSize)
	}
	if cfg.Schema == 0 {
		cfg.Schema = probe.SchemaSplit
	}

	opts := []Option{WithChunkSize(cfg.ChunkSize)}

	w, err := openOutput(cfg)
	if err != nil {
		return nil, nil, err
	}
	if w == nil {
		return NewBuffer(opts...), nopCloser{}, nil
	}

	pw, err := probe.NewWriterSize(w, cfg.Schema, cfg.QueueSize)
	if err != nil {
		if c, ok := w.(io.Closer); ok {
			_ = c.Close()
		}
		return nil, nil, fmt.Errorf("failed to start probe stream: %w", err)
	}
	opts = append(opts, WithProbeSink(pw))
	return NewBuffer(opts...), pw, nil
}

// openOutput opens the probe stream writer from config; nil means no stream.
func openOutput(cfg Config) (io.Writer, error) {
	if cfg.Output != nil {
		return cfg.Output, nil
	}

	switch cfg.ProbeOutput {
	case "":
		return nil, nil
	case "-":
		return stdoutWriter{}, nil
	}

	f, err := os.Create(cfg.ProbeOutput)
	if err != nil {
		return nil, fmt.Errorf("failed to open probe output: %w", err)
	}
	return f, nil
}

// stdoutWriter keeps probe.Writer from closing the process stdout.
type stdoutWriter struct{}

func (stdoutWriter) Write(p []byte) (int, error) { return os.Stdout.Write(p) }
