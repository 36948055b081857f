//go:build linux

package probe

import (
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/cilium/ebpf"
	"github.com/cilium/ebpf/perf"
	"github.com/cilium/ebpf/rlimit"
	"go.uber.org/zap"
)

// PerfSource reads probe records from a pinned perf event array.
type PerfSource struct {
	events *ebpf.Map
	reader *perf.Reader
	logger *zap.Logger
	lost   atomic.Uint64
}

// OpenPerf opens the pinned map described by cfg.
func OpenPerf(cfg PerfConfig, logger *zap.Logger) (*PerfSource, error) {
	if cfg.MapPath == "" {
		return nil, fmt.Errorf("perf map path is empty")
	}
	if cfg.PerCPUBuffer <= 0 {
		cfg.PerCPUBuffer = DefaultPerCPUBuffer
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := rlimit.RemoveMemlock(); err != nil {
		return nil, fmt.Errorf("failed to remove memlock: %w", err)
	}

	events, err := ebpf.LoadPinnedMap(cfg.MapPath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load pinned map %s: %w", cfg.MapPath, err)
	}

	reader, err := perf.NewReader(events, cfg.PerCPUBuffer)
	if err != nil {
		events.Close()
		return nil, fmt.Errorf("failed to create perf reader: %w", err)
	}

	logger.Info("perf reader attached",
		zap.String("map", cfg.MapPath),
		zap.Int("per_cpu_buffer", cfg.PerCPUBuffer))

	return &PerfSource{events: events, reader: reader, logger: logger}, nil
}

// Read blocks for the next decodable record. Lost-sample notifications and
// undecodable samples are logged and skipped. It returns io.EOF once the
// source is closed.
func (s *PerfSource) Read() (Record, error) {
	for {
		sample, err := s.reader.Read()
		if err != nil {
			if errors.Is(err, perf.ErrClosed) {
				return Record{}, io.EOF
			}
			return Record{}, fmt.Errorf("read perf buffer: %w", err)
		}

		if sample.LostSamples > 0 {
			total := s.lost.Add(sample.LostSamples)
			s.logger.Warn("perf samples lost",
				zap.Int("cpu", sample.CPU),
				zap.Uint64("lost", sample.LostSamples),
				zap.Uint64("lost_total", total))
			continue
		}

		rec, err := DecodeSample(sample.RawSample)
		if err != nil {
			s.logger.Error("Failed to decode event", zap.Int("cpu", sample.CPU), zap.Error(err))
			continue
		}
		return rec, nil
	}
}

// Lost returns the number of samples the kernel dropped so far.
func (s *PerfSource) Lost() uint64 {
	return s.lost.Load()
}

// Close stops the reader and releases the map. A blocked Read returns io.EOF.
func (s *PerfSource) Close() error {
	err := s.reader.Close()
	if cerr := s.events.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
