//go:build !linux

package probe

import "go.uber.org/zap"

// PerfSource is unavailable on this platform.
type PerfSource struct{}

// OpenPerf always fails with ErrUnsupported.
func OpenPerf(PerfConfig, *zap.Logger) (*PerfSource, error) {
	return nil, ErrUnsupported
}

// Read always fails with ErrUnsupported.
func (*PerfSource) Read() (Record, error) { return Record{}, ErrUnsupported }

// Lost always returns 0.
func (*PerfSource) Lost() uint64 { return 0 }

// Close does nothing.
func (*PerfSource) Close() error { return nil }
