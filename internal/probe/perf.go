package probe

import "errors"

// ErrUnsupported is returned by OpenPerf on platforms without eBPF.
var ErrUnsupported = errors.New("probe: perf buffers are only supported on linux")

// PerfConfig locates the perf event array the kernel tracer submits to.
type PerfConfig struct {
	// MapPath is the bpffs path the tracer pinned its "events" map at.
	MapPath string `toml:"map_path"`
	// PerCPUBuffer is the per-CPU ring size in bytes.
	PerCPUBuffer int `toml:"per_cpu_buffer"`
}

// DefaultPerCPUBuffer matches a 1024-page perf ring on 4 KiB pages.
const DefaultPerCPUBuffer = 1024 * 4096
