// Package prof wraps the runtime profilers for measuring instrumentation
// overhead of a traced workload.
package prof

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
	rtrace "runtime/trace"
)

// Paths names the profile outputs; empty paths are skipped.
type Paths struct {
	CPU   string
	Mem   string
	Trace string
}

// Empty reports whether no profile was requested.
func (p Paths) Empty() bool {
	return p.CPU == "" && p.Mem == "" && p.Trace == ""
}

// Session is a set of running profilers. Stop is safe to call more than once.
type Session struct {
	cpu     *os.File
	rt      *os.File
	memPath string
	stopped bool
}

// Start enables the profilers named in p. On error nothing stays running.
func Start(p Paths) (*Session, error) {
	s := &Session{memPath: p.Mem}
	if p.CPU != "" {
		f, err := os.Create(p.CPU)
		if err != nil {
			return nil, fmt.Errorf("failed to create cpu profile: %w", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("failed to start cpu profile: %w", err)
		}
		s.cpu = f
	}
	if p.Trace != "" {
		f, err := os.Create(p.Trace)
		if err != nil {
			s.stopCPU()
			return nil, fmt.Errorf("failed to create runtime trace: %w", err)
		}
		if err := rtrace.Start(f); err != nil {
			_ = f.Close()
			s.stopCPU()
			return nil, fmt.Errorf("failed to start runtime trace: %w", err)
		}
		s.rt = f
	}
	return s, nil
}

// Stop ends the running profilers and writes the heap profile, if requested.
func (s *Session) Stop() error {
	if s == nil || s.stopped {
		return nil
	}
	s.stopped = true

	var errs []error
	if s.rt != nil {
		rtrace.Stop()
		errs = append(errs, s.rt.Close())
	}
	errs = append(errs, s.stopCPU())
	if s.memPath != "" {
		errs = append(errs, writeMem(s.memPath))
	}
	return errors.Join(errs...)
}

func (s *Session) stopCPU() error {
	if s.cpu == nil {
		return nil
	}
	pprof.StopCPUProfile()
	err := s.cpu.Close()
	s.cpu = nil
	return err
}

func writeMem(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create heap profile: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	runtime.GC()
	if err := pprof.WriteHeapProfile(f); err != nil {
		return fmt.Errorf("failed to write heap profile: %w", err)
	}
	return nil
}
