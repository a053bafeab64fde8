// Package profiling writes pprof and execution trace data for debugging
// slow indexing and search runs.
package profiling

import (
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
	"runtime/trace"
)

// Options selects the profiles a Session collects. Empty paths are
// skipped.
type Options struct {
	// CPUPath receives a CPU profile covering Start to Stop.
	CPUPath string

	// HeapPath receives a heap profile written at Stop, after a forced
	// GC, so it reflects the command's retained working set.
	HeapPath string

	// TracePath receives an execution trace covering Start to Stop.
	TracePath string
}

// Session holds the profiles running for the current command.
type Session struct {
	opts  Options
	cpu   *os.File
	trace *os.File
}

// Start begins CPU profiling and execution tracing as selected by opts.
// The returned session must be stopped once the command finishes.
func Start(opts Options) (*Session, error) {
	s := &Session{opts: opts}

	if opts.CPUPath != "" {
		f, err := os.Create(opts.CPUPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create CPU profile file: %w", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("failed to start CPU profile: %w", err)
		}
		s.cpu = f
	}

	if opts.TracePath != "" {
		f, err := os.Create(opts.TracePath)
		if err != nil {
			s.unwind()
			return nil, fmt.Errorf("failed to create trace file: %w", err)
		}
		if err := trace.Start(f); err != nil {
			_ = f.Close()
			s.unwind()
			return nil, fmt.Errorf("failed to start trace: %w", err)
		}
		s.trace = f
	}

	return s, nil
}

// Stop flushes and closes every active profile and writes the heap
// profile if one was requested. Safe to call on a nil session.
func (s *Session) Stop() error {
	if s == nil {
		return nil
	}
	s.unwind()

	if s.opts.HeapPath != "" {
		path := s.opts.HeapPath
		s.opts.HeapPath = ""
		if err := writeHeap(path); err != nil {
			return err
		}
	}
	return nil
}

// unwind stops the streaming profiles without touching the heap profile.
func (s *Session) unwind() {
	if s.trace != nil {
		trace.Stop()
		_ = s.trace.Close()
		s.trace = nil
	}
	if s.cpu != nil {
		pprof.StopCPUProfile()
		_ = s.cpu.Close()
		s.cpu = nil
	}
}

func writeHeap(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create heap profile file: %w", err)
	}
	defer func() { _ = f.Close() }()

	runtime.GC()
	if err := pprof.WriteHeapProfile(f); err != nil {
		return fmt.Errorf("failed to write heap profile: %w", err)
	}
	return nil
}
