package profiling

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_AllProfiles(t *testing.T) {
	tmpDir := t.TempDir()
	opts := Options{
		CPUPath:   filepath.Join(tmpDir, "cpu.prof"),
		HeapPath:  filepath.Join(tmpDir, "heap.prof"),
		TracePath: filepath.Join(tmpDir, "trace.out"),
	}

	s, err := Start(opts)
	require.NoError(t, err)

	// Generate some work so the profiles have content.
	sum := 0
	for i := 0; i < 1000000; i++ {
		sum += i
	}
	_ = sum

	require.NoError(t, s.Stop())

	for _, path := range []string{opts.CPUPath, opts.HeapPath, opts.TracePath} {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0), path)
	}
}

func TestSession_HeapOnly(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "heap.prof")

	_ = make([]byte, 1024*1024)

	s, err := Start(Options{HeapPath: path})
	require.NoError(t, err)
	require.NoError(t, s.Stop())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestSession_NothingSelected(t *testing.T) {
	s, err := Start(Options{})
	require.NoError(t, err)
	require.NoError(t, s.Stop())
}

func TestSession_NilStop(t *testing.T) {
	var s *Session
	require.NoError(t, s.Stop())
}

func TestSession_StopTwice(t *testing.T) {
	tmpDir := t.TempDir()
	s, err := Start(Options{CPUPath: filepath.Join(tmpDir, "cpu.prof")})
	require.NoError(t, err)
	require.NoError(t, s.Stop())
	require.NoError(t, s.Stop())
}

func TestStart_BadCPUPath(t *testing.T) {
	_, err := Start(Options{CPUPath: filepath.Join(t.TempDir(), "missing", "cpu.prof")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CPU profile")
}
