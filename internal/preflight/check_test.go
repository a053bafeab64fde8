package preflight

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docdexhq/docdex/internal/embed"
	"github.com/docdexhq/docdex/internal/source"
)

func TestCheckDataDir(t *testing.T) {
	t.Run("creates and probes the directory", func(t *testing.T) {
		dataDir := filepath.Join(t.TempDir(), "data")
		c := New(dataDir)

		result := c.CheckDataDir()
		assert.Equal(t, "data_dir", result.Name)
		assert.Equal(t, StatusPass, result.Status)
		assert.Equal(t, dataDir, result.Message)
		assert.DirExists(t, dataDir)
	})

	t.Run("fails when the path is a file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "occupied")
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

		result := New(path).CheckDataDir()
		assert.Equal(t, StatusFail, result.Status)
		assert.True(t, result.IsCritical())
	})
}

func TestCheckRegistry(t *testing.T) {
	t.Run("missing file passes with no sources", func(t *testing.T) {
		c := New(t.TempDir())
		result := c.CheckRegistry()
		assert.Equal(t, StatusPass, result.Status)
		assert.Equal(t, "no sources registered", result.Message)
	})

	t.Run("counts persisted sources", func(t *testing.T) {
		dataDir := t.TempDir()
		reg := source.NewRegistry()
		_, err := reg.Register(t.TempDir(), source.WithName("docs"))
		require.NoError(t, err)
		require.NoError(t, reg.SaveFile(filepath.Join(dataDir, "sources.yaml")))

		result := New(dataDir).CheckRegistry()
		assert.Equal(t, StatusPass, result.Status)
		assert.Equal(t, "1 source", result.Message)
	})

	t.Run("corrupt file fails", func(t *testing.T) {
		dataDir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dataDir, "sources.yaml"), []byte("version: [broken"), 0o644))

		result := New(dataDir).CheckRegistry()
		assert.Equal(t, StatusFail, result.Status)
		assert.True(t, result.IsCritical())
		assert.Contains(t, result.Detail, "sources.yaml")
	})
}

func TestCheckConfig(t *testing.T) {
	t.Run("defaults validate", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", t.TempDir())
		c := New(t.TempDir(), WithConfigDir(t.TempDir()))

		result := c.CheckConfig()
		assert.Equal(t, StatusPass, result.Status)
		assert.Contains(t, result.Message, "strategy heading")
	})

	t.Run("invalid project config fails", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", t.TempDir())
		dir := t.TempDir()
		bad := "search:\n  semantic_weight: 0.5\n  keyword_weight: 0.3\n"
		require.NoError(t, os.WriteFile(filepath.Join(dir, ".docdex.yaml"), []byte(bad), 0o644))

		result := New(t.TempDir(), WithConfigDir(dir)).CheckConfig()
		assert.Equal(t, StatusFail, result.Status)
		assert.Contains(t, result.Message, "must equal 1.0")
	})
}

func TestCheckProvider(t *testing.T) {
	t.Run("available provider passes", func(t *testing.T) {
		provider := embed.NewHashProvider()
		c := New(t.TempDir(), WithProvider(provider))

		result := c.CheckProvider(context.Background())
		assert.Equal(t, StatusPass, result.Status)
		assert.Contains(t, result.Message, "hash")
		assert.False(t, result.Required)
	})

	t.Run("closed provider warns", func(t *testing.T) {
		provider := embed.NewHashProvider()
		require.NoError(t, provider.Close())

		result := New(t.TempDir(), WithProvider(provider)).CheckProvider(context.Background())
		assert.Equal(t, StatusWarn, result.Status)
		assert.Contains(t, result.Detail, "keyword-only")
	})

	t.Run("nil provider warns", func(t *testing.T) {
		result := New(t.TempDir()).CheckProvider(context.Background())
		assert.Equal(t, StatusWarn, result.Status)
	})
}

func TestCheckFileDescriptors(t *testing.T) {
	result := New(t.TempDir()).CheckFileDescriptors()
	assert.Equal(t, "file_descriptors", result.Name)
	assert.NotEmpty(t, result.Message)
	if result.Status == StatusFail {
		assert.True(t, result.IsCritical())
	}
}

func TestCheckDiskSpace(t *testing.T) {
	result := New(t.TempDir()).CheckDiskSpace(t.TempDir())
	assert.Equal(t, "disk_space", result.Name)
	assert.Contains(t, result.Message, "minimum: 100 MB")
}

func TestRun_FixedOrder(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	c := New(filepath.Join(t.TempDir(), "data"),
		WithConfigDir(t.TempDir()),
		WithProvider(embed.NewHashProvider()))

	results := c.Run(context.Background())
	names := make([]string, len(results))
	for i, r := range results {
		names[i] = r.Name
	}
	assert.Equal(t, []string{
		"data_dir", "registry", "config", "disk_space",
		"file_descriptors", "embedding_provider",
	}, names)
}

func TestSummaryStatus(t *testing.T) {
	tests := []struct {
		name    string
		results []Result
		want    string
	}{
		{
			name: "all pass",
			results: []Result{
				{Status: StatusPass, Required: true},
				{Status: StatusPass},
			},
			want: "ready",
		},
		{
			name: "warning only",
			results: []Result{
				{Status: StatusPass, Required: true},
				{Status: StatusWarn},
			},
			want: "ready_with_warnings",
		},
		{
			name: "optional failure warns",
			results: []Result{
				{Status: StatusPass, Required: true},
				{Status: StatusFail, Required: false},
			},
			want: "ready_with_warnings",
		},
		{
			name: "required failure",
			results: []Result{
				{Status: StatusFail, Required: true},
			},
			want: "failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SummaryStatus(tt.results))
			assert.Equal(t, tt.want == "failed", HasCriticalFailures(tt.results))
		})
	}
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "PASS", StatusPass.String())
	assert.Equal(t, "WARN", StatusWarn.String())
	assert.Equal(t, "FAIL", StatusFail.String())
	assert.Equal(t, "UNKNOWN", Status(42).String())
}

func TestStatus_MarshalJSON(t *testing.T) {
	data, err := StatusWarn.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"WARN"`, string(data))
}
