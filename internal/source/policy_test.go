package source

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dexerrors "github.com/docdexhq/docdex/internal/errors"
)

func TestGlobToRegex(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		path    string
		want    bool
	}{
		{"literal match", "readme.md", "readme.md", true},
		{"literal mismatch", "readme.md", "other.md", false},
		{"dot is literal", "a.md", "aXmd", false},
		{"star within segment", "*.md", "readme.md", true},
		{"star does not cross segments", "*.md", "docs/readme.md", false},
		{"question mark single char", "v?.md", "v1.md", true},
		{"question mark needs a char", "v?.md", "v.md", false},
		{"double star zero segments", "**/readme.md", "readme.md", true},
		{"double star many segments", "**/readme.md", "a/b/c/readme.md", true},
		{"double star suffix", "docs/**", "docs/a/b.md", true},
		{"double star middle zero", "a/**/b.md", "a/b.md", true},
		{"double star middle many", "a/**/b.md", "a/x/y/b.md", true},
		{"double star alone", "**", "any/path/at/all", true},
		{"git dir anywhere", "**/.git/**", ".git/config", true},
		{"git dir nested", "**/.git/**", "vendor/.git/hooks/pre-commit", true},
		{"git pattern does not match plain file", "**/.git/**", "docs/git.md", false},
		{"min js", "**/*.min.js", "assets/app.min.js", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, matchGlob(tt.pattern, tt.path))
		})
	}
}

func TestPolicyMatches_Containment(t *testing.T) {
	policy := DefaultPolicy()

	tests := []struct {
		name string
		path string
		want bool
	}{
		{"relative path inside root", "notes/readme.md", true},
		{"parent traversal", "../secret.md", false},
		{"absolute path outside root", "/etc/passwd", false},
		{"traversal through subdirectory", "/docs/sub/../../secret.md", false},
		{"absolute path inside root", "/docs/notes/readme.md", true},
		{"dot slash prefix", "./notes/readme.md", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.Matches(tt.path, "/docs"))
		})
	}
}

func TestPolicyMatches_ExcludeWinsOverInclude(t *testing.T) {
	policy := Policy{
		IncludePaths: []string{"**/*.md"},
		ExcludePaths: []string{"drafts/**"},
	}

	assert.True(t, policy.Matches("notes/readme.md", "/docs"))
	assert.False(t, policy.Matches("drafts/wip.md", "/docs"))
}

func TestPolicyMatches_IncludeList(t *testing.T) {
	// Given: a policy that only accepts markdown
	policy := Policy{
		IncludePaths: []string{"**/*.md", "**/*.markdown"},
	}

	assert.True(t, policy.Matches("guide.md", "/docs"))
	assert.True(t, policy.Matches("a/b/guide.markdown", "/docs"))
	assert.False(t, policy.Matches("guide.txt", "/docs"))
}

func TestPolicyMatches_EmptyIncludeAcceptsAll(t *testing.T) {
	policy := Policy{ExcludePaths: []string{"**/.git/**"}}

	assert.True(t, policy.Matches("anything.txt", "/docs"))
	assert.False(t, policy.Matches(".git/config", "/docs"))
}

func TestPolicyMatches_DefaultExcludes(t *testing.T) {
	policy := DefaultPolicy()

	assert.False(t, policy.Matches("node_modules/pkg/index.js", "/docs"))
	assert.False(t, policy.Matches("sub/.git/HEAD", "/docs"))
	assert.False(t, policy.Matches(".docdex/cache/x", "/docs"))
	assert.True(t, policy.Matches("notes/readme.md", "/docs"))
}

func TestPolicyMatches_NoRootSkipsContainment(t *testing.T) {
	policy := Policy{IncludePaths: []string{"**/*.md"}}

	// Without a root there is nothing to contain against; only globs run.
	assert.True(t, policy.Matches("any/depth/file.md", ""))
	assert.False(t, policy.Matches("file.txt", ""))
}

func TestResolveWithinRoot(t *testing.T) {
	t.Run("relative path resolves inside root", func(t *testing.T) {
		abs, rel, err := ResolveWithinRoot("notes/readme.md", "/docs")
		require.NoError(t, err)
		assert.Equal(t, "/docs/notes/readme.md", abs)
		assert.Equal(t, "notes/readme.md", rel)
	})

	t.Run("absolute path inside root", func(t *testing.T) {
		abs, rel, err := ResolveWithinRoot("/docs/a/b.md", "/docs")
		require.NoError(t, err)
		assert.Equal(t, "/docs/a/b.md", abs)
		assert.Equal(t, "a/b.md", rel)
	})

	t.Run("traversal is rejected without naming the path", func(t *testing.T) {
		_, _, err := ResolveWithinRoot("/docs/sub/../../secret.md", "/docs")
		require.Error(t, err)
		assert.True(t, errors.Is(err, dexerrors.ErrPathOutsideRoot))

		var de *dexerrors.DexError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, dexerrors.PathRejectedMessage, de.Message)
		assert.False(t, strings.Contains(err.Error(), "secret"))
	})

	t.Run("empty inputs are rejected", func(t *testing.T) {
		_, _, err := ResolveWithinRoot("", "/docs")
		assert.True(t, errors.Is(err, dexerrors.ErrPathOutsideRoot))

		_, _, err = ResolveWithinRoot("a.md", "")
		assert.True(t, errors.Is(err, dexerrors.ErrPathOutsideRoot))
	})
}

func TestPolicyMerge(t *testing.T) {
	defaults := DefaultPolicy()

	t.Run("zero values take defaults", func(t *testing.T) {
		merged := Policy{}.Merge(defaults)

		assert.Equal(t, defaults.ExcludePaths, merged.ExcludePaths)
		assert.Equal(t, defaults.MaxFileSize, merged.MaxFileSize)
		assert.Equal(t, defaults.MaxDepth, merged.MaxDepth)
		assert.False(t, merged.WatchForChanges)
	})

	t.Run("explicit values survive", func(t *testing.T) {
		merged := Policy{
			IncludePaths: []string{"**/*.md"},
			MaxFileSize:  1024,
			MaxDepth:     2,
		}.Merge(defaults)

		assert.Equal(t, []string{"**/*.md"}, merged.IncludePaths)
		assert.Equal(t, int64(1024), merged.MaxFileSize)
		assert.Equal(t, 2, merged.MaxDepth)
	})

	t.Run("empty non-nil include list is kept", func(t *testing.T) {
		merged := Policy{IncludePaths: []string{}}.Merge(defaults)
		assert.Empty(t, merged.IncludePaths)
	})
}
