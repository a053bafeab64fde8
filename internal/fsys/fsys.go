// Package fsys provides the filesystem adapter consumed by the indexer
// and the watch service's restart reconciliation.
package fsys

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/docdexhq/docdex/internal/errors"
)

// FileInfo describes a scanned file. Path is relative to the scanned
// root.
type FileInfo struct {
	Path string
	Size int64
}

// SnapshotInfo describes a file in a point-in-time listing used for
// restart reconciliation.
type SnapshotInfo struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// FS is the adapter the indexer reads through.
type FS interface {
	// ScanDirectory walks root up to maxDepth directory levels and
	// returns the files found, in lexical order. maxDepth <= 0 means
	// unlimited.
	ScanDirectory(ctx context.Context, root string, maxDepth int) ([]FileInfo, error)

	// ReadFile returns the file's content as text.
	ReadFile(ctx context.Context, path string) (string, error)
}

// Snapshotter lists files with modification times. The watch service
// needs it only for recovery after a restart.
type Snapshotter interface {
	ListFiles(ctx context.Context, root string, maxDepth int) ([]SnapshotInfo, error)
}

// OSFS implements FS and Snapshotter against the local filesystem.
type OSFS struct{}

// NewOSFS returns the local filesystem adapter.
func NewOSFS() *OSFS {
	return &OSFS{}
}

// ScanDirectory walks root and returns regular files up to maxDepth
// levels deep. Unreadable entries are skipped; symlinks are not followed.
func (o *OSFS) ScanDirectory(ctx context.Context, root string, maxDepth int) ([]FileInfo, error) {
	var files []FileInfo
	err := walk(ctx, root, maxDepth, func(rel string, info fs.FileInfo) {
		files = append(files, FileInfo{Path: rel, Size: info.Size()})
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// ReadFile returns the file content as text.
func (o *OSFS) ReadFile(_ context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		switch {
		case os.IsNotExist(err):
			return "", errors.Wrap(errors.ErrCodeFileNotFound, err)
		case os.IsPermission(err):
			return "", errors.Wrap(errors.ErrCodeFilePermission, err)
		default:
			return "", errors.Wrap(errors.ErrCodeReadFailed, err)
		}
	}
	return string(data), nil
}

// ListFiles walks root like ScanDirectory but carries modification times.
func (o *OSFS) ListFiles(ctx context.Context, root string, maxDepth int) ([]SnapshotInfo, error) {
	var files []SnapshotInfo
	err := walk(ctx, root, maxDepth, func(rel string, info fs.FileInfo) {
		files = append(files, SnapshotInfo{Path: rel, Size: info.Size(), ModTime: info.ModTime()})
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// walk runs a depth-bounded WalkDir over root. The root must exist and be
// a directory; anything else is a scan failure the caller treats as fatal
// for the source.
func walk(ctx context.Context, root string, maxDepth int, visit func(rel string, info fs.FileInfo)) error {
	info, err := os.Stat(root)
	if err != nil {
		return errors.Wrap(errors.ErrCodeScanFailed, err)
	}
	if !info.IsDir() {
		return errors.New(errors.ErrCodeScanFailed, "scan root is not a directory", nil)
	}

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			return nil // Skip entries we can't access
		}

		rel, err := filepath.Rel(root, path)
		if err != nil || rel == "." {
			return nil
		}

		if d.IsDir() {
			if maxDepth > 0 && depthOf(rel) >= maxDepth {
				return filepath.SkipDir
			}
			return nil
		}

		// Symlinks are not followed; a link cycle must never hang a scan.
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}

		if maxDepth > 0 && depthOf(rel) > maxDepth {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			return nil
		}

		visit(rel, fi)
		return nil
	})
	if walkErr != nil {
		if walkErr == context.Canceled || walkErr == context.DeadlineExceeded {
			return walkErr
		}
		return errors.Wrap(errors.ErrCodeScanFailed, walkErr)
	}
	return nil
}

// depthOf counts how many levels below the root a relative path sits;
// a file directly in the root has depth 1.
func depthOf(rel string) int {
	return strings.Count(rel, string(filepath.Separator)) + 1
}

var (
	_ FS          = (*OSFS)(nil)
	_ Snapshotter = (*OSFS)(nil)
)
