package quarantine

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"smartcut/internal/logging"
)

// CleanupResult contains the outcome of a directory cleanup operation.
type CleanupResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a directory path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// Purge removes dated sub-directories of root whose date is more than days
// old. Directories whose name is not a date fall back to their modification
// time. A days value of 0 disables purging.
func Purge(ctx context.Context, root string, days int, logger *slog.Logger) CleanupResult {
	if days <= 0 {
		return CleanupResult{}
	}
	cutoff := time.Now().AddDate(0, 0, -days)
	return removeDirs(ctx, root, logger, "purge", func(entry os.DirEntry, info os.FileInfo) bool {
		if day, err := time.ParseInLocation(DateLayout, entry.Name(), time.Local); err == nil {
			return day.Before(cutoff)
		}
		return info.ModTime().Before(cutoff)
	})
}

// CleanStale removes sub-directories of dir last modified before maxAge ago.
// It clears frame work directories left behind by interrupted runs.
func CleanStale(ctx context.Context, dir string, maxAge time.Duration, logger *slog.Logger) CleanupResult {
	cutoff := time.Now().Add(-maxAge)
	return removeDirs(ctx, dir, logger, "stale", func(_ os.DirEntry, info os.FileInfo) bool {
		return info.ModTime().Before(cutoff)
	})
}

func removeDirs(ctx context.Context, root string, logger *slog.Logger, kind string, expired func(os.DirEntry, os.FileInfo) bool) CleanupResult {
	result := CleanupResult{}

	root = strings.TrimSpace(root)
	if root == "" {
		return result
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanupError{Path: root, Error: err})
		}
		return result
	}

	for _, entry := range entries {
		if ctx.Err() != nil {
			return result
		}
		if !entry.IsDir() {
			continue
		}

		dirPath := filepath.Join(root, entry.Name())
		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dirPath, Error: err})
			continue
		}
		if !expired(entry, info) {
			continue
		}

		if err := os.RemoveAll(dirPath); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dirPath, Error: err})
			logging.WarnWithContext(logger, "failed to remove expired directory", "cleanup_failed",
				logging.String("path", dirPath),
				logging.String("cleanup_kind", kind),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check directory permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
			continue
		}
		result.Removed = append(result.Removed, dirPath)
		if logger != nil {
			logger.Info("removed expired directory",
				logging.String("path", dirPath),
				logging.String("cleanup_kind", kind),
				logging.Duration("age", time.Since(info.ModTime())),
				logging.String(logging.FieldEventType, "cleanup"),
			)
		}
	}

	return result
}

// ListDirectories returns the sub-directories of root with their metadata.
func ListDirectories(root string) ([]DirInfo, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var dirs []DirInfo
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		dirPath := filepath.Join(root, entry.Name())
		size, files := dirSize(dirPath)
		dirs = append(dirs, DirInfo{
			Name:    entry.Name(),
			Path:    dirPath,
			ModTime: info.ModTime(),
			Size:    size,
			Files:   files,
		})
	}

	return dirs, nil
}

// DirInfo contains metadata about a quarantine directory.
type DirInfo struct {
	Name    string
	Path    string
	ModTime time.Time
	Size    int64
	Files   int
}

// dirSize calculates the total size and file count of a directory recursively.
func dirSize(path string) (int64, int) {
	var size int64
	var files int
	_ = filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			size += info.Size()
			files++
		}
		return nil
	})
	return size, files
}
