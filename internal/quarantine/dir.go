package quarantine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"smartcut/internal/fileutil"
	"smartcut/internal/logging"
)

// DateLayout names the dated sub-directories under a quarantine root.
const DateLayout = "2006-01-02"

// Dir is a dated holding area for files removed from the pipeline.
type Dir struct {
	Root   string
	Logger *slog.Logger
	// Reason labels log lines, e.g. "error" or "trash".
	Reason string
	now    func() time.Time
}

// New constructs a Dir rooted at root.
func New(root, reason string, logger *slog.Logger) *Dir {
	return &Dir{
		Root:   root,
		Reason: reason,
		Logger: logging.NewComponentLogger(logger, "quarantine"),
		now:    time.Now,
	}
}

// Route moves path into today's sub-directory and returns the new location.
// A missing source is reported as an error. Name collisions get a numeric suffix.
func (d *Dir) Route(ctx context.Context, path string) (string, error) {
	if d == nil || strings.TrimSpace(d.Root) == "" {
		return "", fmt.Errorf("quarantine root not configured")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	now := time.Now
	if d.now != nil {
		now = d.now
	}
	target := fileutil.UniquePath(filepath.Join(d.Root, now().Format(DateLayout), filepath.Base(path)))
	if err := fileutil.MoveFile(path, target); err != nil {
		return "", fmt.Errorf("move %s to %s: %w", path, target, err)
	}
	if d.Logger != nil {
		d.Logger.Info("file quarantined",
			logging.String("reason", d.Reason),
			logging.String("source", path),
			logging.String("destination", target),
			logging.String(logging.FieldEventType, "file_quarantined"),
		)
	}
	return target, nil
}
