// Package cut materializes harmonized segments as standalone media files.
package cut

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"smartcut/internal/config"
	"smartcut/internal/logging"
	"smartcut/internal/media/ffmpeg"
	"smartcut/internal/services"
	"smartcut/internal/session"
	"smartcut/internal/stage"
)

// Cutter re-encodes a time range into its own file.
type Cutter interface {
	Cut(ctx context.Context, path string, start, end float64, outPath string, profile ffmpeg.CodecProfile) error
}

// Handler is the cut stage.
type Handler struct {
	cfg     *config.Config
	cutter  Cutter
	profile ffmpeg.CodecProfile
	logger  *slog.Logger

	dir   string
	index map[string]int
}

// NewHandler builds the cut stage.
func NewHandler(cfg *config.Config, cutter Cutter, logger *slog.Logger) *Handler {
	return &Handler{
		cfg:     cfg,
		cutter:  cutter,
		profile: ffmpeg.ProfileFromConfig(cfg.Cut),
		logger:  logging.NewComponentLogger(logger, "cut"),
	}
}

// SetLogger swaps in the stage-scoped logger.
func (h *Handler) SetLogger(logger *slog.Logger) {
	h.logger = logging.NewComponentLogger(logger, "cut")
}

// Prepare creates the output directory and numbers the active segments.
func (h *Handler) Prepare(_ context.Context, sess *session.Session) error {
	h.dir = filepath.Join(h.cfg.Paths.OutputDir, stage.SessionDirName(sess))
	if err := os.MkdirAll(h.dir, 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, "cut", "output directory", h.dir, err)
	}
	h.index = make(map[string]int)
	for i, seg := range sess.ActiveSegments() {
		h.index[seg.UID] = i + 1
	}
	return nil
}

// OutputPath returns the file a segment is cut into.
func (h *Handler) OutputPath(seg *session.Segment) string {
	return filepath.Join(h.dir, fmt.Sprintf("seg_%04d_%s%s", h.index[seg.UID], seg.ShortUID(), containerExt(h.cfg.Cut.ContainerExt)))
}

// Process cuts one segment.
func (h *Handler) Process(ctx context.Context, sess *session.Session, seg *session.Segment) error {
	out := h.OutputPath(seg)
	if err := h.cutter.Cut(ctx, sess.VideoPath, seg.Start, seg.End, out, h.profile); err != nil {
		return err
	}
	seg.OutputPath = out
	h.logger.Debug("segment cut", logging.String("output", out), logging.Span(seg.Start, seg.End))
	return nil
}

// Release is a no-op.
func (h *Handler) Release() {}

// HealthCheck reports whether the output directory is configured.
func (h *Handler) HealthCheck(context.Context) stage.Health {
	if strings.TrimSpace(h.cfg.Paths.OutputDir) == "" {
		return stage.Unhealthy("cut", "paths.output_dir is not set")
	}
	if h.cutter == nil {
		return stage.Unhealthy("cut", "media tool not configured")
	}
	return stage.Healthy("cut")
}

func containerExt(ext string) string {
	ext = strings.TrimSpace(ext)
	if ext == "" {
		return ".mp4"
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

var _ stage.Handler = (*Handler)(nil)
