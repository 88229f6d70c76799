package confidence

import (
	"context"
	"log/slog"
	"math"
	"strings"

	"smartcut/internal/logging"
	"smartcut/internal/session"
	"smartcut/internal/stage"
	"smartcut/internal/textutil"
)

// Scorer rates the agreement between a description and its keywords.
type Scorer interface {
	Score(ctx context.Context, description string, keywords []string) (float64, error)
}

// Handler is the confidence stage.
type Handler struct {
	scorer Scorer
	logger *slog.Logger

	autoKeywords []string
}

// NewHandler builds the confidence stage around scorer.
func NewHandler(scorer Scorer, logger *slog.Logger) *Handler {
	return &Handler{scorer: scorer, logger: logging.NewComponentLogger(logger, "confidence")}
}

// SetLogger swaps in the stage-scoped logger.
func (h *Handler) SetLogger(logger *slog.Logger) {
	h.logger = logging.NewComponentLogger(logger, "confidence")
}

// Prepare derives the file name keywords once per run.
func (h *Handler) Prepare(_ context.Context, sess *session.Session) error {
	// The key keeps the original file name after the source was moved.
	name := sess.Key
	if name == "" {
		name = sess.VideoPath
	}
	h.autoKeywords = textutil.FilenameKeywords(name)
	if len(h.autoKeywords) > 0 {
		h.logger.Debug("file name keywords", logging.String("keywords", strings.Join(h.autoKeywords, ", ")))
	}
	return nil
}

// Process scores the segment against its own keywords, then merges in the
// file name keywords.
func (h *Handler) Process(ctx context.Context, _ *session.Session, seg *session.Segment) error {
	score, err := h.scorer.Score(ctx, seg.Description, seg.Keywords)
	if err != nil {
		return err
	}
	seg.Confidence = Round3(min(max(score, 0), 1))
	seg.Keywords = textutil.MergeKeywords(seg.Keywords, h.autoKeywords)
	return nil
}

// Release is a no-op; the scorer holds no per-run resources.
func (h *Handler) Release() {}

// HealthCheck reports whether a scorer is configured.
func (h *Handler) HealthCheck(context.Context) stage.Health {
	if h.scorer == nil {
		return stage.Unhealthy("confidence", "no scorer configured")
	}
	return stage.Healthy("confidence")
}

// Round3 rounds to three decimals.
func Round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

var _ stage.Handler = (*Handler)(nil)
