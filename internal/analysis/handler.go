package analysis

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"smartcut/internal/accel"
	"smartcut/internal/config"
	"smartcut/internal/logging"
	"smartcut/internal/services"
	"smartcut/internal/services/llm"
	"smartcut/internal/session"
	"smartcut/internal/stage"
	"smartcut/internal/textutil"
)

// FrameExtractor grabs still frames from the source.
type FrameExtractor interface {
	ExtractFrames(ctx context.Context, path string, timestamps []float64, dir string) ([]string, error)
}

// ContentAnalyzer describes a batch of frames.
type ContentAnalyzer interface {
	Describe(ctx context.Context, frames []string) (llm.Description, error)
}

// ModelLoader loads the vision model for one stage run.
type ModelLoader interface {
	Load(ctx context.Context) (*accel.Handle, error)
}

// MemoryProbe reports free accelerator memory.
type MemoryProbe interface {
	Free(ctx context.Context) (accel.Memory, error)
}

// Dependencies groups the collaborators of the analysis stage.
type Dependencies struct {
	Frames     FrameExtractor
	Analyzer   ContentAnalyzer
	Loader     ModelLoader
	Memory     MemoryProbe
	Normalizer *textutil.Normalizer
}

// Handler describes segments with the vision model.
type Handler struct {
	cfg    *config.Config
	deps   Dependencies
	logger *slog.Logger

	handle *accel.Handle
	batch  int
}

// NewHandler builds the analysis stage.
func NewHandler(cfg *config.Config, deps Dependencies, logger *slog.Logger) *Handler {
	return &Handler{
		cfg:    cfg,
		deps:   deps,
		logger: logging.NewComponentLogger(logger, "analysis"),
	}
}

// SetLogger swaps in the stage-scoped logger.
func (h *Handler) SetLogger(logger *slog.Logger) {
	h.logger = logging.NewComponentLogger(logger, "analysis")
}

// BatchSize returns the frames-per-request size computed by Prepare.
func (h *Handler) BatchSize() int {
	return h.batch
}

// Prepare sizes the batch against free accelerator memory and loads the
// model. Both failures abort the run.
func (h *Handler) Prepare(ctx context.Context, _ *session.Session) error {
	if h.deps.Frames == nil || h.deps.Analyzer == nil || h.deps.Loader == nil || h.deps.Memory == nil {
		return services.Wrap(services.ErrConfiguration, "analysis", "prepare", "analysis dependencies missing", nil)
	}
	mem, err := h.deps.Memory.Free(ctx)
	if err != nil {
		return err
	}
	batch, err := accel.SafeBatchSize(mem, h.cfg.Analysis.SafetyMarginGB, h.cfg.PrecisionCost())
	if err != nil {
		return err
	}
	handle, err := h.deps.Loader.Load(ctx)
	if err != nil {
		return err
	}
	h.handle = handle
	h.batch = batch
	h.logger.Info("analysis resources ready",
		logging.String(logging.FieldEventType, "analysis_prepared"),
		logging.String("model", handle.Model),
		logging.Int("batch_size", batch),
		logging.Float64("free_gb", mem.FreeGB),
		logging.String("memory_source", mem.Source),
		logging.String("precision", h.cfg.Analysis.Precision),
	)
	return nil
}

// Process samples, extracts, and describes one segment.
func (h *Handler) Process(ctx context.Context, sess *session.Session, seg *session.Segment) error {
	if h.handle == nil {
		return services.Wrap(services.ErrResource, "analysis", "process", "model not loaded", nil)
	}
	n := FrameCount(h.cfg.Analysis, seg.Duration())
	timestamps := Timestamps(seg.Start, seg.Duration(), n)

	dir := filepath.Join(h.cfg.Paths.WorkDir, stage.SessionDirName(sess), "frames_"+seg.ShortUID())
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			h.logger.Warn("frame cleanup failed",
				logging.String("dir", dir),
				logging.Error(err),
				logging.String(logging.FieldEventType, "frame_cleanup_failed"),
				logging.String(logging.FieldErrorHint, "remove the directory under work_dir manually"),
			)
		}
	}()

	frames, err := h.deps.Frames.ExtractFrames(ctx, sess.VideoPath, timestamps, dir)
	if err != nil {
		return err
	}
	if len(frames) == 0 {
		return services.Wrap(services.ErrAnalysis, "analysis", "frames", "no frames extracted", nil)
	}

	var descriptions, keywords []string
	for i, chunk := range chunks(frames, h.batch) {
		desc, err := h.deps.Analyzer.Describe(ctx, chunk)
		if err != nil {
			return err
		}
		if text := strings.TrimSpace(desc.Text); text != "" {
			descriptions = append(descriptions, text)
		}
		keywords = append(keywords, desc.Keywords...)
		h.logger.Debug("chunk described",
			logging.Int("chunk", i+1),
			logging.Int("frames", len(chunk)),
			logging.Int("keywords", len(desc.Keywords)),
		)
	}
	if len(descriptions) == 0 {
		return services.Wrap(services.ErrAnalysis, "analysis", "describe", "model returned no description", nil)
	}

	seg.Description = strings.Join(descriptions, " ")
	seg.Keywords = h.deps.Normalizer.Normalize(keywords, textutil.KeywordLimits{
		MaxCount:  h.cfg.Analysis.MaxKeywords,
		MaxLength: h.cfg.Analysis.MaxKeywordLength,
	})
	seg.Model = h.handle.Model
	return nil
}

// Release frees the model handle.
func (h *Handler) Release() {
	h.handle.Release()
	h.handle = nil
}

// HealthCheck reports whether the stage is configured.
func (h *Handler) HealthCheck(context.Context) stage.Health {
	const name = "analysis"
	switch {
	case h.deps.Analyzer == nil || h.deps.Loader == nil:
		return stage.Unhealthy(name, "vision model not configured")
	case strings.TrimSpace(h.cfg.LLM.APIKey) == "":
		return stage.Unhealthy(name, "llm.api_key is not set")
	case h.cfg.PrecisionCost() <= 0:
		return stage.Unhealthy(name, "no precision cost for "+h.cfg.Analysis.Precision)
	}
	return stage.Healthy(name)
}

var _ stage.Handler = (*Handler)(nil)
