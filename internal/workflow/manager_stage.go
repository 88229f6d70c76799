package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"smartcut/internal/logging"
	"smartcut/internal/merge"
	"smartcut/internal/quarantine"
	"smartcut/internal/segmenter"
	"smartcut/internal/services"
	"smartcut/internal/session"
	"smartcut/internal/stage"
	"smartcut/internal/stageexec"
)

// runStage executes one stage and returns how many segments are still
// pending in it.
func (m *Manager) runStage(ctx context.Context, sess *session.Session, stg session.Stage) (int, error) {
	ctx = services.WithStage(ctx, string(stg))
	switch stg {
	case session.StageSegmentation:
		return 0, m.runSegmentation(ctx, sess)
	case session.StageHarmonize:
		return 0, m.runHarmonize(ctx, sess)
	}
	handler := m.handlerFor(stg)
	if handler == nil {
		return 0, services.Wrap(services.ErrConfiguration, string(stg), "resolve handler", "stage handler not configured", nil)
	}
	res, err := stageexec.Run(ctx, stageexec.Options{
		Logger:      m.logger,
		Store:       m.store,
		Handler:     handler,
		Stage:       stg,
		Session:     sess,
		MaxAttempts: m.cfg.Workflow.MaxSegmentAttempts,
		Progress:    m.progress,
	})
	if err != nil {
		return 0, err
	}
	return res.Pending, nil
}

func (m *Manager) handlerFor(stg session.Stage) stage.Handler {
	switch stg {
	case session.StageAnalysis:
		return m.stages.Analysis
	case session.StageConfidence:
		return m.stages.Confidence
	case session.StageCut:
		return m.stages.Cut
	default:
		return nil
	}
}

// runSegmentation detects scenes and stores the resulting raw segments. A
// timeline that cannot be covered sends the source to the error directory.
func (m *Manager) runSegmentation(ctx context.Context, sess *session.Session) error {
	logger := logging.WithContext(ctx, m.logger)
	minSceneLen := m.cfg.Segmentation.MinSceneLen
	detect := func(ctx context.Context, threshold float64, window segmenter.Window) ([]segmenter.Range, error) {
		return m.detector.Detect(ctx, sess.VideoPath, threshold, window, minSceneLen)
	}
	ranges, err := m.segmenter.Segment(ctx, sess.Duration, detect)
	switch {
	case err == nil:
	case errors.Is(err, services.ErrCoverage):
		return m.failVideo(ctx, sess, session.StageSegmentation, err)
	case errors.Is(err, services.ErrFormat):
		// Unreadable media is tagged first and only routed away when it
		// fails again on a later run.
		if sess.StageErrors(session.StageSegmentation) > 0 {
			return m.failVideo(ctx, sess, session.StageSegmentation, err)
		}
		sess.RecordError(session.StageSegmentation, services.Details(err).Message)
		if saveErr := m.store.Save(ctx, sess); saveErr != nil {
			return errors.Join(err, saveErr)
		}
		return err
	default:
		return err
	}

	segments := make([]*session.Segment, 0, len(ranges))
	for _, r := range ranges {
		segments = append(segments, session.NewSegment(r.Start, r.End))
	}
	sess.SetSegments(segments)
	sess.Advance(session.StageSegmentation)
	if err := m.store.Save(ctx, sess); err != nil {
		return err
	}
	logger.Info("segmentation complete",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Int("segments", len(segments)),
		logging.Float64("coverage", sess.Coverage()),
	)
	return nil
}

// runHarmonize merges compatible neighbours into the final timeline. Failed
// segments are carried over so they stay visible in the session.
func (m *Manager) runHarmonize(ctx context.Context, sess *session.Session) error {
	logger := logging.WithContext(ctx, m.logger)
	active := sess.ActiveSegments()
	merged := merge.Merge(active, merge.ParamsFromConfig(m.cfg))
	if m.cfg.Merge.HighlightsOnly {
		merged = merge.HighlightsOnly(merged)
	}
	for _, seg := range merged {
		sess.CompleteSegment(seg, session.StageHarmonize)
	}
	failed := sess.FailedSegments()
	sess.SetSegments(append(merged, failed...))
	sess.Advance(session.StageHarmonize)
	if err := m.store.Save(ctx, sess); err != nil {
		return err
	}
	var combined int
	for _, seg := range merged {
		if seg.Merged() {
			combined++
		}
	}
	logger.Info("harmonization complete",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Int("inputs", len(active)),
		logging.Int("outputs", len(merged)),
		logging.Int("merged_outputs", combined),
		logging.Bool("highlights_only", m.cfg.Merge.HighlightsOnly),
	)
	return nil
}

// finish trashes the source when configured and purges old trash. It
// returns the trash location, or "" when the source was kept. A source is
// only trashed when every segment produced an output.
func (m *Manager) finish(ctx context.Context, sess *session.Session) (string, error) {
	if sess.Status != session.StatusDone || !m.cfg.Cleanup.TrashSource {
		return "", nil
	}
	logger := logging.WithContext(ctx, m.logger)
	if failed := len(sess.FailedSegments()); failed > 0 || len(outputs(sess)) == 0 {
		logger.Info("source kept",
			logging.String(logging.FieldEventType, "source_kept"),
			logging.Int("failed_segments", failed),
			logging.Int("outputs", len(outputs(sess))),
		)
		return "", nil
	}
	if _, err := os.Stat(sess.VideoPath); err != nil {
		return "", nil
	}
	dest, err := m.trash.Route(ctx, sess.VideoPath)
	if err != nil {
		logging.WarnWithContext(logger, "failed to trash source", "trash_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove the source manually; outputs are complete"),
			logging.String(logging.FieldImpact, "source remains in place"),
		)
		return "", nil
	}
	sess.VideoPath = dest
	if err := m.store.Save(ctx, sess); err != nil {
		return dest, err
	}
	logger.Info("source moved to trash", logging.String("trash_path", dest))
	purged := quarantine.Purge(ctx, m.cfg.Paths.TrashDir, m.cfg.Cleanup.PurgeDays, m.logger)
	if len(purged.Removed) > 0 {
		logger.Info("purged old trash", logging.Int("removed", len(purged.Removed)))
	}
	return dest, nil
}

// failVideo moves the source into the error directory and records the
// failure. It returns cause so the caller sees the original error.
func (m *Manager) failVideo(ctx context.Context, sess *session.Session, stg session.Stage, cause error) error {
	logger := logging.WithContext(ctx, m.logger)
	details := services.Details(cause)
	message := details.Message
	if dest, err := m.errorSink.Route(ctx, sess.VideoPath); err != nil {
		logging.WarnWithContext(logger, "failed to route source to error directory", "error_route_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "move the source manually"),
			logging.String(logging.FieldImpact, "source remains at its original path"),
		)
	} else {
		message = fmt.Sprintf("%s (moved to %s)", message, dest)
		sess.VideoPath = dest
	}
	sess.Status = session.StatusError
	sess.RecordError(stg, message)
	if err := m.store.Save(ctx, sess); err != nil {
		return errors.Join(cause, err)
	}
	logging.ErrorWithContext(logger, "video failed", "video_failed",
		logging.String("error_kind", details.Kind),
		logging.String(logging.FieldErrorHint, details.Hint),
		logging.Error(cause),
	)
	if err := m.notifier.VideoFailed(ctx, sess.Name, string(stg), errors.New(message)); err != nil {
		m.notifyFailed(logger, err)
	}
	return cause
}

func (m *Manager) notifyFailed(logger *slog.Logger, err error) {
	logging.WarnWithContext(logger, "notification failed", "notification_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
		logging.String(logging.FieldImpact, "no push message was delivered"),
	)
}
