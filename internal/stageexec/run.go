package stageexec

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"smartcut/internal/logging"
	"smartcut/internal/services"
	"smartcut/internal/session"
	"smartcut/internal/stage"
)

// Checkpointer persists session progress.
type Checkpointer interface {
	Save(context.Context, *session.Session) error
	SaveSegment(context.Context, *session.Session, *session.Segment) error
}

// ProgressFunc observes per-segment progress of a stage.
type ProgressFunc func(stage session.Stage, done, total int)

// Options controls stage execution and checkpoint behavior.
type Options struct {
	Logger      *slog.Logger
	Store       Checkpointer
	Handler     stage.Handler
	Stage       session.Stage
	Session     *session.Session
	MaxAttempts int
	Progress    ProgressFunc
}

// Result summarizes one stage run.
type Result struct {
	Processed int
	Failed    int
	// Pending counts segments that failed below the attempt limit and still
	// need a resumed run. The video stays in the stage while it is non-zero.
	Pending int
	Skipped bool
}

// Run executes a per-segment stage over the session's pending segments,
// checkpointing after every segment and once more when the stage completes.
// Segment-scoped failures are recorded and the stage moves on; any other
// error aborts the run and leaves earlier checkpoints intact.
func Run(ctx context.Context, opts Options) (Result, error) {
	if opts.Handler == nil {
		return Result{}, fmt.Errorf("stage handler unavailable: %s", opts.Stage)
	}
	if opts.Store == nil {
		return Result{}, fmt.Errorf("session store is required")
	}
	if opts.Session == nil {
		return Result{}, fmt.Errorf("session is required")
	}
	sess := opts.Session
	if sess.StageDone(opts.Stage) {
		return Result{Skipped: true}, nil
	}

	stageCtx := services.WithStage(services.WithSession(ctx, sess.UID), string(opts.Stage))
	stageLogger := logging.WithContext(stageCtx, opts.Logger)
	if aware, ok := opts.Handler.(stage.LoggerAware); ok {
		aware.SetLogger(stageLogger)
	}

	pending := sess.PendingSegments(opts.Stage)
	stageLogger.Info(
		"stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.Int("pending_segments", len(pending)),
		logging.String("source_file", strings.TrimSpace(sess.VideoPath)),
	)

	var result Result
	if len(pending) > 0 {
		if err := opts.Handler.Prepare(stageCtx, sess); err != nil {
			logStageFailure(stageLogger, err)
			return result, err
		}
		defer opts.Handler.Release()

		if err := processPending(stageCtx, stageLogger, opts, pending, &result); err != nil {
			return result, err
		}
	}

	result.Pending = len(sess.PendingSegments(opts.Stage))
	if result.Pending == 0 {
		sess.Advance(opts.Stage)
	}
	if err := opts.Store.Save(stageCtx, sess); err != nil {
		return result, err
	}

	if result.Pending > 0 {
		logging.WarnWithContext(stageLogger, "stage left segments pending", "stage_incomplete",
			logging.Int("pending_segments", result.Pending),
			logging.String(logging.FieldErrorHint, "resume the run to retry them"),
			logging.String(logging.FieldImpact, "later stages wait until every segment is done or failed"),
		)
		return result, nil
	}
	stageLogger.Info(
		"stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String("next_status", string(sess.Status)),
		logging.Int("processed", result.Processed),
		logging.Int("failed", result.Failed),
	)
	return result, nil
}

func processPending(ctx context.Context, logger *slog.Logger, opts Options, pending []*session.Segment, result *Result) error {
	sess := opts.Session
	sampler := logging.NewProgressSampler(10)
	for i, seg := range pending {
		if err := ctx.Err(); err != nil {
			return err
		}
		segCtx := services.WithSegment(ctx, seg.UID)
		segLogger := logging.WithContext(segCtx, logger)

		err := opts.Handler.Process(segCtx, sess, seg)
		switch {
		case err == nil:
			sess.CompleteSegment(seg, opts.Stage)
			result.Processed++
		case ctx.Err() != nil:
			// Cancelled mid-segment: leave the segment as last checkpointed.
			return ctx.Err()
		case errors.Is(err, context.Canceled):
			logStageFailure(segLogger, err)
			return err
		case !services.SegmentScoped(err):
			logStageFailure(segLogger, err)
			return err
		default:
			details := services.Details(err)
			permanent := sess.RecordSegmentFailure(seg, opts.Stage, details.Message, opts.MaxAttempts)
			if permanent {
				result.Failed++
			}
			segLogger.Warn("segment failed",
				logging.String(logging.FieldEventType, "segment_failure"),
				logging.String(logging.FieldErrorHint, details.Hint),
				logging.String("error_kind", details.Kind),
				logging.Int("attempts", seg.Attempts),
				logging.Bool("permanent", permanent),
				logging.Error(err),
			)
		}

		if err := opts.Store.SaveSegment(segCtx, sess, seg); err != nil {
			return err
		}

		done := i + 1
		if opts.Progress != nil {
			opts.Progress(opts.Stage, done, len(pending))
		}
		if sampler.ShouldLog(string(opts.Stage), done, len(pending)) {
			logger.Info("stage progress",
				logging.String(logging.FieldEventType, "stage_progress"),
				logging.Int("done", done),
				logging.Int("total", len(pending)),
			)
		}
	}
	return nil
}

func logStageFailure(logger *slog.Logger, err error) {
	details := services.Details(err)
	logger.Error(
		"stage failed",
		logging.String(logging.FieldEventType, "stage_failure"),
		logging.String(logging.FieldErrorHint, details.Hint),
		logging.String("error_kind", details.Kind),
		logging.Error(err),
	)
}
