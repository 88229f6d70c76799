package workflow

import (
	"context"

	"smartcut/internal/media/ffprobe"
	"smartcut/internal/segmenter"
	"smartcut/internal/session"
	"smartcut/internal/stage"
)

// StageSet bundles the per-segment handlers the manager orchestrates.
type StageSet struct {
	Analysis   stage.Handler
	Confidence stage.Handler
	Cut        stage.Handler
}

// SceneDetector finds shot boundaries in a window of the source.
type SceneDetector interface {
	Detect(ctx context.Context, path string, threshold float64, window segmenter.Window, minSceneLen float64) ([]segmenter.Range, error)
}

// MediaTool inspects the source.
type MediaTool interface {
	Duration(ctx context.Context, path string) (float64, error)
	Probe(ctx context.Context, path string) (ffprobe.Result, error)
}

// SessionStore persists sessions.
type SessionStore interface {
	Load(ctx context.Context, key string) (*session.Session, error)
	Save(ctx context.Context, sess *session.Session) error
	SaveSegment(ctx context.Context, sess *session.Session, seg *session.Segment) error
	Delete(ctx context.Context, key string) (bool, error)
}

// ErrorSink takes sources the pipeline cannot process.
type ErrorSink interface {
	Route(ctx context.Context, path string) (string, error)
}

// Result summarizes one Run.
type Result struct {
	Session *session.Session
	// AlreadyDone is set when the session had finished before this run.
	AlreadyDone bool
	// Incomplete is set when a stage left segments pending for a later run.
	Incomplete bool
	Stage      session.Stage
	Outputs    []string
	Failed     int
	TrashedTo  string
}
