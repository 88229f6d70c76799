package testsupport

import (
	"context"
	"testing"

	"smartcut/internal/config"
	"smartcut/internal/session"
)

// MustOpenStore opens a session.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *session.Store {
	t.Helper()

	store, err := session.Open(cfg)
	if err != nil {
		t.Fatalf("session.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewSession creates and saves a session with the given segment bounds. The
// video status is left at scenes_done so analysis picks the segments up.
func NewSession(t testing.TB, store *session.Store, key string, duration float64, bounds ...[2]float64) *session.Session {
	t.Helper()

	sess := session.New(key, key, "sample")
	sess.Duration = duration
	sess.FPS = 25
	var segments []*session.Segment
	for _, b := range bounds {
		segments = append(segments, session.NewSegment(b[0], b[1]))
	}
	sess.SetSegments(segments)
	sess.Advance(session.StageSegmentation)
	if err := store.Save(context.Background(), sess); err != nil {
		t.Fatalf("store.Save: %v", err)
	}
	return sess
}
