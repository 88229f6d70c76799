package workflow

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"smartcut/internal/logging"
	"smartcut/internal/services"
	"smartcut/internal/session"
)

// ErrSessionBusy is returned when another process holds the session lock.
var ErrSessionBusy = errors.New("session is being processed by another run")

// Run processes the video at path, resuming any earlier progress.
func (m *Manager) Run(ctx context.Context, path string) (Result, error) {
	key, err := SessionKey(path)
	if err != nil {
		return Result{}, err
	}
	ctx = services.WithRequestID(ctx, uuid.NewString())

	unlock, err := m.acquireLock(key)
	if err != nil {
		return Result{}, err
	}
	defer unlock()

	sess, err := m.loadOrCreate(ctx, key)
	if err != nil {
		return Result{}, err
	}
	ctx = services.WithSession(ctx, sess.UID)
	logger := logging.WithContext(ctx, m.logger)
	result := Result{Session: sess}

	if sess.Status == session.StatusDone {
		result.AlreadyDone = true
		result.Outputs = outputs(sess)
		logger.Info("session already complete", logging.String(logging.FieldEventType, "run_skipped"))
		return result, nil
	}

	if m.preflight {
		if err := m.runPreflightChecks(ctx, logger); err != nil {
			return result, services.Wrap(services.ErrConfiguration, "workflow", "preflight", "", err)
		}
	}

	logger.Info("run started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.String("status", string(sess.Status)),
		logging.String("source_file", sess.VideoPath),
		logging.Seconds("duration", sess.Duration),
	)

	for _, stg := range session.Stages() {
		result.Stage = stg
		if sess.StageDone(stg) {
			continue
		}
		pending, err := m.runStage(ctx, sess, stg)
		if err != nil {
			return result, err
		}
		if pending > 0 {
			result.Incomplete = true
			return result, nil
		}
	}

	trashedTo, err := m.finish(ctx, sess)
	if err != nil {
		return result, err
	}
	result.TrashedTo = trashedTo
	result.Outputs = outputs(sess)
	result.Failed = len(sess.FailedSegments())
	logger.Info("run completed",
		logging.String(logging.FieldEventType, "run_complete"),
		logging.Int("outputs", len(result.Outputs)),
		logging.Int("failed_segments", result.Failed),
	)
	if err := m.notifier.VideoCompleted(ctx, sess.Name, len(result.Outputs), result.Failed); err != nil {
		m.notifyFailed(logger, err)
	}
	return result, nil
}

// SessionKey returns the store key for a source path.
func SessionKey(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", services.Wrap(services.ErrValidation, "workflow", "session key", "empty path", nil)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "workflow", "session key", path, err)
	}
	return abs, nil
}

// LockPath returns the lock file guarding key.
func LockPath(lockDir, key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(lockDir, hex.EncodeToString(sum[:8])+".lock")
}

// WithSessionLock runs fn while holding the session lock for key. The CLI
// uses it for retry and drop so they never race a running pipeline.
func (m *Manager) WithSessionLock(key string, fn func() error) error {
	unlock, err := m.acquireLock(key)
	if err != nil {
		return err
	}
	defer unlock()
	return fn()
}

func (m *Manager) acquireLock(key string) (func(), error) {
	lockDir := m.cfg.LockDir()
	if err := os.MkdirAll(lockDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "workflow", "lock", "create lock directory", err)
	}
	lock := flock.New(LockPath(lockDir, key))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "workflow", "lock", lock.Path(), err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionBusy, key)
	}
	return func() {
		if err := lock.Unlock(); err != nil {
			m.logger.Warn("failed to release session lock",
				logging.String("lock", lock.Path()),
				logging.Error(err),
				logging.String(logging.FieldEventType, "lock_release_failed"),
				logging.String(logging.FieldErrorHint, "remove the stale lock file if no run is active"),
			)
		}
	}, nil
}

// loadOrCreate returns the stored session for key or probes the source and
// creates one. A session left in the error state restarts from scratch when
// the source is back at its original path.
func (m *Manager) loadOrCreate(ctx context.Context, key string) (*session.Session, error) {
	sess, err := m.store.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	if sess != nil && sess.Status != session.StatusError {
		return m.locateSource(ctx, sess)
	}
	if _, statErr := os.Stat(key); statErr != nil {
		if sess != nil {
			return nil, services.Wrap(services.ErrValidation, "workflow", "load session",
				"session is in error state and the source is no longer at its path", statErr)
		}
		return nil, services.Wrap(services.ErrNotFound, "workflow", "open source", key, statErr)
	}
	if sess != nil {
		if _, err := m.store.Delete(ctx, key); err != nil {
			return nil, err
		}
		m.logger.Info("restarting errored session", logging.String("source_file", key))
	}

	duration, err := m.media.Duration(ctx, key)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSuffix(filepath.Base(key), filepath.Ext(key))
	sess = session.New(key, key, name)
	sess.Duration = duration
	if meta, err := m.media.Probe(ctx, key); err == nil {
		sess.FPS = meta.FPS()
		sess.Resolution = meta.Resolution()
		sess.Codec = meta.VideoCodec()
		sess.Bitrate = meta.BitRate()
		sess.HasAudio = meta.HasAudio()
	} else if ctx.Err() != nil {
		return nil, ctx.Err()
	} else {
		m.logger.Warn("metadata probe failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "probe_metadata_failed"),
			logging.String(logging.FieldErrorHint, "fps and resolution will be blank in session details"),
		)
	}
	if err := m.store.Save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// locateSource checks that an unfinished session can still read its
// source. A source moved away from the stored path is picked up again at the
// original path when it was put back there.
func (m *Manager) locateSource(ctx context.Context, sess *session.Session) (*session.Session, error) {
	if sess.Status == session.StatusDone {
		return sess, nil
	}
	if _, err := os.Stat(sess.VideoPath); err == nil {
		return sess, nil
	}
	if sess.VideoPath == sess.Key {
		return nil, services.Wrap(services.ErrNotFound, "workflow", "open source", sess.Key, nil)
	}
	if _, err := os.Stat(sess.Key); err != nil {
		return nil, services.Wrap(services.ErrNotFound, "workflow", "open source",
			fmt.Sprintf("source is neither at %s nor at %s", sess.VideoPath, sess.Key), err)
	}
	m.logger.Info("source found at original path",
		logging.String("previous_path", sess.VideoPath),
		logging.String("source_file", sess.Key),
	)
	sess.VideoPath = sess.Key
	if err := m.store.Save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func outputs(sess *session.Session) []string {
	var out []string
	for _, seg := range sess.ActiveSegments() {
		if seg.OutputPath != "" {
			out = append(out, seg.OutputPath)
		}
	}
	return out
}
