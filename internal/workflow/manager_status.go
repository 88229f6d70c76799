package workflow

import (
	"context"
	"fmt"
	"os"

	"smartcut/internal/logging"
	"smartcut/internal/services"
	"smartcut/internal/session"
)

// Retry resets failed segments of the session at path so the next Run
// processes them again. With no uids every failed segment is reset.
func (m *Manager) Retry(ctx context.Context, path string, uids ...string) ([]*session.Segment, error) {
	var reset []*session.Segment
	err := m.withSession(ctx, path, func(sess *session.Session) error {
		var err error
		reset, err = sess.ResetFailed(uids...)
		if err != nil {
			return services.Wrap(services.ErrValidation, "workflow", "retry", "", err)
		}
		if len(reset) == 0 {
			return nil
		}
		if err := m.store.Save(ctx, sess); err != nil {
			return err
		}
		m.logger.Info("segments reset for retry",
			logging.String(logging.FieldEventType, "segments_retry"),
			logging.String(logging.FieldSession, sess.UID),
			logging.Int("segments", len(reset)),
			logging.String("status", string(sess.Status)),
		)
		return nil
	})
	return reset, err
}

// Drop removes one segment from the session at path.
func (m *Manager) Drop(ctx context.Context, path, uid string) (*session.Segment, error) {
	var dropped *session.Segment
	err := m.withSession(ctx, path, func(sess *session.Session) error {
		seg, ok := sess.DropSegment(uid)
		if !ok {
			return services.Wrap(services.ErrNotFound, "workflow", "drop", fmt.Sprintf("segment %q not found or ambiguous", uid), nil)
		}
		if err := m.store.Save(ctx, sess); err != nil {
			return err
		}
		dropped = seg
		m.logger.Info("segment dropped",
			logging.String(logging.FieldEventType, "segment_dropped"),
			logging.String(logging.FieldSession, sess.UID),
			logging.String(logging.FieldSegment, seg.UID),
		)
		m.trashOutput(ctx, seg)
		return nil
	})
	return dropped, err
}

// trashOutput moves the media file of a dropped segment into the trash.
func (m *Manager) trashOutput(ctx context.Context, seg *session.Segment) {
	if seg.OutputPath == "" {
		return
	}
	if _, err := os.Stat(seg.OutputPath); err != nil {
		return
	}
	dest, err := m.trash.Route(ctx, seg.OutputPath)
	if err != nil {
		logging.WarnWithContext(m.logger, "failed to trash dropped output", "trash_failed",
			logging.String("output_path", seg.OutputPath),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "delete the file manually"),
			logging.String(logging.FieldImpact, "the dropped segment's file stays in the output directory"),
		)
		return
	}
	seg.OutputPath = dest
}

// Forget deletes the stored session for path. Outputs on disk are kept.
func (m *Manager) Forget(ctx context.Context, path string) (bool, error) {
	key, err := SessionKey(path)
	if err != nil {
		return false, err
	}
	var removed bool
	err = m.WithSessionLock(key, func() error {
		var err error
		removed, err = m.store.Delete(ctx, key)
		return err
	})
	return removed, err
}

func (m *Manager) withSession(ctx context.Context, path string, fn func(*session.Session) error) error {
	key, err := SessionKey(path)
	if err != nil {
		return err
	}
	return m.WithSessionLock(key, func() error {
		sess, err := m.store.Load(ctx, key)
		if err != nil {
			return err
		}
		if sess == nil {
			return services.Wrap(services.ErrNotFound, "workflow", "load session", key, nil)
		}
		return fn(sess)
	})
}
