package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"smartcut/internal/config"
	"smartcut/internal/services"
)

// Store persists sessions in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Summary is the listing view of a stored session.
type Summary struct {
	UID       string
	Key       string
	Name      string
	Status    Status
	Segments  int
	Failed    int
	Duration  float64
	UpdatedAt time.Time
}

const segmentColumns = "uid, start_s, end_s, description, keywords_json, confidence, status, merged_from_json, error_message, failed_stage, attempts, output_path, model, updated_at, id"

const sessionColumns = "id, uid, source_key, video_path, name, duration, fps, resolution, codec, bitrate, has_audio, status, created_at, updated_at"

// Open connects to the session database under the configured state directory.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.DatabasePath())
}

// OpenPath opens or creates the database at path.
func OpenPath(path string) (*Store, error) {
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db, path: path}
	if err := store.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Load returns the session stored under key, or nil when none exists.
func (s *Store) Load(ctx context.Context, key string) (*Session, error) {
	ctx = ensureContext(ctx)
	var sess *Session
	err := retryOnBusy(ctx, func() error {
		row := s.db.QueryRowContext(ctx, "SELECT "+sessionColumns+" FROM sessions WHERE source_key = ?", key)
		loaded, err := scanSession(row)
		if err != nil {
			return err
		}
		if err := s.loadSegments(ctx, loaded); err != nil {
			return err
		}
		if err := s.loadErrors(ctx, loaded); err != nil {
			return err
		}
		sess = loaded
		return nil
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "session", "load", key, err)
	}
	return sess, nil
}

func (s *Store) loadSegments(ctx context.Context, sess *Session) error {
	rows, err := s.db.QueryContext(ctx, "SELECT "+segmentColumns+" FROM segments WHERE session_id = ? ORDER BY start_s, end_s", sess.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	sess.Segments = nil
	for rows.Next() {
		seg, err := scanSegment(rows)
		if err != nil {
			return err
		}
		sess.Segments = append(sess.Segments, seg)
	}
	return rows.Err()
}

func (s *Store) loadErrors(ctx context.Context, sess *Session) error {
	rows, err := s.db.QueryContext(ctx, "SELECT id, segment_uid, stage, message, created_at FROM session_errors WHERE session_id = ? ORDER BY id", sess.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	sess.Errors = nil
	for rows.Next() {
		var (
			entry      ErrorEntry
			segmentUID sql.NullString
			stage      string
			created    string
		)
		if err := rows.Scan(&entry.ID, &segmentUID, &stage, &entry.Message, &created); err != nil {
			return err
		}
		entry.SegmentUID = segmentUID.String
		entry.Stage = Stage(stage)
		if ts, err := parseTimeString(created); err == nil {
			entry.CreatedAt = ts
		}
		sess.Errors = append(sess.Errors, entry)
	}
	return rows.Err()
}

// Save writes the whole session in one transaction: the session row, every
// segment, and error log entries not yet persisted. Segments no longer in the
// session are deleted.
func (s *Store) Save(ctx context.Context, sess *Session) error {
	if sess == nil {
		return services.Wrap(services.ErrValidation, "session", "save", "nil session", nil)
	}
	ctx = ensureContext(ctx)
	var (
		sessionID int64
		errorIDs  []int64
	)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		id, err := upsertSession(ctx, tx, sess)
		if err != nil {
			return err
		}
		sessionID = id
		uids := make([]any, 0, len(sess.Segments)+1)
		uids = append(uids, id)
		for _, seg := range sess.Segments {
			if err := upsertSegment(ctx, tx, id, seg); err != nil {
				return err
			}
			uids = append(uids, seg.UID)
		}
		query := "DELETE FROM segments WHERE session_id = ?"
		if len(uids) > 1 {
			query += " AND uid NOT IN (" + placeholders(len(uids)-1) + ")"
		}
		if _, err := tx.ExecContext(ctx, query, uids...); err != nil {
			return fmt.Errorf("prune segments: %w", err)
		}
		errorIDs, err = insertErrors(ctx, tx, id, sess.Errors)
		return err
	})
	if err != nil {
		return services.Wrap(services.ErrPersistence, "session", "save", sess.Key, err)
	}
	sess.ID = sessionID
	assignErrorIDs(sess, errorIDs)
	return nil
}

// SaveSegment checkpoints one segment together with the session row and any
// new error log entries.
func (s *Store) SaveSegment(ctx context.Context, sess *Session, seg *Segment) error {
	if sess == nil || seg == nil {
		return services.Wrap(services.ErrValidation, "session", "save segment", "nil session or segment", nil)
	}
	ctx = ensureContext(ctx)
	var (
		sessionID int64
		errorIDs  []int64
	)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		id, err := upsertSession(ctx, tx, sess)
		if err != nil {
			return err
		}
		sessionID = id
		if err := upsertSegment(ctx, tx, id, seg); err != nil {
			return err
		}
		errorIDs, err = insertErrors(ctx, tx, id, sess.Errors)
		return err
	})
	if err != nil {
		return services.Wrap(services.ErrPersistence, "session", "save segment", seg.UID, err)
	}
	sess.ID = sessionID
	assignErrorIDs(sess, errorIDs)
	return nil
}

// List returns a summary of every stored session, most recently updated first.
func (s *Store) List(ctx context.Context) ([]Summary, error) {
	ctx = ensureContext(ctx)
	var summaries []Summary
	err := retryOnBusy(ctx, func() error {
		rows, err := s.db.QueryContext(ctx, `SELECT s.uid, s.source_key, s.name, s.status, s.duration, s.updated_at,
	(SELECT COUNT(1) FROM segments g WHERE g.session_id = s.id),
	(SELECT COUNT(1) FROM segments g WHERE g.session_id = s.id AND g.status = ?)
FROM sessions s ORDER BY s.updated_at DESC, s.id DESC`, string(SegmentFailed))
		if err != nil {
			return err
		}
		defer rows.Close()
		summaries = summaries[:0]
		for rows.Next() {
			var (
				summary Summary
				status  string
				updated string
			)
			if err := rows.Scan(&summary.UID, &summary.Key, &summary.Name, &status, &summary.Duration, &updated, &summary.Segments, &summary.Failed); err != nil {
				return err
			}
			summary.Status = Status(status)
			if ts, err := parseTimeString(updated); err == nil {
				summary.UpdatedAt = ts
			}
			summaries = append(summaries, summary)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "session", "list", "", err)
	}
	return summaries, nil
}

// Delete removes the session stored under key along with its segments and
// error log. It reports whether a session existed.
func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	res, err := s.execWithRetry(ctx, "DELETE FROM sessions WHERE source_key = ?", key)
	if err != nil {
		return false, services.Wrap(services.ErrPersistence, "session", "delete", key, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, services.Wrap(services.ErrPersistence, "session", "delete", key, err)
	}
	return affected > 0, nil
}

func upsertSession(ctx context.Context, tx *sql.Tx, sess *Session) (int64, error) {
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = time.Now().UTC()
	}
	if sess.UpdatedAt.IsZero() {
		sess.UpdatedAt = sess.CreatedAt
	}
	_, err := tx.ExecContext(ctx, `INSERT INTO sessions (uid, source_key, video_path, name, duration, fps, resolution, codec, bitrate, has_audio, status, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(source_key) DO UPDATE SET
	video_path = excluded.video_path,
	name = excluded.name,
	duration = excluded.duration,
	fps = excluded.fps,
	resolution = excluded.resolution,
	codec = excluded.codec,
	bitrate = excluded.bitrate,
	has_audio = excluded.has_audio,
	status = excluded.status,
	updated_at = excluded.updated_at`,
		sess.UID,
		sess.Key,
		sess.VideoPath,
		sess.Name,
		sess.Duration,
		sess.FPS,
		sess.Resolution,
		sess.Codec,
		sess.Bitrate,
		boolToInt(sess.HasAudio),
		string(sess.Status),
		formatTime(sess.CreatedAt),
		formatTime(sess.UpdatedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("upsert session: %w", err)
	}
	var id int64
	if err := tx.QueryRowContext(ctx, "SELECT id FROM sessions WHERE source_key = ?", sess.Key).Scan(&id); err != nil {
		return 0, fmt.Errorf("resolve session id: %w", err)
	}
	return id, nil
}

func upsertSegment(ctx context.Context, tx *sql.Tx, sessionID int64, seg *Segment) error {
	keywords, err := encodeStrings(seg.Keywords)
	if err != nil {
		return fmt.Errorf("encode keywords: %w", err)
	}
	mergedFrom, err := encodeStrings(seg.MergedFrom)
	if err != nil {
		return fmt.Errorf("encode merged_from: %w", err)
	}
	updated := seg.UpdatedAt
	if updated.IsZero() {
		updated = time.Now().UTC()
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO segments (session_id, uid, start_s, end_s, description, keywords_json, confidence, status, merged_from_json, error_message, failed_stage, attempts, output_path, model, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(uid) DO UPDATE SET
	start_s = excluded.start_s,
	end_s = excluded.end_s,
	description = excluded.description,
	keywords_json = excluded.keywords_json,
	confidence = excluded.confidence,
	status = excluded.status,
	merged_from_json = excluded.merged_from_json,
	error_message = excluded.error_message,
	failed_stage = excluded.failed_stage,
	attempts = excluded.attempts,
	output_path = excluded.output_path,
	model = excluded.model,
	updated_at = excluded.updated_at`,
		sessionID,
		seg.UID,
		seg.Start,
		seg.End,
		nullableString(seg.Description),
		keywords,
		seg.Confidence,
		string(seg.Status),
		mergedFrom,
		nullableString(seg.Error),
		nullableString(string(seg.FailedStage)),
		seg.Attempts,
		nullableString(seg.OutputPath),
		nullableString(seg.Model),
		formatTime(updated),
	)
	if err != nil {
		return fmt.Errorf("upsert segment %s: %w", seg.UID, err)
	}
	return nil
}

// insertErrors writes entries that have no ID yet and returns the IDs they
// received, aligned with sess.Errors. Existing entries map to their own ID.
func insertErrors(ctx context.Context, tx *sql.Tx, sessionID int64, entries []ErrorEntry) ([]int64, error) {
	ids := make([]int64, len(entries))
	for i, entry := range entries {
		if entry.ID != 0 {
			ids[i] = entry.ID
			continue
		}
		created := entry.CreatedAt
		if created.IsZero() {
			created = time.Now().UTC()
		}
		res, err := tx.ExecContext(ctx,
			"INSERT INTO session_errors (session_id, segment_uid, stage, message, created_at) VALUES (?, ?, ?, ?, ?)",
			sessionID, nullableString(entry.SegmentUID), string(entry.Stage), entry.Message, formatTime(created),
		)
		if err != nil {
			return nil, fmt.Errorf("insert error entry: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("error entry id: %w", err)
		}
		ids[i] = id
	}
	return ids, nil
}

func assignErrorIDs(sess *Session, ids []int64) {
	for i := range sess.Errors {
		if i < len(ids) {
			sess.Errors[i].ID = ids[i]
		}
	}
}

func scanSession(scanner interface{ Scan(dest ...any) error }) (*Session, error) {
	var (
		sess     Session
		status   string
		hasAudio int64
		created  string
		updated  string
	)
	if err := scanner.Scan(
		&sess.ID,
		&sess.UID,
		&sess.Key,
		&sess.VideoPath,
		&sess.Name,
		&sess.Duration,
		&sess.FPS,
		&sess.Resolution,
		&sess.Codec,
		&sess.Bitrate,
		&hasAudio,
		&status,
		&created,
		&updated,
	); err != nil {
		return nil, err
	}
	sess.Status = Status(status)
	sess.HasAudio = hasAudio != 0
	if ts, err := parseTimeString(created); err == nil {
		sess.CreatedAt = ts
	}
	if ts, err := parseTimeString(updated); err == nil {
		sess.UpdatedAt = ts
	}
	return &sess, nil
}

func scanSegment(scanner interface{ Scan(dest ...any) error }) (*Segment, error) {
	var (
		seg         Segment
		description sql.NullString
		keywords    sql.NullString
		status      string
		mergedFrom  sql.NullString
		errMessage  sql.NullString
		failedStage sql.NullString
		outputPath  sql.NullString
		model       sql.NullString
		updated     sql.NullString
	)
	if err := scanner.Scan(
		&seg.UID,
		&seg.Start,
		&seg.End,
		&description,
		&keywords,
		&seg.Confidence,
		&status,
		&mergedFrom,
		&errMessage,
		&failedStage,
		&seg.Attempts,
		&outputPath,
		&model,
		&updated,
		&seg.ID,
	); err != nil {
		return nil, err
	}
	seg.Description = description.String
	seg.Status = SegmentStatus(status)
	seg.Error = errMessage.String
	seg.FailedStage = Stage(failedStage.String)
	seg.OutputPath = outputPath.String
	seg.Model = model.String
	var err error
	if seg.Keywords, err = decodeStrings(keywords.String); err != nil {
		return nil, fmt.Errorf("decode keywords for %s: %w", seg.UID, err)
	}
	if seg.MergedFrom, err = decodeStrings(mergedFrom.String); err != nil {
		return nil, fmt.Errorf("decode merged_from for %s: %w", seg.UID, err)
	}
	if ts, err := parseTimeString(updated.String); err == nil {
		seg.UpdatedAt = ts
	}
	return &seg, nil
}

func encodeStrings(values []string) (any, error) {
	if len(values) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func decodeStrings(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var values []string
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, err
	}
	return values, nil
}
