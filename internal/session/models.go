package session

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the video-level pipeline state.
type Status string

const (
	StatusInit           Status = "init"
	StatusScenesDone     Status = "scenes_done"
	StatusIADone         Status = "ia_done"
	StatusConfidenceDone Status = "confidence_done"
	StatusHarmonized     Status = "harmonized"
	StatusDone           Status = "smartcut_done"
	// StatusError marks a source that was routed to the error directory.
	StatusError Status = "error"
)

var statusRank = map[Status]int{
	StatusInit:           0,
	StatusScenesDone:     1,
	StatusIADone:         2,
	StatusConfidenceDone: 3,
	StatusHarmonized:     4,
	StatusDone:           5,
}

// SegmentStatus is the per-segment pipeline state.
type SegmentStatus string

const (
	SegmentRaw            SegmentStatus = "raw"
	SegmentIADone         SegmentStatus = "ia_done"
	SegmentConfidenceDone SegmentStatus = "confidence_done"
	SegmentHarmonized     SegmentStatus = "harmonized"
	SegmentCut            SegmentStatus = "cut"
	SegmentFailed         SegmentStatus = "failed"
)

var segmentRank = map[SegmentStatus]int{
	SegmentRaw:            0,
	SegmentIADone:         1,
	SegmentConfidenceDone: 2,
	SegmentHarmonized:     3,
	SegmentCut:            4,
}

// Stage names one phase of the pipeline.
type Stage string

const (
	StageSegmentation Stage = "segmentation"
	StageAnalysis     Stage = "analysis"
	StageConfidence   Stage = "confidence"
	StageHarmonize    Stage = "harmonize"
	StageCut          Stage = "cut"
)

type stageSpec struct {
	entry   Status
	done    Status
	segment SegmentStatus
	// before is the segment status a segment holds while pending for the stage.
	before SegmentStatus
}

var stageSpecs = map[Stage]stageSpec{
	StageSegmentation: {entry: StatusInit, done: StatusScenesDone, segment: SegmentRaw},
	StageAnalysis:     {entry: StatusScenesDone, done: StatusIADone, segment: SegmentIADone, before: SegmentRaw},
	StageConfidence:   {entry: StatusIADone, done: StatusConfidenceDone, segment: SegmentConfidenceDone, before: SegmentIADone},
	StageHarmonize:    {entry: StatusConfidenceDone, done: StatusHarmonized, segment: SegmentHarmonized, before: SegmentConfidenceDone},
	StageCut:          {entry: StatusHarmonized, done: StatusDone, segment: SegmentCut, before: SegmentHarmonized},
}

// Stages lists the pipeline stages in execution order.
func Stages() []Stage {
	return []Stage{StageSegmentation, StageAnalysis, StageConfidence, StageHarmonize, StageCut}
}

// EntryStatus is the video status at which the stage starts.
func (s Stage) EntryStatus() Status { return stageSpecs[s].entry }

// DoneStatus is the video status the stage leaves behind.
func (s Stage) DoneStatus() Status { return stageSpecs[s].done }

// SegmentDone is the terminal segment status for the stage.
func (s Stage) SegmentDone() SegmentStatus { return stageSpecs[s].segment }

// Valid reports whether s names a known stage.
func (s Stage) Valid() bool {
	_, ok := stageSpecs[s]
	return ok
}

// Segment is one contiguous time range of the source and what the pipeline
// learned about it.
type Segment struct {
	ID          int64
	UID         string
	Start       float64
	End         float64
	Description string
	Keywords    []string
	Confidence  float64
	Status      SegmentStatus
	// MergedFrom lists source UIDs when the segment was produced by a merge.
	MergedFrom  []string
	Error       string
	FailedStage Stage
	Attempts    int
	OutputPath  string
	Model       string
	UpdatedAt   time.Time
}

// NewSegment creates a raw segment covering [start, end).
func NewSegment(start, end float64) *Segment {
	return &Segment{
		UID:    uuid.NewString(),
		Start:  start,
		End:    end,
		Status: SegmentRaw,
	}
}

// Duration returns the segment length in seconds.
func (s *Segment) Duration() float64 {
	return s.End - s.Start
}

// Merged reports whether the segment was produced by merging two or more sources.
func (s *Segment) Merged() bool {
	return len(s.MergedFrom) > 1
}

// ShortUID returns the first block of the UID for file names and tables.
func (s *Segment) ShortUID() string {
	if len(s.UID) > 8 {
		return s.UID[:8]
	}
	return s.UID
}

// ErrorEntry is one line of the session error log.
type ErrorEntry struct {
	ID         int64
	SegmentUID string
	Stage      Stage
	Message    string
	CreatedAt  time.Time
}

// Session is the persisted aggregate for one source video.
type Session struct {
	ID         int64
	UID        string
	Key        string
	VideoPath  string
	Name       string
	Duration   float64
	FPS        float64
	Resolution string
	Codec      string
	Bitrate    int64
	HasAudio   bool
	Status     Status
	Segments   []*Segment
	Errors     []ErrorEntry
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// New creates a session in the init state keyed by the absolute source path.
func New(key, videoPath, name string) *Session {
	now := time.Now().UTC()
	return &Session{
		UID:       uuid.NewString(),
		Key:       key,
		VideoPath: videoPath,
		Name:      name,
		Status:    StatusInit,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Reached reports whether the video has progressed to at least status.
// A session in the error state has reached nothing.
func (s *Session) Reached(status Status) bool {
	current, ok := statusRank[s.Status]
	if !ok {
		return false
	}
	target, ok := statusRank[status]
	if !ok {
		return false
	}
	return current >= target
}

// StageDone reports whether the stage's exit status has been reached.
func (s *Session) StageDone(stage Stage) bool {
	return s.Reached(stage.DoneStatus())
}

// PendingSegments returns the segments the stage still has to process, in
// ascending start order. Failed segments are never pending.
func (s *Session) PendingSegments(stage Stage) []*Segment {
	target := segmentRank[stage.SegmentDone()]
	var pending []*Segment
	for _, seg := range s.Segments {
		if seg.Status == SegmentFailed {
			continue
		}
		rank, ok := segmentRank[seg.Status]
		if !ok || rank < target {
			pending = append(pending, seg)
		}
	}
	sortByStart(pending)
	return pending
}

// ActiveSegments returns the segments that have not permanently failed.
func (s *Session) ActiveSegments() []*Segment {
	var active []*Segment
	for _, seg := range s.Segments {
		if seg.Status != SegmentFailed {
			active = append(active, seg)
		}
	}
	sortByStart(active)
	return active
}

// FailedSegments returns the permanently failed segments.
func (s *Session) FailedSegments() []*Segment {
	var failed []*Segment
	for _, seg := range s.Segments {
		if seg.Status == SegmentFailed {
			failed = append(failed, seg)
		}
	}
	sortByStart(failed)
	return failed
}

// Segment finds a segment by UID or UID prefix.
func (s *Session) Segment(uid string) (*Segment, bool) {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return nil, false
	}
	var match *Segment
	for _, seg := range s.Segments {
		if seg.UID == uid {
			return seg, true
		}
		if strings.HasPrefix(seg.UID, uid) {
			if match != nil {
				return nil, false
			}
			match = seg
		}
	}
	return match, match != nil
}

// SetSegments replaces the segment list, keeping it sorted by start.
func (s *Session) SetSegments(segments []*Segment) {
	s.Segments = segments
	sortByStart(s.Segments)
}

// CompleteSegment moves seg to the stage's terminal status and clears any
// error left by an earlier attempt.
func (s *Session) CompleteSegment(seg *Segment, stage Stage) {
	seg.Status = stage.SegmentDone()
	seg.Error = ""
	seg.FailedStage = ""
	seg.UpdatedAt = time.Now().UTC()
	s.UpdatedAt = seg.UpdatedAt
}

// RecordSegmentFailure notes a segment-scoped failure, appends it to the
// error log, and marks the segment failed once maxAttempts is reached. It
// reports whether the failure is now permanent.
func (s *Session) RecordSegmentFailure(seg *Segment, stage Stage, message string, maxAttempts int) bool {
	now := time.Now().UTC()
	seg.Attempts++
	seg.Error = strings.TrimSpace(message)
	seg.UpdatedAt = now
	s.UpdatedAt = now
	s.Errors = append(s.Errors, ErrorEntry{
		SegmentUID: seg.UID,
		Stage:      stage,
		Message:    seg.Error,
		CreatedAt:  now,
	})
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if seg.Attempts >= maxAttempts {
		seg.Status = SegmentFailed
		seg.FailedStage = stage
		return true
	}
	return false
}

// RecordError appends a session-level entry to the error log.
func (s *Session) RecordError(stage Stage, message string) {
	now := time.Now().UTC()
	s.UpdatedAt = now
	s.Errors = append(s.Errors, ErrorEntry{Stage: stage, Message: strings.TrimSpace(message), CreatedAt: now})
}

// StageErrors counts the video-level errors recorded for stage.
func (s *Session) StageErrors(stage Stage) int {
	var n int
	for _, entry := range s.Errors {
		if entry.Stage == stage && entry.SegmentUID == "" {
			n++
		}
	}
	return n
}

// Advance moves the video to the stage's exit status.
func (s *Session) Advance(stage Stage) {
	s.Status = stage.DoneStatus()
	s.UpdatedAt = time.Now().UTC()
}

// ResetFailed makes failed segments pending again for the stage they failed
// in and rewinds the video so that stage runs on the next resume. With no
// uids every failed segment is reset. Segments that failed before
// harmonization cannot be retried once the video has been harmonized, since
// the merged timeline no longer contains them.
func (s *Session) ResetFailed(uids ...string) ([]*Segment, error) {
	var targets []*Segment
	if len(uids) == 0 {
		targets = s.FailedSegments()
	} else {
		for _, uid := range uids {
			seg, ok := s.Segment(uid)
			if !ok {
				return nil, fmt.Errorf("segment %q not found", uid)
			}
			if seg.Status != SegmentFailed {
				return nil, fmt.Errorf("segment %s has not failed (status %s)", seg.ShortUID(), seg.Status)
			}
			targets = append(targets, seg)
		}
	}
	for _, seg := range targets {
		stage := seg.FailedStage
		if !stage.Valid() || stage == StageSegmentation {
			return nil, fmt.Errorf("segment %s has no retryable stage", seg.ShortUID())
		}
		if stage != StageCut && s.Reached(StatusHarmonized) {
			return nil, fmt.Errorf("segment %s failed during %s and the video is already harmonized", seg.ShortUID(), stage)
		}
	}
	for _, seg := range targets {
		stage := seg.FailedStage
		seg.Status = stageSpecs[stage].before
		seg.Attempts = 0
		seg.Error = ""
		seg.FailedStage = ""
		seg.UpdatedAt = time.Now().UTC()
		if s.Reached(stage.EntryStatus()) && s.StageDone(stage) {
			s.Status = stage.EntryStatus()
		}
	}
	if len(targets) > 0 {
		s.UpdatedAt = time.Now().UTC()
	}
	return targets, nil
}

// DropSegment removes a segment from the session and returns it.
func (s *Session) DropSegment(uid string) (*Segment, bool) {
	seg, ok := s.Segment(uid)
	if !ok {
		return nil, false
	}
	s.Segments = slices.DeleteFunc(s.Segments, func(candidate *Segment) bool {
		return candidate == seg
	})
	s.UpdatedAt = time.Now().UTC()
	return seg, true
}

// Coverage returns the share of the video spanned by active segments.
func (s *Session) Coverage() float64 {
	if s.Duration <= 0 {
		return 0
	}
	var total float64
	for _, seg := range s.ActiveSegments() {
		total += seg.Duration()
	}
	return total / s.Duration
}

func sortByStart(segments []*Segment) {
	slices.SortStableFunc(segments, func(a, b *Segment) int {
		switch {
		case a.Start < b.Start:
			return -1
		case a.Start > b.Start:
			return 1
		case a.End < b.End:
			return -1
		case a.End > b.End:
			return 1
		default:
			return 0
		}
	})
}
