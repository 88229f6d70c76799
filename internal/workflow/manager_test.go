package workflow_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/gofrs/flock"

	"smartcut/internal/config"
	"smartcut/internal/media/ffprobe"
	"smartcut/internal/segmenter"
	"smartcut/internal/services"
	"smartcut/internal/services/llm"
	"smartcut/internal/session"
	"smartcut/internal/stage"
	"smartcut/internal/testsupport"
	"smartcut/internal/workflow"
)

type fakeDetector struct {
	mu     sync.Mutex
	calls  int
	ranges func(window segmenter.Window) []segmenter.Range
}

func (d *fakeDetector) Detect(_ context.Context, _ string, _ float64, window segmenter.Window, _ float64) ([]segmenter.Range, error) {
	d.mu.Lock()
	d.calls++
	d.mu.Unlock()
	return d.ranges(window), nil
}

// evenScenes splits every window into step-second ranges.
func evenScenes(step float64) func(segmenter.Window) []segmenter.Range {
	return func(window segmenter.Window) []segmenter.Range {
		var out []segmenter.Range
		for start := window.Start; start < window.End; start += step {
			out = append(out, segmenter.Range{Start: start, End: min(start+step, window.End)})
		}
		return out
	}
}

type fakeMedia struct {
	duration float64
	err      error
}

func (m fakeMedia) Duration(context.Context, string) (float64, error) {
	return m.duration, m.err
}

func (m fakeMedia) Probe(context.Context, string) (ffprobe.Result, error) {
	return ffprobe.Result{}, nil
}

type fakeHandler struct {
	name     string
	calls    map[string]int
	prepared int
	released int
	fail     func(seg *session.Segment) error
	apply    func(seg *session.Segment)
}

func newFakeHandler(name string, apply func(*session.Segment)) *fakeHandler {
	return &fakeHandler{name: name, calls: map[string]int{}, apply: apply}
}

func (h *fakeHandler) Prepare(context.Context, *session.Session) error {
	h.prepared++
	return nil
}

func (h *fakeHandler) Process(_ context.Context, _ *session.Session, seg *session.Segment) error {
	h.calls[seg.UID]++
	if h.fail != nil {
		if err := h.fail(seg); err != nil {
			return err
		}
	}
	if h.apply != nil {
		h.apply(seg)
	}
	return nil
}

func (h *fakeHandler) Release() { h.released++ }

func (h *fakeHandler) HealthCheck(context.Context) stage.Health { return stage.Healthy(h.name) }

func (h *fakeHandler) total() int {
	var n int
	for _, c := range h.calls {
		n += c
	}
	return n
}

type fakeNotifier struct {
	completed []string
	failed    []string
}

func (n *fakeNotifier) VideoCompleted(_ context.Context, name string, outputs, failed int) error {
	n.completed = append(n.completed, fmt.Sprintf("%s:%d:%d", name, outputs, failed))
	return nil
}

func (n *fakeNotifier) VideoFailed(_ context.Context, name, stage string, _ error) error {
	n.failed = append(n.failed, name+":"+stage)
	return nil
}

func (n *fakeNotifier) Test(context.Context) error { return nil }

type harness struct {
	cfg        *config.Config
	store      *session.Store
	detector   *fakeDetector
	analysis   *fakeHandler
	confidence *fakeHandler
	cut        *fakeHandler
	notifier   *fakeNotifier
	manager    *workflow.Manager
	source     string
}

func newHarness(t *testing.T, opts ...testsupport.ConfigOption) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	store := testsupport.MustOpenStore(t, cfg)
	source := testsupport.WriteSource(t, cfg, "holiday.mp4")

	h := &harness{
		cfg:      cfg,
		store:    store,
		detector: &fakeDetector{ranges: evenScenes(10)},
		notifier: &fakeNotifier{},
		source:   source,
	}
	n := 0
	h.analysis = newFakeHandler("analysis", func(seg *session.Segment) {
		n++
		seg.Description = fmt.Sprintf("scene %d", n)
		seg.Keywords = []string{fmt.Sprintf("kw%d", n)}
	})
	h.confidence = newFakeHandler("confidence", func(seg *session.Segment) {
		seg.Confidence = 0.5
	})
	h.cut = newFakeHandler("cut", func(seg *session.Segment) {
		seg.OutputPath = filepath.Join(cfg.Paths.OutputDir, seg.ShortUID()+".mp4")
	})
	h.manager = workflow.NewManager(cfg, store, h.detector, fakeMedia{duration: 30}, nil, workflow.WithNotifier(h.notifier))
	h.manager.ConfigureStages(workflow.StageSet{Analysis: h.analysis, Confidence: h.confidence, Cut: h.cut})
	return h
}

func (h *harness) load(t *testing.T) *session.Session {
	t.Helper()
	key, err := workflow.SessionKey(h.source)
	if err != nil {
		t.Fatalf("SessionKey: %v", err)
	}
	sess, err := h.store.Load(context.Background(), key)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return sess
}

func TestRunProcessesEveryStage(t *testing.T) {
	h := newHarness(t)

	res, err := h.manager.Run(context.Background(), h.source)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.AlreadyDone || res.Incomplete {
		t.Fatalf("unexpected flags %+v", res)
	}
	if len(res.Outputs) != 3 || res.Failed != 0 {
		t.Fatalf("expected 3 outputs and no failures, got %+v", res)
	}
	if res.TrashedTo == "" {
		t.Fatal("expected source moved to trash")
	}
	if _, err := os.Stat(h.source); !os.IsNotExist(err) {
		t.Fatalf("source should be gone, stat err %v", err)
	}

	sess := h.load(t)
	if sess.Status != session.StatusDone {
		t.Fatalf("expected done, got %s", sess.Status)
	}
	if sess.VideoPath != res.TrashedTo || sess.Key == sess.VideoPath {
		t.Fatalf("stored source path %q should follow the trash move to %q", sess.VideoPath, res.TrashedTo)
	}
	if sess.Name != "holiday" || sess.Duration != 30 {
		t.Fatalf("unexpected session metadata %+v", sess)
	}
	for _, seg := range sess.Segments {
		if seg.Status != session.SegmentCut || seg.OutputPath == "" {
			t.Fatalf("segment not cut: %+v", seg)
		}
	}
	for _, handler := range []*fakeHandler{h.analysis, h.confidence, h.cut} {
		if handler.prepared != 1 || handler.released != 1 || handler.total() != 3 {
			t.Fatalf("%s: prepared=%d released=%d calls=%d", handler.name, handler.prepared, handler.released, handler.total())
		}
	}
	if len(h.notifier.completed) != 1 || h.notifier.completed[0] != "holiday:3:0" {
		t.Fatalf("expected one completion notification, got %v", h.notifier.completed)
	}
}

func TestRunAlreadyDoneDoesNoWork(t *testing.T) {
	h := newHarness(t)
	h.cfg.Cleanup.TrashSource = false
	if _, err := h.manager.Run(context.Background(), h.source); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	detectCalls := h.detector.calls

	res, err := h.manager.Run(context.Background(), h.source)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if !res.AlreadyDone || len(res.Outputs) != 3 {
		t.Fatalf("expected already done with outputs, got %+v", res)
	}
	if h.detector.calls != detectCalls || h.analysis.total() != 3 || h.cut.total() != 3 {
		t.Fatal("completed session must not be reprocessed")
	}
}

func TestRunResumesWithoutRepeatingWork(t *testing.T) {
	h := newHarness(t)
	failed := false
	h.analysis.fail = func(seg *session.Segment) error {
		if seg.Start == 10 && !failed {
			failed = true
			return services.Wrap(services.ErrResource, "analysis", "load model", "out of memory", nil)
		}
		return nil
	}

	_, err := h.manager.Run(context.Background(), h.source)
	if !errors.Is(err, services.ErrResource) {
		t.Fatalf("expected resource error, got %v", err)
	}
	sess := h.load(t)
	if sess.Status != session.StatusScenesDone {
		t.Fatalf("expected video to stay in analysis, got %s", sess.Status)
	}
	if sess.Segments[0].Status != session.SegmentIADone || sess.Segments[1].Status != session.SegmentRaw {
		t.Fatalf("unexpected checkpoint state %s/%s", sess.Segments[0].Status, sess.Segments[1].Status)
	}
	detectCalls := h.detector.calls

	if _, err := h.manager.Run(context.Background(), h.source); err != nil {
		t.Fatalf("resumed Run: %v", err)
	}
	if h.detector.calls != detectCalls {
		t.Fatal("segmentation must not run again")
	}
	for _, seg := range sess.Segments {
		want := 1
		if seg.Start == 10 {
			want = 2
		}
		if got := h.analysis.calls[seg.UID]; got != want {
			t.Fatalf("segment at %v analysed %d times, want %d", seg.Start, got, want)
		}
	}
	if h.load(t).Status != session.StatusDone {
		t.Fatal("expected resumed run to finish")
	}
}

func TestRunIsolatesSegmentFailure(t *testing.T) {
	h := newHarness(t)
	h.analysis.fail = func(seg *session.Segment) error {
		if seg.Start == 10 {
			return services.Wrap(services.ErrAnalysis, "analysis", "describe", "unusable output", nil)
		}
		return nil
	}

	res, err := h.manager.Run(context.Background(), h.source)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Failed != 1 || len(res.Outputs) != 2 {
		t.Fatalf("expected one failure and two outputs, got %+v", res)
	}
	if res.TrashedTo != "" {
		t.Fatalf("source with failed segments must be kept, trashed to %q", res.TrashedTo)
	}
	if _, err := os.Stat(h.source); err != nil {
		t.Fatalf("source must stay in place: %v", err)
	}
	sess := h.load(t)
	failed := sess.FailedSegments()
	if len(failed) != 1 || failed[0].FailedStage != session.StageAnalysis || failed[0].Error == "" {
		t.Fatalf("unexpected failed segments %+v", failed)
	}
	if h.confidence.calls[failed[0].UID] != 0 || h.cut.calls[failed[0].UID] != 0 {
		t.Fatal("failed segment must not reach later stages")
	}
	if len(sess.Errors) != 1 {
		t.Fatalf("expected one error log entry, got %d", len(sess.Errors))
	}
}

func TestRunBelowAttemptLimitIsIncomplete(t *testing.T) {
	h := newHarness(t, testsupport.WithMaxSegmentAttempts(2))
	h.confidence.fail = func(seg *session.Segment) error {
		if seg.Start == 0 {
			return services.Wrap(services.ErrAnalysis, "confidence", "score", "embedding failed", nil)
		}
		return nil
	}

	res, err := h.manager.Run(context.Background(), h.source)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.Incomplete || res.Stage != session.StageConfidence {
		t.Fatalf("expected incomplete confidence stage, got %+v", res)
	}
	if h.cut.total() != 0 {
		t.Fatal("cut must wait for confidence")
	}

	h.confidence.fail = nil
	res, err = h.manager.Run(context.Background(), h.source)
	if err != nil || res.Incomplete {
		t.Fatalf("expected resumed run to complete, got %+v, %v", res, err)
	}
	if h.confidence.total() != 4 {
		t.Fatalf("expected only the pending segment to be rescored, got %d calls", h.confidence.total())
	}
}

func TestRunCoverageFailureRoutesToErrorDir(t *testing.T) {
	h := newHarness(t)
	h.detector.ranges = evenScenes(1)

	_, err := h.manager.Run(context.Background(), h.source)
	if !errors.Is(err, services.ErrCoverage) {
		t.Fatalf("expected coverage error, got %v", err)
	}
	if _, statErr := os.Stat(h.source); !os.IsNotExist(statErr) {
		t.Fatal("source should have been moved to the error directory")
	}
	entries, _ := filepath.Glob(filepath.Join(h.cfg.Paths.ErrorDir, "*", "holiday.mp4"))
	if len(entries) != 1 {
		t.Fatalf("expected source under error dir, found %v", entries)
	}
	sess := h.load(t)
	if sess.Status != session.StatusError || len(sess.Errors) != 1 {
		t.Fatalf("unexpected session state %s with %d errors", sess.Status, len(sess.Errors))
	}
	if sess.VideoPath != entries[0] {
		t.Fatalf("stored source path %q should point into the error dir %q", sess.VideoPath, entries[0])
	}
	if h.analysis.total() != 0 {
		t.Fatal("analysis must not run after a coverage failure")
	}
	if len(h.notifier.failed) != 1 || h.notifier.failed[0] != "holiday:segmentation" {
		t.Fatalf("expected one failure notification, got %v", h.notifier.failed)
	}
}

func TestRunUnreadableSourceSavesNothing(t *testing.T) {
	h := newHarness(t)
	media := fakeMedia{err: services.Wrap(services.ErrFormat, "probe", "ffprobe", "invalid data", nil)}
	m := workflow.NewManager(h.cfg, h.store, h.detector, media, nil)

	_, err := m.Run(context.Background(), h.source)
	if !errors.Is(err, services.ErrFormat) {
		t.Fatalf("expected format error, got %v", err)
	}
	if sess := h.load(t); sess != nil {
		t.Fatalf("no session should be stored, got %+v", sess)
	}
	if h.detector.calls != 0 {
		t.Fatal("detector must not run")
	}
}

func TestRunMissingSource(t *testing.T) {
	h := newHarness(t)
	_, err := h.manager.Run(context.Background(), filepath.Join(testsupport.BaseDir(h.cfg), "missing.mp4"))
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRunRefusesBusySession(t *testing.T) {
	h := newHarness(t)
	key, _ := workflow.SessionKey(h.source)
	if err := os.MkdirAll(h.cfg.LockDir(), 0o755); err != nil {
		t.Fatal(err)
	}
	lock := flock.New(workflow.LockPath(h.cfg.LockDir(), key))
	if ok, err := lock.TryLock(); err != nil || !ok {
		t.Fatalf("TryLock: %v %v", ok, err)
	}
	defer lock.Unlock()

	if _, err := h.manager.Run(context.Background(), h.source); !errors.Is(err, workflow.ErrSessionBusy) {
		t.Fatalf("expected busy error, got %v", err)
	}
}

func TestRetryCutFailure(t *testing.T) {
	h := newHarness(t)
	h.cut.fail = func(seg *session.Segment) error {
		if seg.Start == 20 {
			return services.Wrap(services.ErrExternalTool, "cut", "ffmpeg", "encoder error", nil)
		}
		return nil
	}
	first, err := h.manager.Run(context.Background(), h.source)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if first.TrashedTo != "" {
		t.Fatal("source with a failed cut must not be trashed")
	}

	reset, err := h.manager.Retry(context.Background(), h.source)
	if err != nil || len(reset) != 1 {
		t.Fatalf("Retry: %v (%d reset)", err, len(reset))
	}
	if sess := h.load(t); sess.Status != session.StatusHarmonized {
		t.Fatalf("expected rewind to harmonized, got %s", sess.Status)
	}

	h.cut.fail = nil
	res, err := h.manager.Run(context.Background(), h.source)
	if err != nil {
		t.Fatalf("rerun: %v", err)
	}
	if len(res.Outputs) != 3 || res.Failed != 0 {
		t.Fatalf("expected all outputs after retry, got %+v", res)
	}
	if h.cut.calls[reset[0].UID] != 2 || h.cut.total() != 4 {
		t.Fatalf("expected only the failed segment to be cut again, calls=%v", h.cut.calls)
	}
	if res.TrashedTo == "" {
		t.Fatal("completed rerun should trash the source")
	}
	if sess := h.load(t); sess.VideoPath != res.TrashedTo {
		t.Fatalf("stored source path %q, want %q", sess.VideoPath, res.TrashedTo)
	}
}

func TestRetryAnalysisFailureAfterHarmonizeIsRejected(t *testing.T) {
	h := newHarness(t)
	h.cfg.Cleanup.TrashSource = false
	h.analysis.fail = func(seg *session.Segment) error {
		if seg.Start == 0 {
			return services.Wrap(services.ErrAnalysis, "analysis", "describe", "bad", nil)
		}
		return nil
	}
	if _, err := h.manager.Run(context.Background(), h.source); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, err := h.manager.Retry(context.Background(), h.source); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDropAndForget(t *testing.T) {
	h := newHarness(t)
	h.cfg.Cleanup.TrashSource = false
	if _, err := h.manager.Run(context.Background(), h.source); err != nil {
		t.Fatalf("Run: %v", err)
	}
	target := h.load(t).Segments[1]
	testsupport.WriteFile(t, target.OutputPath, 64)

	dropped, err := h.manager.Drop(context.Background(), h.source, target.ShortUID())
	if err != nil || dropped.UID != target.UID {
		t.Fatalf("Drop: %v", err)
	}
	if _, err := os.Stat(target.OutputPath); !os.IsNotExist(err) {
		t.Fatalf("dropped output should leave the output dir, stat err %v", err)
	}
	if rel, err := filepath.Rel(h.cfg.Paths.TrashDir, dropped.OutputPath); err != nil || rel == filepath.Base(rel) {
		t.Fatalf("dropped output should sit in a dated trash dir, got %q", dropped.OutputPath)
	}
	if _, err := os.Stat(dropped.OutputPath); err != nil {
		t.Fatalf("trashed output missing: %v", err)
	}
	if got := len(h.load(t).Segments); got != 2 {
		t.Fatalf("expected 2 segments after drop, got %d", got)
	}
	if _, err := h.manager.Drop(context.Background(), h.source, "nope"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	removed, err := h.manager.Forget(context.Background(), h.source)
	if err != nil || !removed {
		t.Fatalf("Forget: %v %v", removed, err)
	}
	if h.load(t) != nil {
		t.Fatal("session should be gone")
	}
}

func TestHealthReportsMissingHandlers(t *testing.T) {
	h := newHarness(t)
	m := workflow.NewManager(h.cfg, h.store, h.detector, fakeMedia{duration: 30}, nil)
	m.ConfigureStages(workflow.StageSet{Analysis: h.analysis})

	health := m.Health(context.Background())
	if len(health) != 3 || !health[0].Ready || health[1].Ready || health[2].Ready {
		t.Fatalf("unexpected health %+v", health)
	}
}

type failingSink struct{ calls int }

func (s *failingSink) Route(context.Context, string) (string, error) {
	s.calls++
	return "", errors.New("read-only filesystem")
}

func TestRunSurvivesQuarantineFailures(t *testing.T) {
	h := newHarness(t)
	trash := &failingSink{}
	m := workflow.NewManager(h.cfg, h.store, h.detector, fakeMedia{duration: 30}, nil,
		workflow.WithTrash(trash), workflow.WithNotifier(h.notifier))
	m.ConfigureStages(workflow.StageSet{Analysis: h.analysis, Confidence: h.confidence, Cut: h.cut})

	res, err := m.Run(context.Background(), h.source)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if trash.calls != 1 || res.TrashedTo != "" {
		t.Fatalf("expected one failed trash attempt, got calls=%d trashed=%q", trash.calls, res.TrashedTo)
	}
	if _, err := os.Stat(h.source); err != nil {
		t.Fatalf("source must stay in place: %v", err)
	}

	other := testsupport.WriteSource(t, h.cfg, "short.mp4")
	errSink := &failingSink{}
	h.detector.ranges = evenScenes(1)
	m = workflow.NewManager(h.cfg, h.store, h.detector, fakeMedia{duration: 30}, nil, workflow.WithErrorSink(errSink))
	if _, err := m.Run(context.Background(), other); !errors.Is(err, services.ErrCoverage) {
		t.Fatalf("expected coverage error, got %v", err)
	}
	key, _ := workflow.SessionKey(other)
	sess, err := h.store.Load(context.Background(), key)
	if err != nil || sess == nil {
		t.Fatalf("Load: %v", err)
	}
	if errSink.calls != 1 || sess.Status != session.StatusError || len(sess.Errors) != 1 {
		t.Fatalf("unexpected state: calls=%d status=%s errors=%d", errSink.calls, sess.Status, len(sess.Errors))
	}
}

func TestRunUnavailableBackendKeepsProgress(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"upstream down"}}`, http.StatusServiceUnavailable)
	}))
	defer server.Close()
	client := llm.NewClient(llm.Config{APIKey: "test", BaseURL: server.URL + "/v1/", Model: "demo-model"}, llm.WithMaxRetries(0))

	h := newHarness(t)
	frame := filepath.Join(t.TempDir(), "frame.jpg")
	testsupport.WriteFile(t, frame, 16)
	h.analysis.fail = func(*session.Segment) error {
		_, err := client.Describe(context.Background(), []string{frame})
		return err
	}

	_, err := h.manager.Run(context.Background(), h.source)
	if !errors.Is(err, services.ErrResource) {
		t.Fatalf("expected resource error, got %v", err)
	}
	sess := h.load(t)
	if sess.Status != session.StatusScenesDone || len(sess.FailedSegments()) != 0 {
		t.Fatalf("expected video to wait in analysis with no failures, got %s with %d failed", sess.Status, len(sess.FailedSegments()))
	}
	if h.analysis.total() != 1 || h.cut.total() != 0 {
		t.Fatalf("run should stop at the first unavailable call, analysis=%d cut=%d", h.analysis.total(), h.cut.total())
	}
	if _, err := os.Stat(h.source); err != nil {
		t.Fatalf("source must stay in place: %v", err)
	}
}

func TestRunFormatErrorIsRoutedOnRepeat(t *testing.T) {
	h := newHarness(t)
	m := workflow.NewManager(h.cfg, h.store, h.detector, fakeMedia{duration: 0}, nil, workflow.WithNotifier(h.notifier))
	m.ConfigureStages(workflow.StageSet{Analysis: h.analysis, Confidence: h.confidence, Cut: h.cut})

	if _, err := m.Run(context.Background(), h.source); !errors.Is(err, services.ErrFormat) {
		t.Fatalf("expected format error, got %v", err)
	}
	if _, err := os.Stat(h.source); err != nil {
		t.Fatalf("first format failure must leave the source in place: %v", err)
	}
	sess := h.load(t)
	if sess.Status == session.StatusError || len(sess.Errors) != 1 {
		t.Fatalf("expected a tagged session, got %s with %d errors", sess.Status, len(sess.Errors))
	}

	if _, err := m.Run(context.Background(), h.source); !errors.Is(err, services.ErrFormat) {
		t.Fatalf("expected format error on repeat, got %v", err)
	}
	if _, err := os.Stat(h.source); !os.IsNotExist(err) {
		t.Fatal("repeated format failure should route the source to the error dir")
	}
	if sess := h.load(t); sess.Status != session.StatusError {
		t.Fatalf("expected error status, got %s", sess.Status)
	}
}

func TestRunFindsSourceAfterItMoved(t *testing.T) {
	h := newHarness(t)
	h.analysis.fail = func(*session.Segment) error {
		return services.Wrap(services.ErrResource, "analysis", "load model", "out of memory", nil)
	}
	if _, err := h.manager.Run(context.Background(), h.source); !errors.Is(err, services.ErrResource) {
		t.Fatalf("expected resource error, got %v", err)
	}
	h.analysis.fail = nil

	moved := filepath.Join(testsupport.BaseDir(h.cfg), "elsewhere.mp4")
	if err := os.Rename(h.source, moved); err != nil {
		t.Fatal(err)
	}
	if _, err := h.manager.Run(context.Background(), h.source); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected missing source to stop the run, got %v", err)
	}

	sess := h.load(t)
	sess.VideoPath = moved
	if err := h.store.Save(context.Background(), sess); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := os.Rename(moved, h.source); err != nil {
		t.Fatal(err)
	}
	if _, err := h.manager.Run(context.Background(), h.source); err != nil {
		t.Fatalf("Run with source back at its original path: %v", err)
	}
	if sess := h.load(t); sess.Status != session.StatusDone {
		t.Fatalf("expected done, got %s", sess.Status)
	}
}
