package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"smartcut/internal/config"
	"smartcut/internal/logging"
	"smartcut/internal/session"
	"smartcut/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	store      *session.Store
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.LLM.APIKey = "secret-key"
	cfg.Logging.Level = "error"
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{
		cfg:        cfg,
		configPath: configPath,
		store:      testsupport.MustOpenStore(t, cfg),
	}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func (env *cliTestEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q, got:\n%s", needle, haystack)
	}
}

func seedFailedSession(t *testing.T, env *cliTestEnv) (*session.Session, string) {
	t.Helper()
	source := filepath.Join(testsupport.BaseDir(env.cfg), "clip.mp4")
	sess := testsupport.NewSession(t, env.store, source, 20, [2]float64{0, 10}, [2]float64{10, 20})
	failed := sess.Segments[1]
	failed.Status = session.SegmentFailed
	failed.FailedStage = session.StageAnalysis
	failed.Attempts = 1
	failed.Error = "vision model returned garbage"
	if err := env.store.Save(context.Background(), sess); err != nil {
		t.Fatalf("Save: %v", err)
	}
	return sess, source
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := env.run(t, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, err = env.run(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}
	if _, err := env.run(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected refusal to overwrite without --overwrite")
	}
}

func TestConfigShowRedactsKey(t *testing.T) {
	env := setupCLITestEnv(t)
	out, err := env.run(t, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if strings.Contains(out, "secret-key") {
		t.Fatal("api key must be redacted")
	}
	requireContains(t, out, "initial_threshold")
}

func TestListEmptyAndPopulated(t *testing.T) {
	env := setupCLITestEnv(t)
	out, err := env.run(t, "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	requireContains(t, out, "No sessions")

	sess, _ := seedFailedSession(t, env)
	out, err = env.run(t, "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	requireContains(t, out, sess.UID[:8])
	requireContains(t, out, "scenes_done")
}

func TestShowAndFailed(t *testing.T) {
	env := setupCLITestEnv(t)
	sess, source := seedFailedSession(t, env)

	out, err := env.run(t, "show", source)
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	requireContains(t, out, sess.UID)
	requireContains(t, out, sess.Segments[0].ShortUID())
	requireContains(t, out, "1 failed")

	out, err = env.run(t, "failed", source)
	if err != nil {
		t.Fatalf("failed: %v", err)
	}
	requireContains(t, out, "vision model returned garbage")
	requireContains(t, out, string(session.StageAnalysis))

	if _, err := env.run(t, "show", filepath.Join(t.TempDir(), "unknown.mp4")); err == nil {
		t.Fatal("expected error for unknown session")
	}
}

func TestRetryDropForget(t *testing.T) {
	env := setupCLITestEnv(t)
	sess, source := seedFailedSession(t, env)
	failed := sess.Segments[1]

	out, err := env.run(t, "retry", source)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	requireContains(t, out, "Reset segment "+failed.ShortUID())

	reloaded, err := env.store.Load(context.Background(), source)
	if err != nil || reloaded == nil {
		t.Fatalf("Load: %v", err)
	}
	if seg, _ := reloaded.Segment(failed.UID); seg.Status != session.SegmentRaw {
		t.Fatalf("expected segment reset to raw, got %s", seg.Status)
	}

	out, err = env.run(t, "drop", source, failed.ShortUID())
	if err != nil {
		t.Fatalf("drop: %v", err)
	}
	requireContains(t, out, "Dropped segment")

	out, err = env.run(t, "forget", source)
	if err != nil {
		t.Fatalf("forget: %v", err)
	}
	requireContains(t, out, "Session removed")
	if reloaded, _ := env.store.Load(context.Background(), source); reloaded != nil {
		t.Fatal("session should be deleted")
	}
}

func TestPurgeRemovesOldQuarantine(t *testing.T) {
	env := setupCLITestEnv(t)
	old := filepath.Join(env.cfg.Paths.TrashDir, "2000-01-01")
	if err := os.MkdirAll(old, 0o755); err != nil {
		t.Fatal(err)
	}
	testsupport.WriteFile(t, filepath.Join(old, "a.mp4"), 16)

	out, err := env.run(t, "purge", "--list")
	if err != nil {
		t.Fatalf("purge --list: %v", err)
	}
	requireContains(t, out, "2000-01-01")

	out, err = env.run(t, "purge")
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	requireContains(t, out, "Trash directories removed:   1")
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatalf("expected dated trash dir removed, stat err %v", err)
	}
}

func TestRunRequiresArgument(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, err := env.run(t, "run"); err == nil {
		t.Fatal("expected error without a video argument")
	}
}

func TestLogsFiltersBySession(t *testing.T) {
	env := setupCLITestEnv(t)
	sess, source := seedFailedSession(t, env)

	path := logging.LogFilePath(env.cfg.Paths.LogDir, time.Now())
	content := strings.Join([]string{
		"level=INFO msg=\"other video\" session_uid=unrelated",
		"level=INFO msg=\"stage complete\" session_uid=" + sess.UID,
		"level=WARN msg=\"segment failed\" session_uid=" + sess.UID,
	}, "\n") + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	out, err := env.run(t, "logs", "-n", "1", source)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	requireContains(t, out, "segment failed")
	if strings.Contains(out, "stage complete") || strings.Contains(out, "other video") {
		t.Fatalf("unexpected lines in output:\n%s", out)
	}

	out, err = env.run(t, "logs")
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	requireContains(t, out, "other video")

	if _, err := env.run(t, "logs", "--day", "yesterday"); err == nil {
		t.Fatal("expected invalid day to fail")
	}
}

func TestRenderHelpers(t *testing.T) {
	if got := ellipsis("sunset over the beach", 10); got != "sunset ov…" {
		t.Fatalf("ellipsis = %q", got)
	}
	if got := ellipsis("short", 10); got != "short" {
		t.Fatalf("ellipsis = %q", got)
	}

	cases := []struct {
		status session.Status
		failed int
		want   statusKind
	}{
		{session.StatusDone, 0, statusOK},
		{session.StatusDone, 2, statusWarn},
		{session.StatusIADone, 0, statusWarn},
		{session.StatusError, 0, statusError},
	}
	for _, tc := range cases {
		if got := sessionStatusKind(tc.status, tc.failed); got != tc.want {
			t.Fatalf("sessionStatusKind(%s, %d) = %s, want %s", tc.status, tc.failed, got, tc.want)
		}
	}

	line := renderStatusLine("FFmpeg", statusError, "not found", false)
	if line != "  FFmpeg:                [ERROR] not found" {
		t.Fatalf("unexpected status line %q", line)
	}
}
