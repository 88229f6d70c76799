package logging_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"smartcut/internal/config"
	"smartcut/internal/logging"
	"smartcut/internal/services"
)

func newFileLogger(t *testing.T, format, level string) (string, func(msg string, args ...any)) {
	t.Helper()
	logPath := filepath.Join(t.TempDir(), "test.log")
	logger, err := logging.New(logging.Options{
		Format:  format,
		Level:   level,
		Outputs: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return logPath, logger.Info
}

func readLog(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	return string(content)
}

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("hello from config")

	matches, err := filepath.Glob(filepath.Join(cfg.Paths.LogDir, logging.LogFilePattern))
	if err != nil || len(matches) != 1 {
		t.Fatalf("expected one daily log file, got %v (%v)", matches, err)
	}
	content := readLog(t, matches[0])
	if !strings.Contains(content, "hello from config") {
		t.Fatalf("expected message in log file, got %q", content)
	}
}

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	path, info := newFileLogger(t, "console", "info")
	info("message without caller")
	if content := readLog(t, path); strings.Contains(content, ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", content)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	path, info := newFileLogger(t, "console", "debug")
	info("message with caller")
	if content := readLog(t, path); !strings.Contains(content, ".go:") {
		t.Fatalf("expected caller information in debug logs, got %q", content)
	}
}

func TestJSONLoggerWritesStructuredFields(t *testing.T) {
	path, info := newFileLogger(t, "json", "info")
	info("json message", logging.String("k", "v"))
	content := readLog(t, path)
	for _, fragment := range []string{`"msg":"json message"`, `"k":"v"`, `"level":"info"`} {
		if !strings.Contains(content, fragment) {
			t.Fatalf("expected %s in %q", fragment, content)
		}
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWithContextAddsFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "ctx.log")
	base, err := logging.New(logging.Options{Format: "console", Level: "info", Outputs: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := context.Background()
	ctx = services.WithSession(ctx, "sess-42")
	ctx = services.WithStage(ctx, "analysis")
	ctx = services.WithSegment(ctx, "0123456789abcdef")
	ctx = services.WithRequestID(ctx, "req-xyz")

	logging.WithContext(ctx, logging.NewComponentLogger(base, "stageexec")).Info("contextual log")

	content := readLog(t, logPath)
	for _, fragment := range []string{"[analysis/01234567]", "stageexec: contextual log", "session_uid=sess-42", "correlation_id=req-xyz"} {
		if !strings.Contains(content, fragment) {
			t.Fatalf("expected %q in %q", fragment, content)
		}
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	path, _ := newFileLogger(t, "console", "info")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", Outputs: []string{path}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WarnWithContext(logger, "careful", "test_warning", logging.String(logging.FieldImpact, "nothing"))
	content := readLog(t, path)
	for _, fragment := range []string{"event_type=test_warning", "error_hint=", "impact=nothing"} {
		if !strings.Contains(content, fragment) {
			t.Fatalf("expected %q in %q", fragment, content)
		}
	}
}

func TestSpanRoundsToMilliseconds(t *testing.T) {
	attr := logging.Span(1.23456, 9.87654)
	if attr.Key != "span" {
		t.Fatalf("unexpected key %q", attr.Key)
	}
	group := attr.Value.Group()
	if len(group) != 2 || group[0].Value.Float64() != 1.235 || group[1].Value.Float64() != 9.877 {
		t.Fatalf("unexpected span %v", group)
	}
}
