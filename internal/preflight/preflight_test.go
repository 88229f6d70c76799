package preflight

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"smartcut/internal/accel"
	"smartcut/internal/config"
	"smartcut/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckFreeSpace(t *testing.T) {
	dir := t.TempDir()
	if result := CheckFreeSpace("space", dir, 0); !result.Passed {
		t.Fatalf("expected pass with zero requirement, got: %s", result.Detail)
	}
	if result := CheckFreeSpace("space", dir, 1<<40); result.Passed {
		t.Fatal("expected failure for an impossible requirement")
	}
	if result := CheckFreeSpace("space", filepath.Join(dir, "missing"), 0); result.Passed {
		t.Fatal("expected failure for missing path")
	}
}

func llmServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCheckLLM_OK(t *testing.T) {
	srv := llmServer(t, http.StatusOK, `{"id":"x","object":"chat.completion","created":1,"model":"m","choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"{\"ok\":true}"}}]}`)
	cfg := testsupport.NewConfig(t, testsupport.WithLLMEndpoint(srv.URL+"/v1/"))
	result := CheckLLM(context.Background(), cfg.LLM)
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
}

func TestCheckLLM_BadKey(t *testing.T) {
	srv := llmServer(t, http.StatusUnauthorized, `{"error":{"message":"invalid api key","type":"auth"}}`)
	result := CheckLLM(context.Background(), config.LLM{APIKey: "bad", BaseURL: srv.URL + "/v1/", Model: "m", TimeoutSeconds: 5})
	if result.Passed {
		t.Fatal("expected failure for bad key")
	}
	if !strings.HasPrefix(result.Detail, "auth failed") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestCheckLLM_MissingKey(t *testing.T) {
	result := CheckLLM(context.Background(), config.LLM{BaseURL: "http://localhost"})
	if result.Passed || result.Detail != "API key missing" {
		t.Fatalf("unexpected result %#v", result)
	}
}

type fakeProbe struct {
	mem accel.Memory
	err error
}

func (f fakeProbe) Free(context.Context) (accel.Memory, error) { return f.mem, f.err }

func TestCheckAccelerator(t *testing.T) {
	cfg := config.Default()
	cfg.Analysis.SafetyMarginGB = 1
	cfg.Analysis.Precision = "float16"
	cfg.Analysis.PrecisionCosts = map[string]float64{"float16": 1}

	result := CheckAccelerator(context.Background(), &cfg, fakeProbe{mem: accel.Memory{FreeGB: 4.5, Source: "nvidia-smi"}})
	if !result.Passed || !strings.Contains(result.Detail, "batch size 3") {
		t.Fatalf("unexpected result %#v", result)
	}

	result = CheckAccelerator(context.Background(), &cfg, fakeProbe{err: errors.New("no device")})
	if result.Passed {
		t.Fatal("expected failure when memory cannot be read")
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil); results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_ReportsDirectories(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.StateDir = t.TempDir()
	cfg.Paths.WorkDir = t.TempDir()
	cfg.Paths.OutputDir = filepath.Join(t.TempDir(), "missing")

	results := RunAll(context.Background(), &cfg)
	byName := map[string]Result{}
	for _, r := range results {
		byName[r.Name] = r
	}
	if !byName["State directory"].Passed || !byName["Work directory"].Passed {
		t.Fatalf("expected state and work checks to pass: %#v", results)
	}
	if byName["Output directory"].Passed {
		t.Fatal("expected output directory failure")
	}
	if _, ok := byName["Output free space"]; ok {
		t.Fatal("free space must be skipped for a missing output directory")
	}
	if err := Failures(results); err == nil || !strings.Contains(err.Error(), "Output directory") {
		t.Fatalf("expected failure summary naming the output directory, got %v", err)
	}
}

func TestCheckSystemDepsWithStubbedBinaries(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries("ffmpeg", "ffprobe"))

	byName := map[string]bool{}
	var filterDetail string
	for _, status := range CheckSystemDeps(context.Background(), cfg) {
		byName[status.Name] = status.Available
		if status.Name == "FFmpeg filters" {
			filterDetail = status.Detail
		}
	}
	if !byName["FFmpeg"] || !byName["FFprobe"] {
		t.Fatalf("expected stubbed binaries to be found: %#v", byName)
	}
	if available, ok := byName["FFmpeg filters"]; !ok || available {
		t.Fatalf("expected filter check to fail against a silent stub: %#v", byName)
	}
	if filterDetail != "missing filters: select, showinfo" {
		t.Fatalf("unexpected filter detail %q", filterDetail)
	}
}

func TestFailuresEmpty(t *testing.T) {
	if err := Failures([]Result{{Name: "ok", Passed: true}}); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}
