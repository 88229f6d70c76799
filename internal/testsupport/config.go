package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"smartcut/internal/config"
)

// ConfigOption adjusts a generated test configuration. base is the temp
// directory holding every configured path.
type ConfigOption func(t testing.TB, base string, cfg *config.Config)

// NewConfig returns the default configuration with every directory moved
// under a fresh temp dir and an API key set.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()
	base := t.TempDir()
	cfg := config.Default()
	cfg.LLM.APIKey = "test"
	for dir, field := range map[string]*string{
		"state":  &cfg.Paths.StateDir,
		"output": &cfg.Paths.OutputDir,
		"work":   &cfg.Paths.WorkDir,
		"error":  &cfg.Paths.ErrorDir,
		"trash":  &cfg.Paths.TrashDir,
		"logs":   &cfg.Paths.LogDir,
	} {
		*field = filepath.Join(base, dir)
	}
	cfg.Analysis.AssumeFreeGB = 8
	for _, opt := range opts {
		opt(t, base, &cfg)
	}
	return &cfg
}

// WithLLMEndpoint points the LLM client at a test server.
func WithLLMEndpoint(baseURL string) ConfigOption {
	return func(_ testing.TB, _ string, cfg *config.Config) {
		cfg.LLM.BaseURL = baseURL
	}
}

// WithMaxSegmentAttempts overrides the segment failure policy.
func WithMaxSegmentAttempts(n int) ConfigOption {
	return func(_ testing.TB, _ string, cfg *config.Config) {
		cfg.Workflow.MaxSegmentAttempts = n
	}
}

// WithStubbedBinaries puts no-op executables for names (ffmpeg and ffprobe
// by default) first on PATH for the rest of the test.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(t testing.TB, base string, _ *config.Config) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "ffprobe"}
		}
		bin := filepath.Join(base, "bin")
		if err := os.MkdirAll(bin, 0o755); err != nil {
			t.Fatalf("mkdir bin dir: %v", err)
		}
		for _, name := range names {
			if err := os.WriteFile(filepath.Join(bin, name), []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
				t.Fatalf("write stub %s: %v", name, err)
			}
		}
		t.Setenv("PATH", bin+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}

// BaseDir returns the temp directory backing a generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
