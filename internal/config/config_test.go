package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"smartcut/internal/config"
)

func TestLoadDefaultConfigExpandsPathsAndReadsEnvKey(t *testing.T) {
	t.Setenv("SMARTCUT_LLM_API_KEY", "test-key")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantState := filepath.Join(tempHome, ".local", "share", "smartcut", "state")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	if cfg.DatabasePath() != filepath.Join(wantState, "smartcut.db") {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath())
	}
	if cfg.LLM.APIKey != "test-key" {
		t.Fatalf("expected LLM key from env, got %q", cfg.LLM.APIKey)
	}
	if cfg.Segmentation.RefineTriggerRatio != 0.8 || cfg.Segmentation.CoverageRatio != 0.8 {
		t.Fatalf("unexpected ratios: %+v", cfg.Segmentation)
	}
	if cfg.Merge.Threshold != 0.5 || cfg.Merge.GapConfidence != 0.25 || cfg.Merge.MaxTimeGap != 0.5 {
		t.Fatalf("unexpected merge defaults: %+v", cfg.Merge)
	}
}

func TestLoadCustomConfig(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	configPath := filepath.Join(t.TempDir(), "config.toml")
	content := `[paths]
state_dir = "~/state"
output_dir = "~/out"

[segmentation]
max_duration = 90.0
min_duration = 2.0

[cut]
container_ext = "mkv"

[logging]
format = "JSON"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected explicit config to be used, got %q exists=%v", resolved, exists)
	}
	if cfg.Paths.StateDir != filepath.Join(tempHome, "state") {
		t.Fatalf("unexpected state dir: %q", cfg.Paths.StateDir)
	}
	if cfg.Segmentation.MaxDuration != 90 || cfg.Segmentation.MinDuration != 2 {
		t.Fatalf("unexpected durations: %+v", cfg.Segmentation)
	}
	if cfg.Cut.ContainerExt != ".mkv" {
		t.Fatalf("expected container ext normalized to .mkv, got %q", cfg.Cut.ContainerExt)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected json log format, got %q", cfg.Logging.Format)
	}
	if cfg.Segmentation.InitialThreshold != 30 {
		t.Fatalf("expected untouched defaults to survive, got %v", cfg.Segmentation.InitialThreshold)
	}
}

func TestValidateRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"max below min", func(c *config.Config) { c.Segmentation.MaxDuration = 1 }, "max_duration"},
		{"bad coverage", func(c *config.Config) { c.Segmentation.CoverageRatio = 1.5 }, "coverage_ratio"},
		{"bad trigger", func(c *config.Config) { c.Segmentation.RefineTriggerRatio = 0 }, "refine_trigger_ratio"},
		{"bad merge threshold", func(c *config.Config) { c.Merge.Threshold = 2 }, "merge.threshold"},
		{"bad frame mode", func(c *config.Config) { c.Analysis.FrameMode = "random" }, "frame_mode"},
		{"zero attempts", func(c *config.Config) { c.Workflow.MaxSegmentAttempts = 0 }, "max_segment_attempts"},
		{"bad log level", func(c *config.Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"bare ntfy topic", func(c *config.Config) { c.Notifications.NtfyTopic = "smartcut" }, "ntfy_topic"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestThresholdLadder(t *testing.T) {
	seg := config.Default().Segmentation
	got := seg.Thresholds()
	want := []float64{25, 20, 15, 10}
	if len(got) != len(want) {
		t.Fatalf("unexpected ladder: %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ladder[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	seg.ThresholdStep = 0
	if ladder := seg.Thresholds(); ladder != nil {
		t.Fatalf("expected nil ladder for zero step, got %v", ladder)
	}
}

func TestPrecisionCostFallsBackToDefault(t *testing.T) {
	cfg := config.Default()
	cfg.Analysis.Precision = "int3"
	if got := cfg.PrecisionCost(); got != 1.5 {
		t.Fatalf("expected default cost 1.5, got %v", got)
	}
	cfg.Analysis.Precision = "4bit"
	if got := cfg.PrecisionCost(); got != 0.5 {
		t.Fatalf("expected 4bit cost 0.5, got %v", got)
	}
}

func TestSampleConfigParses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var parsed config.Config
	if err := toml.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("sample config does not parse: %v", err)
	}
	if parsed.Analysis.PrecisionCosts["4bit"] != 0.5 {
		t.Fatalf("expected precision costs in sample, got %v", parsed.Analysis.PrecisionCosts)
	}
	if parsed.Segmentation.MaxDuration != 120 {
		t.Fatalf("unexpected sample max_duration: %v", parsed.Segmentation.MaxDuration)
	}
}
