package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Frame sampling modes for the analysis stage.
const (
	FrameModeAuto  = "auto"
	FrameModeFixed = "fixed"
)

// Paths contains directory configuration.
type Paths struct {
	StateDir  string `toml:"state_dir"`
	OutputDir string `toml:"output_dir"`
	WorkDir   string `toml:"work_dir"`
	ErrorDir  string `toml:"error_dir"`
	TrashDir  string `toml:"trash_dir"`
	LogDir    string `toml:"log_dir"`
}

// Segmentation tunes the adaptive scene segmentation pass.
type Segmentation struct {
	// InitialThreshold is the detector sensitivity of the first whole-timeline pass.
	InitialThreshold float64 `toml:"initial_threshold"`
	// MinThreshold is the lowest threshold the refinement ladder descends to.
	MinThreshold  float64 `toml:"min_threshold"`
	ThresholdStep float64 `toml:"threshold_step"`
	MinDuration   float64 `toml:"min_duration"`
	MaxDuration   float64 `toml:"max_duration"`
	MinSceneLen   float64 `toml:"min_scene_len"`
	// RefineTriggerRatio is the fraction of max_duration at which a range is refined.
	RefineTriggerRatio float64 `toml:"refine_trigger_ratio"`
	// CoverageRatio is the minimum share of the timeline the final segments must span.
	CoverageRatio float64 `toml:"coverage_ratio"`
	GapTolerance  float64 `toml:"gap_tolerance"`
}

// Merge tunes the semantic harmonization pass.
type Merge struct {
	Threshold     float64 `toml:"threshold"`
	GapConfidence float64 `toml:"gap_confidence"`
	MaxTimeGap    float64 `toml:"max_time_gap"`
	// HighlightsOnly keeps only segments that were produced by an actual merge.
	HighlightsOnly bool `toml:"highlights_only"`
}

// Analysis contains frame sampling and batching settings for the analysis stage.
type Analysis struct {
	FrameMode        string             `toml:"frame_mode"`
	BaseRate         int                `toml:"base_rate"`
	FixedFPS         float64            `toml:"fixed_fps"`
	MaxKeywords      int                `toml:"max_keywords"`
	MaxKeywordLength int                `toml:"max_keyword_length"`
	SafetyMarginGB   float64            `toml:"safety_margin_gb"`
	AssumeFreeGB     float64            `toml:"assume_free_gb"` // used when no accelerator can be queried
	Precision        string             `toml:"precision"`
	PrecisionCosts   map[string]float64 `toml:"precision_costs"`
	MappingFile      string             `toml:"mapping_file"`
	ForbiddenFile    string             `toml:"forbidden_file"`
}

// LLM contains the connection settings for the vision and embedding backend.
type LLM struct {
	APIKey         string  `toml:"api_key"`
	BaseURL        string  `toml:"base_url"`
	Model          string  `toml:"model"`
	EmbeddingModel string  `toml:"embedding_model"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	Temperature    float64 `toml:"temperature"`
	MaxTokens      int     `toml:"max_tokens"`
}

// Cut describes the encoder profile handed to ffmpeg when materializing segments.
// Values are passed through verbatim.
type Cut struct {
	VideoCodec   string `toml:"video_codec"`
	AudioCodec   string `toml:"audio_codec"`
	CRF          int    `toml:"crf"`
	Preset       string `toml:"preset"`
	ContainerExt string `toml:"container_ext"`
	HWAccel      string `toml:"hwaccel"`
}

// Workflow contains stage orchestration settings.
type Workflow struct {
	// MaxSegmentAttempts is how many runs may fail a segment before it is marked failed.
	MaxSegmentAttempts int `toml:"max_segment_attempts"`
}

// Cleanup controls what happens to sources after a completed run.
type Cleanup struct {
	TrashSource bool `toml:"trash_source"`
	PurgeDays   int  `toml:"purge_days"`
}

// Notifications configures ntfy push messages for finished and failed videos.
// An empty topic disables them.
type Notifications struct {
	NtfyTopic             string `toml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for SmartCut.
//
// Configuration sections by subsystem:
//   - Paths: state database, output, work, error, trash, and log directories
//   - Segmentation: adaptive threshold ladder and duration bounds
//   - Merge: similarity thresholds for harmonization
//   - Analysis: frame sampling and accelerator batching
//   - LLM: vision and embedding backend connection
//   - Cut: encoder profile for materialized segments
//   - Workflow: per-segment failure policy
//   - Cleanup: source trash and purge policy
//   - Notifications: ntfy endpoint for completion and failure messages
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Segmentation  Segmentation  `toml:"segmentation"`
	Merge         Merge         `toml:"merge"`
	Analysis      Analysis      `toml:"analysis"`
	LLM           LLM           `toml:"llm"`
	Cut           Cut           `toml:"cut"`
	Workflow      Workflow      `toml:"workflow"`
	Cleanup       Cleanup       `toml:"cleanup"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/smartcut/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("smartcut.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the pipeline writes into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.WorkDir, c.Paths.LogDir, c.Paths.ErrorDir, c.Paths.TrashDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.OutputDir) != "" {
		// Best-effort; the output volume may be mounted later.
		_ = os.MkdirAll(c.Paths.OutputDir, 0o755)
	}
	return nil
}

// DatabasePath returns the location of the session database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.StateDir, "smartcut.db")
}

// LockDir returns the directory holding per-session lock files.
func (c *Config) LockDir() string {
	return filepath.Join(c.Paths.StateDir, "locks")
}

// FFmpegBinary returns the ffmpeg executable name.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name used for media probing.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

// NvidiaSMIBinary returns the executable used to query accelerator memory.
func (c *Config) NvidiaSMIBinary() string {
	return "nvidia-smi"
}

// PrecisionCost returns the per-frame memory cost for the configured precision,
// falling back to the "default" entry.
func (c *Config) PrecisionCost() float64 {
	if cost, ok := c.Analysis.PrecisionCosts[c.Analysis.Precision]; ok && cost > 0 {
		return cost
	}
	return c.Analysis.PrecisionCosts["default"]
}

// Thresholds returns the descending refinement ladder, from one step below
// the initial threshold down to the minimum threshold inclusive.
func (s Segmentation) Thresholds() []float64 {
	if s.ThresholdStep <= 0 {
		return nil
	}
	var ladder []float64
	for t := s.InitialThreshold - s.ThresholdStep; t >= s.MinThreshold-1e-9; t -= s.ThresholdStep {
		ladder = append(ladder, t)
	}
	return ladder
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
