package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateSegmentation(); err != nil {
		return err
	}
	if err := c.validateMerge(); err != nil {
		return err
	}
	if err := c.validateAnalysis(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateSegmentation() error {
	s := c.Segmentation
	if s.MinDuration <= 0 {
		return errors.New("segmentation.min_duration must be positive")
	}
	if s.MaxDuration <= s.MinDuration {
		return errors.New("segmentation.max_duration must be greater than segmentation.min_duration")
	}
	if s.ThresholdStep <= 0 {
		return errors.New("segmentation.threshold_step must be positive")
	}
	if s.MinThreshold <= 0 || s.MinThreshold > s.InitialThreshold {
		return fmt.Errorf("segmentation.min_threshold must be in (0, %v]", s.InitialThreshold)
	}
	if s.MinSceneLen < 0 {
		return errors.New("segmentation.min_scene_len must be >= 0")
	}
	if s.RefineTriggerRatio <= 0 || s.RefineTriggerRatio > 1 {
		return errors.New("segmentation.refine_trigger_ratio must be in (0, 1]")
	}
	if s.CoverageRatio <= 0 || s.CoverageRatio > 1 {
		return errors.New("segmentation.coverage_ratio must be in (0, 1]")
	}
	if s.GapTolerance < 0 {
		return errors.New("segmentation.gap_tolerance must be >= 0")
	}
	return nil
}

func (c *Config) validateMerge() error {
	if c.Merge.Threshold < 0 || c.Merge.Threshold > 1 {
		return errors.New("merge.threshold must be between 0 and 1")
	}
	if c.Merge.GapConfidence < 0 || c.Merge.GapConfidence > 1 {
		return errors.New("merge.gap_confidence must be between 0 and 1")
	}
	if c.Merge.MaxTimeGap < 0 {
		return errors.New("merge.max_time_gap must be >= 0")
	}
	return nil
}

func (c *Config) validateAnalysis() error {
	switch c.Analysis.FrameMode {
	case FrameModeAuto:
		if c.Analysis.BaseRate <= 0 {
			return errors.New("analysis.base_rate must be positive")
		}
	case FrameModeFixed:
		if c.Analysis.FixedFPS <= 0 {
			return errors.New("analysis.fixed_fps must be positive when analysis.frame_mode is fixed")
		}
	default:
		return fmt.Errorf("analysis.frame_mode: unsupported value %q (use auto or fixed)", c.Analysis.FrameMode)
	}
	if c.Analysis.MaxKeywords <= 0 {
		return errors.New("analysis.max_keywords must be positive")
	}
	if c.Analysis.MaxKeywordLength <= 0 {
		return errors.New("analysis.max_keyword_length must be positive")
	}
	if c.Analysis.SafetyMarginGB < 0 || c.Analysis.AssumeFreeGB < 0 {
		return errors.New("analysis memory values must be >= 0")
	}
	if c.PrecisionCost() <= 0 {
		return fmt.Errorf("analysis.precision_costs has no positive cost for %q", c.Analysis.Precision)
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.MaxSegmentAttempts < 1 {
		return errors.New("workflow.max_segment_attempts must be at least 1")
	}
	if c.Cleanup.PurgeDays < 0 {
		return errors.New("cleanup.purge_days must be >= 0")
	}
	if topic := c.Notifications.NtfyTopic; topic != "" && !strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
		return fmt.Errorf("notifications.ntfy_topic: expected a full http(s) URL, got %q", topic)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be >= 0")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
