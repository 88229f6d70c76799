package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeAnalysis(); err != nil {
		return err
	}
	c.normalizeLLM()
	c.normalizeCut()
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeoutSeconds <= 0 {
		c.Notifications.RequestTimeoutSeconds = defaultNtfyTimeoutSeconds
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	fields := []struct {
		key      string
		value    *string
		fallback string
	}{
		{"paths.state_dir", &c.Paths.StateDir, defaultStateDir},
		{"paths.output_dir", &c.Paths.OutputDir, defaultOutputDir},
		{"paths.work_dir", &c.Paths.WorkDir, defaultWorkDir},
		{"paths.error_dir", &c.Paths.ErrorDir, defaultErrorDir},
		{"paths.trash_dir", &c.Paths.TrashDir, defaultTrashDir},
		{"paths.log_dir", &c.Paths.LogDir, defaultLogDir},
	}
	for _, field := range fields {
		if strings.TrimSpace(*field.value) == "" {
			*field.value = field.fallback
		}
		expanded, err := expandPath(strings.TrimSpace(*field.value))
		if err != nil {
			return fmt.Errorf("%s: %w", field.key, err)
		}
		*field.value = expanded
	}
	return nil
}

func (c *Config) normalizeAnalysis() error {
	c.Analysis.FrameMode = strings.ToLower(strings.TrimSpace(c.Analysis.FrameMode))
	if c.Analysis.FrameMode == "" {
		c.Analysis.FrameMode = defaultFrameMode
	}
	c.Analysis.Precision = strings.ToLower(strings.TrimSpace(c.Analysis.Precision))
	if c.Analysis.Precision == "" {
		c.Analysis.Precision = defaultPrecision
	}
	if len(c.Analysis.PrecisionCosts) == 0 {
		c.Analysis.PrecisionCosts = defaultPrecisionCosts()
	}
	if _, ok := c.Analysis.PrecisionCosts["default"]; !ok {
		c.Analysis.PrecisionCosts["default"] = defaultPrecisionCosts()["default"]
	}
	var err error
	if c.Analysis.MappingFile, err = expandPath(strings.TrimSpace(c.Analysis.MappingFile)); err != nil {
		return fmt.Errorf("analysis.mapping_file: %w", err)
	}
	if c.Analysis.ForbiddenFile, err = expandPath(strings.TrimSpace(c.Analysis.ForbiddenFile)); err != nil {
		return fmt.Errorf("analysis.forbidden_file: %w", err)
	}
	return nil
}

func (c *Config) normalizeLLM() {
	if strings.TrimSpace(c.LLM.APIKey) == "" {
		for _, env := range []string{"SMARTCUT_LLM_API_KEY", "OPENAI_API_KEY"} {
			if value, ok := os.LookupEnv(env); ok && strings.TrimSpace(value) != "" {
				c.LLM.APIKey = strings.TrimSpace(value)
				break
			}
		}
	}
	c.LLM.BaseURL = strings.TrimRight(strings.TrimSpace(c.LLM.BaseURL), "/")
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	c.LLM.EmbeddingModel = strings.TrimSpace(c.LLM.EmbeddingModel)
	if c.LLM.EmbeddingModel == "" {
		c.LLM.EmbeddingModel = defaultLLMEmbeddingModel
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
	if c.LLM.MaxTokens <= 0 {
		c.LLM.MaxTokens = defaultLLMMaxTokens
	}
}

func (c *Config) normalizeCut() {
	c.Cut.ContainerExt = strings.TrimSpace(c.Cut.ContainerExt)
	if c.Cut.ContainerExt == "" {
		c.Cut.ContainerExt = defaultCutContainerExt
	}
	if !strings.HasPrefix(c.Cut.ContainerExt, ".") {
		c.Cut.ContainerExt = "." + c.Cut.ContainerExt
	}
	c.Cut.VideoCodec = strings.TrimSpace(c.Cut.VideoCodec)
	c.Cut.AudioCodec = strings.TrimSpace(c.Cut.AudioCodec)
	c.Cut.Preset = strings.TrimSpace(c.Cut.Preset)
	c.Cut.HWAccel = strings.TrimSpace(c.Cut.HWAccel)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
