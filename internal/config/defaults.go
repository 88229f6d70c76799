package config

const (
	defaultStateDir  = "~/.local/share/smartcut/state"
	defaultOutputDir = "~/smartcut/segments"
	defaultWorkDir   = "~/.local/share/smartcut/work"
	defaultErrorDir  = "~/.local/share/smartcut/error"
	defaultTrashDir  = "~/.local/share/smartcut/trash"
	defaultLogDir    = "~/.local/share/smartcut/logs"

	defaultInitialThreshold   = 30.0
	defaultMinThreshold       = 10.0
	defaultThresholdStep      = 5.0
	defaultMinDuration        = 1.5
	defaultMaxDuration        = 120.0
	defaultMinSceneLen        = 1.0
	defaultRefineTriggerRatio = 0.8
	defaultCoverageRatio      = 0.8
	defaultGapTolerance       = 0.5

	defaultMergeThreshold     = 0.5
	defaultMergeGapConfidence = 0.25
	defaultMergeMaxTimeGap    = 0.5

	defaultFrameMode        = FrameModeAuto
	defaultBaseRate         = 5
	defaultFixedFPS         = 1.0
	defaultMaxKeywords      = 50
	defaultMaxKeywordLength = 50
	defaultSafetyMarginGB   = 1.0
	defaultPrecision        = "float16"

	defaultLLMBaseURL        = "https://api.openai.com/v1"
	defaultLLMModel          = "gpt-4o-mini"
	defaultLLMEmbeddingModel = "text-embedding-3-small"
	defaultLLMTimeoutSeconds = 120
	defaultLLMTemperature    = 0.2
	defaultLLMMaxTokens      = 800

	defaultCutVideoCodec   = "libx264"
	defaultCutAudioCodec   = "aac"
	defaultCutCRF          = 20
	defaultCutPreset       = "medium"
	defaultCutContainerExt = ".mp4"

	defaultMaxSegmentAttempts = 1
	defaultPurgeDays          = 7
	defaultNtfyTimeoutSeconds = 10

	defaultLogFormat = "console"
	defaultLogLevel  = "info"

	defaultLogRetentionDays = 30
)

// defaultPrecisionCosts holds the estimated accelerator memory (GB) consumed
// per frame at each model precision.
func defaultPrecisionCosts() map[string]float64 {
	return map[string]float64{
		"4bit":     0.5,
		"bfloat16": 1.0,
		"float16":  1.0,
		"float32":  2.0,
		"default":  1.5,
	}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir:  defaultStateDir,
			OutputDir: defaultOutputDir,
			WorkDir:   defaultWorkDir,
			ErrorDir:  defaultErrorDir,
			TrashDir:  defaultTrashDir,
			LogDir:    defaultLogDir,
		},
		Segmentation: Segmentation{
			InitialThreshold:   defaultInitialThreshold,
			MinThreshold:       defaultMinThreshold,
			ThresholdStep:      defaultThresholdStep,
			MinDuration:        defaultMinDuration,
			MaxDuration:        defaultMaxDuration,
			MinSceneLen:        defaultMinSceneLen,
			RefineTriggerRatio: defaultRefineTriggerRatio,
			CoverageRatio:      defaultCoverageRatio,
			GapTolerance:       defaultGapTolerance,
		},
		Merge: Merge{
			Threshold:     defaultMergeThreshold,
			GapConfidence: defaultMergeGapConfidence,
			MaxTimeGap:    defaultMergeMaxTimeGap,
		},
		Analysis: Analysis{
			FrameMode:        defaultFrameMode,
			BaseRate:         defaultBaseRate,
			FixedFPS:         defaultFixedFPS,
			MaxKeywords:      defaultMaxKeywords,
			MaxKeywordLength: defaultMaxKeywordLength,
			SafetyMarginGB:   defaultSafetyMarginGB,
			Precision:        defaultPrecision,
			PrecisionCosts:   defaultPrecisionCosts(),
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			EmbeddingModel: defaultLLMEmbeddingModel,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
			Temperature:    defaultLLMTemperature,
			MaxTokens:      defaultLLMMaxTokens,
		},
		Cut: Cut{
			VideoCodec:   defaultCutVideoCodec,
			AudioCodec:   defaultCutAudioCodec,
			CRF:          defaultCutCRF,
			Preset:       defaultCutPreset,
			ContainerExt: defaultCutContainerExt,
		},
		Workflow: Workflow{
			MaxSegmentAttempts: defaultMaxSegmentAttempts,
		},
		Cleanup: Cleanup{
			TrashSource: true,
			PurgeDays:   defaultPurgeDays,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNtfyTimeoutSeconds,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
