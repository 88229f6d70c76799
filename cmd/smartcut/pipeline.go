package main

import (
	"log/slog"
	"strings"

	"smartcut/internal/accel"
	"smartcut/internal/analysis"
	"smartcut/internal/confidence"
	"smartcut/internal/config"
	"smartcut/internal/cut"
	"smartcut/internal/media/ffmpeg"
	"smartcut/internal/services/llm"
	"smartcut/internal/session"
	"smartcut/internal/textutil"
	"smartcut/internal/workflow"
)

// pipeline bundles the manager with the collaborators it was built from so
// commands such as doctor can reuse them.
type pipeline struct {
	manager *workflow.Manager
	tool    *ffmpeg.Tool
	llm     *llm.Client
	memory  *accel.Probe
}

func buildPipeline(cfg *config.Config, store *session.Store, logger *slog.Logger, opts ...workflow.ManagerOption) (*pipeline, error) {
	normalizer, err := textutil.LoadNormalizer(cfg.Analysis.MappingFile, cfg.Analysis.ForbiddenFile)
	if err != nil {
		return nil, err
	}

	tool := ffmpeg.New(cfg, logger)
	client := llm.NewClient(llm.ConfigFromSettings(cfg.LLM), llm.WithLogger(logger))
	memory := accel.NewProbe(cfg, logger)

	var scorer confidence.Scorer = confidence.LexicalScorer{}
	if strings.TrimSpace(cfg.LLM.EmbeddingModel) != "" {
		scorer = client
	}

	manager := workflow.NewManager(cfg, store, tool, tool, logger, opts...)
	manager.ConfigureStages(workflow.StageSet{
		Analysis: analysis.NewHandler(cfg, analysis.Dependencies{
			Frames:     tool,
			Analyzer:   client,
			Loader:     client,
			Memory:     memory,
			Normalizer: normalizer,
		}, logger),
		Confidence: confidence.NewHandler(scorer, logger),
		Cut:        cut.NewHandler(cfg, tool, logger),
	})
	return &pipeline{manager: manager, tool: tool, llm: client, memory: memory}, nil
}
