package workflow

import (
	"log/slog"

	"smartcut/internal/config"
	"smartcut/internal/logging"
	"smartcut/internal/notifications"
	"smartcut/internal/quarantine"
	"smartcut/internal/segmenter"
	"smartcut/internal/stageexec"
)

// Manager coordinates one video at a time through the pipeline stages.
type Manager struct {
	cfg       *config.Config
	store     SessionStore
	logger    *slog.Logger
	detector  SceneDetector
	media     MediaTool
	segmenter *segmenter.Segmenter
	stages    StageSet

	errorSink ErrorSink
	trash     ErrorSink
	notifier  notifications.Notifier
	progress  stageexec.ProgressFunc
	preflight bool
}

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*Manager)

// WithProgress reports per-segment progress of each stage.
func WithProgress(fn stageexec.ProgressFunc) ManagerOption {
	return func(m *Manager) {
		m.progress = fn
	}
}

// WithPreflight runs directory and binary checks before each run.
func WithPreflight(enabled bool) ManagerOption {
	return func(m *Manager) {
		m.preflight = enabled
	}
}

// WithErrorSink replaces the error directory router.
func WithErrorSink(sink ErrorSink) ManagerOption {
	return func(m *Manager) {
		if sink != nil {
			m.errorSink = sink
		}
	}
}

// WithTrash replaces the trash router.
func WithTrash(sink ErrorSink) ManagerOption {
	return func(m *Manager) {
		if sink != nil {
			m.trash = sink
		}
	}
}

// WithNotifier replaces the notifier built from the notifications section.
func WithNotifier(n notifications.Notifier) ManagerOption {
	return func(m *Manager) {
		if n != nil {
			m.notifier = n
		}
	}
}

// NewManager constructs a workflow manager.
func NewManager(cfg *config.Config, store SessionStore, detector SceneDetector, media MediaTool, logger *slog.Logger, opts ...ManagerOption) *Manager {
	logger = logging.NewComponentLogger(logger, "workflow-manager")
	m := &Manager{
		cfg:       cfg,
		store:     store,
		logger:    logger,
		detector:  detector,
		media:     media,
		segmenter: segmenter.New(segmenter.ParamsFromConfig(cfg.Segmentation), logger),
		errorSink: quarantine.New(cfg.Paths.ErrorDir, "error", logger),
		trash:     quarantine.New(cfg.Paths.TrashDir, "trash", logger),
		notifier:  notifications.NewService(cfg.Notifications),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ConfigureStages registers the per-segment stage handlers.
func (m *Manager) ConfigureStages(set StageSet) {
	m.stages = set
}
