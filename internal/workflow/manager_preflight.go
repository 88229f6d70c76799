package workflow

import (
	"context"
	"log/slog"

	"smartcut/internal/logging"
	"smartcut/internal/preflight"
)

// runPreflightChecks verifies directories and binaries before a run starts.
func (m *Manager) runPreflightChecks(ctx context.Context, logger *slog.Logger) error {
	results := preflight.RunAll(ctx, m.cfg)
	for _, r := range results {
		if r.Passed {
			logger.Debug("preflight check passed",
				logging.String("check", r.Name),
				logging.String("detail", r.Detail),
			)
			continue
		}
		logging.ErrorWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", r.Name),
			logging.String("detail", r.Detail),
			logging.String(logging.FieldErrorHint, "run smartcut doctor for the full report"),
		)
	}
	return preflight.Failures(results)
}
