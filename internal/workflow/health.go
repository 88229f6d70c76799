package workflow

import (
	"context"

	"smartcut/internal/session"
	"smartcut/internal/stage"
)

// Health reports the health of every configured stage handler.
func (m *Manager) Health(ctx context.Context) []stage.Health {
	named := []struct {
		stage   session.Stage
		handler stage.Handler
	}{
		{session.StageAnalysis, m.stages.Analysis},
		{session.StageConfidence, m.stages.Confidence},
		{session.StageCut, m.stages.Cut},
	}
	out := make([]stage.Health, 0, len(named))
	for _, n := range named {
		if n.handler == nil {
			out = append(out, stage.Unhealthy(string(n.stage), "handler not configured"))
			continue
		}
		out = append(out, n.handler.HealthCheck(ctx))
	}
	return out
}
