package stage

import (
	"context"
	"log/slog"

	"smartcut/internal/session"
)

// Handler describes the contract the orchestrator needs from each
// per-segment stage.
//
// Prepare runs once before the first pending segment and may acquire
// resources; Release runs once afterwards, including when the run stops
// early. Process must not change the segment status: the executor moves it
// to the stage's terminal status on success.
type Handler interface {
	Prepare(context.Context, *session.Session) error
	Process(context.Context, *session.Session, *session.Segment) error
	Release()
	HealthCheck(context.Context) Health
}

// LoggerAware handlers receive the stage-scoped logger before Prepare.
type LoggerAware interface {
	SetLogger(*slog.Logger)
}

// Health is a stage's answer to "could a run start now". Detail explains a
// stage that is not ready and names the setting or binary to fix.
type Health struct {
	Name   string
	Ready  bool
	Detail string
}

// Healthy reports a ready stage.
func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// Unhealthy reports a stage that would fail every segment it touched.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Detail: detail}
}
