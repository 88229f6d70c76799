package accel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"smartcut/internal/config"
	"smartcut/internal/logging"
	"smartcut/internal/services"
)

const mibPerGB = 1024

// Memory reports accelerator memory in gigabytes.
type Memory struct {
	FreeGB  float64
	TotalGB float64
	// Source is "nvidia-smi" for measured values and "assumed" for the
	// configured fallback.
	Source string
}

// Runner executes a binary and returns its stdout.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Probe queries free accelerator memory.
type Probe struct {
	binary       string
	assumeFreeGB float64
	run          Runner
	logger       *slog.Logger
}

// ProbeOption customizes a Probe.
type ProbeOption func(*Probe)

// WithRunner replaces the process runner.
func WithRunner(run Runner) ProbeOption {
	return func(p *Probe) {
		if run != nil {
			p.run = run
		}
	}
}

// NewProbe builds a probe from the analysis configuration.
func NewProbe(cfg *config.Config, logger *slog.Logger, opts ...ProbeOption) *Probe {
	p := &Probe{
		binary:       cfg.NvidiaSMIBinary(),
		assumeFreeGB: cfg.Analysis.AssumeFreeGB,
		run:          runOutput,
		logger:       logging.NewComponentLogger(logger, "accel"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func runOutput(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Free returns the free memory of the first accelerator. When the query
// fails the configured assume_free_gb is used; without it the failure is a
// resource error.
func (p *Probe) Free(ctx context.Context) (Memory, error) {
	out, err := p.run(ctx, p.binary, "--query-gpu=memory.free,memory.total", "--format=csv,noheader,nounits")
	if err == nil {
		var mem Memory
		mem, err = parseNvidiaSMI(string(out))
		if err == nil {
			return mem, nil
		}
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Memory{}, ctxErr
	}
	if p.assumeFreeGB > 0 {
		p.logger.Warn("accelerator memory query failed; using configured value",
			logging.Error(err),
			logging.Float64("assume_free_gb", p.assumeFreeGB),
			logging.String(logging.FieldEventType, "accel_probe_fallback"),
			logging.String(logging.FieldErrorHint, "install nvidia-smi or keep analysis.assume_free_gb accurate"),
		)
		return Memory{FreeGB: p.assumeFreeGB, TotalGB: p.assumeFreeGB, Source: "assumed"}, nil
	}
	return Memory{}, services.Wrap(services.ErrResource, "analysis", "probe accelerator memory",
		"nvidia-smi unavailable and analysis.assume_free_gb not set", err)
}

// parseNvidiaSMI reads "free, total" MiB values from the first output line.
func parseNvidiaSMI(output string) (Memory, error) {
	line, _, _ := strings.Cut(strings.TrimSpace(output), "\n")
	parts := strings.Split(line, ",")
	if len(parts) < 2 {
		return Memory{}, fmt.Errorf("unexpected nvidia-smi output %q", line)
	}
	free, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Memory{}, fmt.Errorf("parse free memory: %w", err)
	}
	total, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Memory{}, fmt.Errorf("parse total memory: %w", err)
	}
	return Memory{FreeGB: free / mibPerGB, TotalGB: total / mibPerGB, Source: "nvidia-smi"}, nil
}

var errInvalidCost = errors.New("per-item cost must be positive")

// SafeBatchSize returns max(1, floor((free - margin) / cost)).
func SafeBatchSize(mem Memory, marginGB, costGB float64) (int, error) {
	if costGB <= 0 || math.IsNaN(costGB) || math.IsInf(costGB, 0) {
		return 0, services.Wrap(services.ErrResource, "analysis", "batch size", fmt.Sprintf("cost %.3f GB", costGB), errInvalidCost)
	}
	if math.IsNaN(mem.FreeGB) || math.IsInf(mem.FreeGB, 0) {
		return 0, services.Wrap(services.ErrResource, "analysis", "batch size", "free memory is not a number", nil)
	}
	batch := int(math.Floor((mem.FreeGB - marginGB) / costGB))
	return max(1, batch), nil
}
