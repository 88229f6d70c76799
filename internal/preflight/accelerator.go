package preflight

import (
	"context"
	"fmt"

	"smartcut/internal/accel"
	"smartcut/internal/config"
)

// MemoryProber reports free accelerator memory.
type MemoryProber interface {
	Free(ctx context.Context) (accel.Memory, error)
}

// CheckAccelerator reports free accelerator memory and the analysis batch
// size it allows under the configured margin and precision.
func CheckAccelerator(ctx context.Context, cfg *config.Config, probe MemoryProber) Result {
	const name = "Accelerator"
	mem, err := probe.Free(ctx)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	batch, err := accel.SafeBatchSize(mem, cfg.Analysis.SafetyMarginGB, cfg.PrecisionCost())
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	detail := fmt.Sprintf("%.1f GB free via %s, batch size %d at %s", mem.FreeGB, mem.Source, batch, cfg.Analysis.Precision)
	return Result{Name: name, Passed: true, Detail: detail}
}
