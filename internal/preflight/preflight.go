package preflight

import (
	"context"
	"fmt"

	"smartcut/internal/config"
)

// minFreeSpaceGB is the free space required on the output and work volumes.
const minFreeSpaceGB = 1.0

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the local preflight checks for the given config. Network
// checks are left to the doctor command.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	results = append(results, CheckDirectoryAccess("State directory", cfg.Paths.StateDir))
	results = append(results, CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir))

	output := CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir)
	results = append(results, output)
	if output.Passed {
		results = append(results, CheckFreeSpace("Output free space", cfg.Paths.OutputDir, minFreeSpaceGB))
	}

	for _, status := range CheckSystemDeps(ctx, cfg) {
		if status.Optional && !status.Available {
			continue
		}
		detail := status.Path
		if !status.Available {
			detail = status.Detail
		}
		results = append(results, Result{Name: status.Name, Passed: status.Available, Detail: detail})
	}
	return results
}

// Failures returns a combined error for failed results, or nil.
func Failures(results []Result) error {
	var failed []string
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, fmt.Sprintf("%s: %s", r.Name, r.Detail))
		}
	}
	if len(failed) == 0 {
		return nil
	}
	if len(failed) == 1 {
		return fmt.Errorf("preflight check failed: %s", failed[0])
	}
	return fmt.Errorf("%d preflight checks failed: %v", len(failed), failed)
}
