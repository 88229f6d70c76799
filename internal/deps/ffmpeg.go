package deps

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// sceneFilters are the ffmpeg filters scene detection is built on.
var sceneFilters = []string{"select", "showinfo"}

// OutputRunner runs a binary and returns its stdout.
type OutputRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// CheckFFmpegFilters reports whether the ffmpeg binary ships the filters
// scene detection needs. A nil runner executes the binary directly.
func CheckFFmpegFilters(ctx context.Context, binary string, run OutputRunner) Status {
	status := Status{Requirement: Requirement{
		Name:        "FFmpeg filters",
		Command:     strings.TrimSpace(binary),
		Description: "select and showinfo are required for scene detection",
	}}
	if status.Command == "" {
		status.Detail = "command not configured"
		return status
	}
	if run == nil {
		run = runOutput
	}
	out, err := run(ctx, status.Command, "-hide_banner", "-filters")
	if err != nil {
		status.Detail = fmt.Sprintf("list filters: %v", err)
		return status
	}
	available := parseFilterNames(out)
	var missing []string
	for _, name := range sceneFilters {
		if _, ok := available[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		status.Detail = "missing filters: " + strings.Join(missing, ", ")
		return status
	}
	status.Available = true
	return status
}

// parseFilterNames reads the name column of `ffmpeg -filters`. Filter rows
// start with a flags column such as "T.C" or "..." followed by the name.
func parseFilterNames(out []byte) map[string]struct{} {
	names := make(map[string]struct{})
	for _, line := range strings.Split(string(out), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 || !strings.Contains(fields[2], "->") {
			continue
		}
		names[fields[1]] = struct{}{}
	}
	return names
}

func runOutput(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	err := cmd.Run()
	return stdout.Bytes(), err
}
