package deps

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Optional", Command: "also-not-present", Optional: true},
		{Name: "Blank", Command: "  "},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Path != present {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for available dependency: %s", results[0].Detail)
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary with detail, got %#v", results[1])
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}
	if results[3].Detail != "command not configured" {
		t.Fatalf("unexpected detail for blank command: %q", results[3].Detail)
	}

	missing := Missing(results)
	if len(missing) != 2 || missing[0].Name != "Missing" || missing[1].Name != "Blank" {
		t.Fatalf("unexpected missing set %#v", missing)
	}
}

const filtersOutput = `Filters:
  T.. = Timeline support
  ... = Source or sink filter
 ... select            V->N       Select video frames to pass in output.
 ... showinfo          V->V       Show textual information for each video frame.
 T.C scale             V->V       Scale the input video size and/or convert the image format.
`

func TestCheckFFmpegFilters(t *testing.T) {
	run := func(_ context.Context, name string, args ...string) ([]byte, error) {
		if name != "ffmpeg" || strings.Join(args, " ") != "-hide_banner -filters" {
			t.Fatalf("unexpected invocation %s %v", name, args)
		}
		return []byte(filtersOutput), nil
	}
	status := CheckFFmpegFilters(context.Background(), "ffmpeg", run)
	if !status.Available {
		t.Fatalf("expected filters available, got %q", status.Detail)
	}
}

func TestCheckFFmpegFiltersMissing(t *testing.T) {
	run := func(context.Context, string, ...string) ([]byte, error) {
		return []byte(" ... select            V->N       Select video frames\n"), nil
	}
	status := CheckFFmpegFilters(context.Background(), "ffmpeg", run)
	if status.Available || status.Detail != "missing filters: showinfo" {
		t.Fatalf("unexpected status %#v", status)
	}

	failing := func(context.Context, string, ...string) ([]byte, error) {
		return nil, errors.New("exec: not found")
	}
	if status := CheckFFmpegFilters(context.Background(), "ffmpeg", failing); status.Available {
		t.Fatal("expected failure when ffmpeg cannot run")
	}
}
