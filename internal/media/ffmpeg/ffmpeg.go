package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"smartcut/internal/config"
	"smartcut/internal/logging"
	"smartcut/internal/media/ffprobe"
	"smartcut/internal/segmenter"
	"smartcut/internal/services"
)

// CommandRunner executes an external binary and returns its stdout and stderr.
type CommandRunner func(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)

// ProbeFunc inspects a media file.
type ProbeFunc func(ctx context.Context, binary, path string) (ffprobe.Result, error)

// CodecProfile is the encoder configuration for materialized segments.
type CodecProfile struct {
	VideoCodec string
	AudioCodec string
	CRF        int
	Preset     string
	HWAccel    string
}

// ProfileFromConfig builds a CodecProfile from the cut section.
func ProfileFromConfig(cfg config.Cut) CodecProfile {
	return CodecProfile{
		VideoCodec: cfg.VideoCodec,
		AudioCodec: cfg.AudioCodec,
		CRF:        cfg.CRF,
		Preset:     cfg.Preset,
		HWAccel:    cfg.HWAccel,
	}
}

// Tool wraps the ffmpeg and ffprobe binaries.
type Tool struct {
	ffmpeg  string
	ffprobe string
	run     CommandRunner
	probe   ProbeFunc
	logger  *slog.Logger
}

// Option customizes a Tool.
type Option func(*Tool)

// WithRunner replaces the process runner, mainly for tests.
func WithRunner(run CommandRunner) Option {
	return func(t *Tool) {
		if run != nil {
			t.run = run
		}
	}
}

// WithProbe replaces the ffprobe inspection function.
func WithProbe(probe ProbeFunc) Option {
	return func(t *Tool) {
		if probe != nil {
			t.probe = probe
		}
	}
}

// New constructs a Tool using the configured binaries.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Tool {
	t := &Tool{
		ffmpeg:  cfg.FFmpegBinary(),
		ffprobe: cfg.FFprobeBinary(),
		run:     runCommand,
		probe:   ffprobe.Inspect,
		logger:  logging.NewComponentLogger(logger, "ffmpeg"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// Probe returns the source metadata. Failure means the media is unreadable.
func (t *Tool) Probe(ctx context.Context, path string) (ffprobe.Result, error) {
	result, err := t.probe(ctx, t.ffprobe, path)
	if err != nil {
		if ctx.Err() != nil {
			return ffprobe.Result{}, ctx.Err()
		}
		return ffprobe.Result{}, services.Wrap(services.ErrFormat, "probe", "ffprobe", path, err)
	}
	return result, nil
}

// Duration returns the source duration in seconds. A zero duration is
// reported as a format error.
func (t *Tool) Duration(ctx context.Context, path string) (float64, error) {
	result, err := t.Probe(ctx, path)
	if err != nil {
		return 0, err
	}
	duration := result.DurationSeconds()
	if duration <= 0 {
		return 0, services.Wrap(services.ErrFormat, "probe", "duration", fmt.Sprintf("unknown duration for %s", path), nil)
	}
	return duration, nil
}

var ptsTimeRe = regexp.MustCompile(`pts_time:\s*(-?\d+(?:\.\d+)?)`)

// Detect runs ffmpeg scene detection over window. The threshold uses the
// 0-100 content scale and maps onto ffmpeg's 0-1 scene score. Cuts closer
// than minSceneLen to the previous boundary are ignored. When no cut is
// found the result is empty.
func (t *Tool) Detect(ctx context.Context, path string, threshold float64, window segmenter.Window, minSceneLen float64) ([]segmenter.Range, error) {
	if window.End <= window.Start {
		return nil, nil
	}
	args := []string{
		"-hide_banner", "-nostdin", "-nostats",
		"-ss", formatSeconds(window.Start),
		"-t", formatSeconds(window.End - window.Start),
		"-i", path,
		"-an", "-sn",
		"-vf", fmt.Sprintf("select='gt(scene,%.4f)',showinfo", threshold/100),
		"-vsync", "vfr",
		"-f", "null", "-",
	}
	_, stderr, err := t.run(ctx, t.ffmpeg, args...)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, services.Wrap(services.ErrExternalTool, "segmentation", "scene detect", stderrTail(stderr), err)
	}
	cuts := ParseSceneChanges(string(stderr))
	for i := range cuts {
		cuts[i] += window.Start
	}
	ranges := cutsToRanges(cuts, window, minSceneLen)
	t.logger.Debug("scene detection",
		logging.Float64("threshold", threshold),
		logging.Span(window.Start, window.End),
		logging.Int("cuts", len(cuts)),
		logging.Int("ranges", len(ranges)),
	)
	return ranges, nil
}

// ParseSceneChanges extracts pts_time values from showinfo output.
func ParseSceneChanges(output string) []float64 {
	var changes []float64
	for _, line := range strings.Split(output, "\n") {
		if !strings.Contains(line, "pts_time") {
			continue
		}
		m := ptsTimeRe.FindStringSubmatch(line)
		if len(m) < 2 {
			continue
		}
		ts, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		changes = append(changes, ts)
	}
	slices.Sort(changes)
	return changes
}

func cutsToRanges(cuts []float64, window segmenter.Window, minSceneLen float64) []segmenter.Range {
	var ranges []segmenter.Range
	last := window.Start
	for _, c := range cuts {
		if c <= last || c >= window.End {
			continue
		}
		if c-last < minSceneLen {
			continue
		}
		ranges = append(ranges, segmenter.Range{Start: last, End: c})
		last = c
	}
	if len(ranges) == 0 {
		return nil
	}
	if window.End-last < minSceneLen {
		ranges[len(ranges)-1].End = window.End
		return ranges
	}
	return append(ranges, segmenter.Range{Start: last, End: window.End})
}

// Cut re-encodes [start, end) of path into outPath. A partial output is
// removed on failure.
func (t *Tool) Cut(ctx context.Context, path string, start, end float64, outPath string, profile CodecProfile) error {
	if end <= start {
		return services.Wrap(services.ErrValidation, "cut", "range", fmt.Sprintf("empty range %.3f-%.3f", start, end), nil)
	}
	args := []string{"-hide_banner", "-nostdin", "-nostats", "-y"}
	if hw := strings.TrimSpace(profile.HWAccel); hw != "" {
		args = append(args, "-hwaccel", hw)
	}
	args = append(args,
		"-ss", formatSeconds(start),
		"-i", path,
		"-t", formatSeconds(end-start),
		"-map", "0:v:0", "-map", "0:a?",
	)
	if profile.VideoCodec != "" {
		args = append(args, "-c:v", profile.VideoCodec)
	}
	if profile.CRF > 0 {
		args = append(args, "-crf", strconv.Itoa(profile.CRF))
	}
	if profile.Preset != "" {
		args = append(args, "-preset", profile.Preset)
	}
	if profile.AudioCodec != "" {
		args = append(args, "-c:a", profile.AudioCodec)
	}
	args = append(args, outPath)

	_, stderr, err := t.run(ctx, t.ffmpeg, args...)
	if err != nil {
		if removeErr := os.Remove(outPath); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
			t.logger.Warn("remove partial output failed",
				logging.String("path", outPath),
				logging.Error(removeErr),
				logging.String(logging.FieldEventType, "partial_cleanup_failed"),
				logging.String(logging.FieldErrorHint, "delete the file manually before retrying"),
			)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return services.Wrap(services.ErrExternalTool, "cut", "ffmpeg", stderrTail(stderr), err)
	}
	return nil
}

// ExtractFrames grabs one JPEG per timestamp into dir and returns the paths
// in timestamp order.
func (t *Tool) ExtractFrames(ctx context.Context, path string, timestamps []float64, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "analysis", "frames", "create frame directory", err)
	}
	frames := make([]string, 0, len(timestamps))
	for i, ts := range timestamps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out := filepath.Join(dir, fmt.Sprintf("frame_%03d.jpg", i))
		args := []string{
			"-hide_banner", "-nostdin", "-nostats", "-y",
			"-ss", formatSeconds(ts),
			"-i", path,
			"-frames:v", "1",
			"-q:v", "2",
			out,
		}
		if _, stderr, err := t.run(ctx, t.ffmpeg, args...); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, services.Wrap(services.ErrExternalTool, "analysis", "frames", fmt.Sprintf("frame at %.3fs: %s", ts, stderrTail(stderr)), err)
		}
		frames = append(frames, out)
	}
	return frames, nil
}

func formatSeconds(value float64) string {
	return strconv.FormatFloat(value, 'f', 3, 64)
}

func stderrTail(stderr []byte) string {
	lines := strings.Split(strings.TrimSpace(string(stderr)), "\n")
	if len(lines) > 5 {
		lines = lines[len(lines)-5:]
	}
	return strings.TrimSpace(strings.Join(lines, " | "))
}
