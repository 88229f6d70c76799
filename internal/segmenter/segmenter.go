package segmenter

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"

	"smartcut/internal/config"
	"smartcut/internal/logging"
	"smartcut/internal/services"
)

// Range is a half-open time span in seconds.
type Range struct {
	Start float64
	End   float64
}

// Duration returns the range length in seconds.
func (r Range) Duration() float64 {
	return r.End - r.Start
}

// Window bounds a detector call to part of the timeline.
type Window = Range

// DetectFunc runs scene detection at threshold over window.
type DetectFunc func(ctx context.Context, threshold float64, window Window) ([]Range, error)

// Params tunes segmentation.
type Params struct {
	InitialThreshold   float64
	MinThreshold       float64
	ThresholdStep      float64
	MinDuration        float64
	MaxDuration        float64
	RefineTriggerRatio float64
	CoverageRatio      float64
	GapTolerance       float64
}

// ParamsFromConfig copies segmentation settings out of the loaded config.
func ParamsFromConfig(cfg config.Segmentation) Params {
	return Params{
		InitialThreshold:   cfg.InitialThreshold,
		MinThreshold:       cfg.MinThreshold,
		ThresholdStep:      cfg.ThresholdStep,
		MinDuration:        cfg.MinDuration,
		MaxDuration:        cfg.MaxDuration,
		RefineTriggerRatio: cfg.RefineTriggerRatio,
		CoverageRatio:      cfg.CoverageRatio,
		GapTolerance:       cfg.GapTolerance,
	}
}

// Thresholds returns the descending refinement ladder.
func (p Params) Thresholds() []float64 {
	return config.Segmentation{
		InitialThreshold: p.InitialThreshold,
		MinThreshold:     p.MinThreshold,
		ThresholdStep:    p.ThresholdStep,
	}.Thresholds()
}

func (p Params) refineTrigger() float64 {
	return p.RefineTriggerRatio * p.MaxDuration
}

// Segmenter splits a timeline into ranges using a scene detector.
type Segmenter struct {
	params Params
	logger *slog.Logger
}

// New constructs a Segmenter.
func New(params Params, logger *slog.Logger) *Segmenter {
	return &Segmenter{params: params, logger: logging.NewComponentLogger(logger, "segmenter")}
}

// Segment runs Segmenter.Segment without logging.
func Segment(ctx context.Context, duration float64, detect DetectFunc, params Params) ([]Range, error) {
	return New(params, nil).Segment(ctx, duration, detect)
}

// Segment produces gap-filled ranges covering the timeline. Ranges long
// enough to trigger refinement are re-detected at descending thresholds.
// Detector errors are returned unchanged.
func (s *Segmenter) Segment(ctx context.Context, duration float64, detect DetectFunc) ([]Range, error) {
	if duration <= 0 || math.IsNaN(duration) || math.IsInf(duration, 0) {
		return nil, services.Wrap(services.ErrFormat, "segmentation", "duration", fmt.Sprintf("unknown duration %v", duration), nil)
	}
	if detect == nil {
		return nil, services.Wrap(services.ErrConfiguration, "segmentation", "detect", "scene detector unavailable", nil)
	}

	whole := Window{Start: 0, End: duration}
	initial, err := detect(ctx, s.params.InitialThreshold, whole)
	if err != nil {
		return nil, err
	}
	initial = clip(initial, whole)
	s.logger.Debug("initial detection",
		logging.Float64("threshold", s.params.InitialThreshold),
		logging.Int("ranges", len(initial)),
	)

	ladder := s.params.Thresholds()
	refined, err := s.refineAll(ctx, initial, nil, ladder, detect)
	if err != nil {
		return nil, err
	}

	filled, synthetic := fillGaps(refined, duration, s.params.GapTolerance)
	final, err := s.refineAll(ctx, filled, synthetic, ladder, detect)
	if err != nil {
		return nil, err
	}

	kept := final[:0]
	for _, r := range final {
		if r.Duration() >= s.params.MinDuration {
			kept = append(kept, r)
		}
	}

	coverage := Coverage(kept, duration)
	s.logger.Info("segmentation complete",
		logging.Int("segments", len(kept)),
		logging.Float64("coverage", coverage),
	)
	if coverage < s.params.CoverageRatio {
		return nil, services.Wrap(services.ErrCoverage, "segmentation", "coverage",
			fmt.Sprintf("segments cover %.1f%% of %.1fs, need %.1f%%", coverage*100, duration, s.params.CoverageRatio*100), nil)
	}
	return kept, nil
}

// refineAll refines every range at or above the trigger length. When only is
// non-nil, ranges whose flag is false pass through untouched.
func (s *Segmenter) refineAll(ctx context.Context, ranges []Range, only []bool, ladder []float64, detect DetectFunc) ([]Range, error) {
	out := make([]Range, 0, len(ranges))
	for i, r := range ranges {
		if only != nil && !only[i] {
			out = append(out, r)
			continue
		}
		if r.Duration() < s.params.refineTrigger() {
			out = append(out, r)
			continue
		}
		subs, err := s.refine(ctx, r, ladder, detect)
		if err != nil {
			return nil, err
		}
		out = append(out, subs...)
	}
	sortRanges(out)
	return out, nil
}

type work struct {
	r      Range
	ladder []float64
}

// refine splits r by descending the ladder until a threshold yields ranges.
// Sub-ranges still longer than MaxDuration are pushed with the remainder of
// the ladder, so depth never exceeds the ladder length.
func (s *Segmenter) refine(ctx context.Context, r Range, ladder []float64, detect DetectFunc) ([]Range, error) {
	stack := []work{{r: r, ladder: ladder}}
	var out []Range
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		found := false
		for i, threshold := range item.ladder {
			subs, err := detect(ctx, threshold, item.r)
			if err != nil {
				return nil, err
			}
			subs = clip(subs, item.r)
			if len(subs) == 0 {
				continue
			}
			found = true
			rest := item.ladder[i+1:]
			s.logger.Debug("refined range",
				logging.Span(item.r.Start, item.r.End),
				logging.Float64("threshold", threshold),
				logging.Int("ranges", len(subs)),
			)
			for _, sub := range subs {
				if sub.Duration() > s.params.MaxDuration && len(rest) > 0 {
					stack = append(stack, work{r: sub, ladder: rest})
					continue
				}
				out = append(out, sub)
			}
			break
		}
		if !found {
			out = append(out, item.r)
		}
	}
	sortRanges(out)
	return out, nil
}

// fillGaps normalizes ranges into a sorted, non-overlapping list inside
// [0, duration] and inserts synthetic ranges for gaps wider than tolerance.
// The returned flags mark the synthetic ranges.
func fillGaps(ranges []Range, duration, tolerance float64) ([]Range, []bool) {
	normalized := normalize(ranges, duration)
	if len(normalized) == 0 {
		return []Range{{Start: 0, End: duration}}, []bool{true}
	}

	var (
		out       []Range
		synthetic []bool
		cursor    float64
	)
	for _, r := range normalized {
		if r.Start-cursor > tolerance {
			out = append(out, Range{Start: cursor, End: r.Start})
			synthetic = append(synthetic, true)
		}
		out = append(out, r)
		synthetic = append(synthetic, false)
		cursor = r.End
	}
	if duration-cursor > tolerance {
		out = append(out, Range{Start: cursor, End: duration})
		synthetic = append(synthetic, true)
	}
	return out, synthetic
}

func normalize(ranges []Range, duration float64) []Range {
	sorted := clip(ranges, Window{Start: 0, End: duration})
	sortRanges(sorted)
	sorted = slices.Compact(sorted)

	var (
		out     []Range
		lastEnd float64
	)
	for _, r := range sorted {
		if r.Start < lastEnd {
			r.Start = lastEnd
		}
		if r.End <= r.Start {
			continue
		}
		out = append(out, r)
		lastEnd = r.End
	}
	return out
}

func clip(ranges []Range, window Window) []Range {
	out := make([]Range, 0, len(ranges))
	for _, r := range ranges {
		r.Start = math.Max(r.Start, window.Start)
		r.End = math.Min(r.End, window.End)
		if r.End > r.Start {
			out = append(out, r)
		}
	}
	return out
}

func sortRanges(ranges []Range) {
	slices.SortFunc(ranges, func(a, b Range) int {
		if c := cmpFloat(a.Start, b.Start); c != 0 {
			return c
		}
		return cmpFloat(a.End, b.End)
	})
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Coverage returns the share of duration spanned by ranges.
func Coverage(ranges []Range, duration float64) float64 {
	if duration <= 0 {
		return 0
	}
	var total float64
	for _, r := range ranges {
		total += r.Duration()
	}
	return total / duration
}
