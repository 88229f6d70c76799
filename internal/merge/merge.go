package merge

import (
	"math"
	"slices"
	"strings"

	"smartcut/internal/config"
	"smartcut/internal/session"
	"smartcut/internal/textutil"
)

// Params tunes harmonization.
type Params struct {
	Threshold     float64
	GapConfidence float64
	MaxTimeGap    float64
	MinDuration   float64
	MaxDuration   float64
}

// ParamsFromConfig combines the merge and segmentation sections.
func ParamsFromConfig(cfg *config.Config) Params {
	return Params{
		Threshold:     cfg.Merge.Threshold,
		GapConfidence: cfg.Merge.GapConfidence,
		MaxTimeGap:    cfg.Merge.MaxTimeGap,
		MinDuration:   cfg.Segmentation.MinDuration,
		MaxDuration:   cfg.Segmentation.MaxDuration,
	}
}

// group is a run of adjacent segments folded together.
type group struct {
	start       float64
	end         float64
	description []string
	keywords    []string
	confidence  float64
	sources     []*session.Segment
}

func newGroup(seg *session.Segment) *group {
	g := &group{
		start:      seg.Start,
		end:        seg.End,
		keywords:   slices.Clone(seg.Keywords),
		confidence: seg.Confidence,
		sources:    []*session.Segment{seg},
	}
	if desc := strings.TrimSpace(seg.Description); desc != "" {
		g.description = []string{desc}
	}
	return g
}

func (g *group) duration() float64 {
	return g.end - g.start
}

func (g *group) absorb(next *group) {
	g.end = next.end
	g.description = append(g.description, next.description...)
	g.keywords = textutil.MergeKeywords(g.keywords, next.keywords)
	g.confidence = math.Max(g.confidence, next.confidence)
	g.sources = append(g.sources, next.sources...)
}

// compatible reports whether next may fold into acc.
func (p Params) compatible(acc, next *group) bool {
	if math.Abs(next.start-acc.end) > p.MaxTimeGap {
		return false
	}
	if textutil.Jaccard(acc.keywords, next.keywords) < p.Threshold {
		return false
	}
	return math.Abs(next.confidence-acc.confidence) <= p.GapConfidence
}

// Merge harmonizes segments in three passes: a greedy fold of adjacent
// compatible segments, a catch-up pass that attaches short outputs to a
// neighbour, and a duration filter. Outputs built from several sources are
// new segments whose MergedFrom lists the source UIDs; single-source outputs
// are the original segments, returned as is. Sources are never mutated.
func Merge(segments []*session.Segment, params Params) []*session.Segment {
	if len(segments) == 0 {
		return nil
	}
	ordered := slices.Clone(segments)
	slices.SortStableFunc(ordered, func(a, b *session.Segment) int {
		switch {
		case a.Start < b.Start:
			return -1
		case a.Start > b.Start:
			return 1
		default:
			return 0
		}
	})

	groups := params.fold(ordered)
	groups = params.catchUp(groups)

	var out []*session.Segment
	for _, g := range groups {
		d := g.duration()
		if d < params.MinDuration {
			continue
		}
		if d > params.MaxDuration && len(g.sources) > 1 {
			continue
		}
		out = append(out, g.segment())
	}
	return out
}

func (p Params) fold(ordered []*session.Segment) []*group {
	var groups []*group
	acc := newGroup(ordered[0])
	for _, seg := range ordered[1:] {
		next := newGroup(seg)
		if p.compatible(acc, next) {
			acc.absorb(next)
			continue
		}
		groups = append(groups, acc)
		acc = next
	}
	return append(groups, acc)
}

// catchUp attaches outputs shorter than MinDuration to the previous output,
// or failing that to the next one, when they pass the fold predicate and the
// combined span stays within MaxDuration.
func (p Params) catchUp(groups []*group) []*group {
	var fixed []*group
	for i := 0; i < len(groups); i++ {
		g := groups[i]
		if g.duration() >= p.MinDuration {
			fixed = append(fixed, g)
			continue
		}
		if len(fixed) > 0 {
			prev := fixed[len(fixed)-1]
			if p.compatible(prev, g) && g.end-prev.start <= p.MaxDuration {
				prev.absorb(g)
				continue
			}
		}
		if i+1 < len(groups) {
			next := groups[i+1]
			if p.compatible(g, next) && next.end-g.start <= p.MaxDuration {
				g.absorb(next)
				fixed = append(fixed, g)
				i++
				continue
			}
		}
		fixed = append(fixed, g)
	}
	return fixed
}

func (g *group) segment() *session.Segment {
	if len(g.sources) == 1 {
		return g.sources[0]
	}
	first := g.sources[0]
	merged := session.NewSegment(g.start, g.end)
	merged.Description = strings.Join(g.description, " ")
	merged.Keywords = textutil.MergeKeywords(g.keywords)
	merged.Confidence = g.confidence
	merged.Status = first.Status
	merged.Model = first.Model
	merged.MergedFrom = make([]string, 0, len(g.sources))
	for _, src := range g.sources {
		if len(src.MergedFrom) > 0 {
			merged.MergedFrom = append(merged.MergedFrom, src.MergedFrom...)
			continue
		}
		merged.MergedFrom = append(merged.MergedFrom, src.UID)
	}
	return merged
}

// HighlightsOnly keeps only outputs produced by an actual merge.
func HighlightsOnly(segments []*session.Segment) []*session.Segment {
	var out []*session.Segment
	for _, seg := range segments {
		if len(seg.MergedFrom) > 1 {
			out = append(out, seg)
		}
	}
	return out
}
