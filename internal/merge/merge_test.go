package merge_test

import (
	"slices"
	"testing"

	"smartcut/internal/config"
	"smartcut/internal/merge"
	"smartcut/internal/session"
	"smartcut/internal/textutil"
)

func seg(start, end, confidence float64, keywords ...string) *session.Segment {
	s := session.NewSegment(start, end)
	s.Keywords = keywords
	s.Confidence = confidence
	s.Description = "scene"
	s.Status = session.SegmentConfidenceDone
	return s
}

func params() merge.Params {
	cfg := config.Default()
	return merge.ParamsFromConfig(&cfg)
}

func TestScenarioBDissimilarKeywordsStaySeparate(t *testing.T) {
	a := seg(0, 10, 0.8, "beach", "sunset")
	b := seg(10, 20, 0.8, "beach", "ocean")

	out := merge.Merge([]*session.Segment{a, b}, params())
	if len(out) != 2 || out[0] != a || out[1] != b {
		t.Fatalf("expected both originals unchanged, got %+v", out)
	}
	if len(out[0].MergedFrom) != 0 {
		t.Fatalf("unmerged output must have empty provenance, got %v", out[0].MergedFrom)
	}
}

func TestScenarioCSimilarSegmentsMerge(t *testing.T) {
	a := seg(0, 10, 0.80, "beach", "sunset")
	b := seg(10.2, 20, 0.85, "beach", "sunset", "crowd")

	out := merge.Merge([]*session.Segment{a, b}, params())
	if len(out) != 1 {
		t.Fatalf("expected one merged segment, got %d", len(out))
	}
	m := out[0]
	if m.Start != 0 || m.End != 20 {
		t.Fatalf("unexpected span [%v, %v]", m.Start, m.End)
	}
	if m.UID == a.UID || m.UID == b.UID {
		t.Fatal("merged segment must get a fresh uid")
	}
	if !slices.Equal(m.Keywords, []string{"beach", "crowd", "sunset"}) {
		t.Fatalf("unexpected keywords %v", m.Keywords)
	}
	if !slices.Equal(m.MergedFrom, []string{a.UID, b.UID}) {
		t.Fatalf("unexpected provenance %v", m.MergedFrom)
	}
	if m.Confidence != 0.85 || m.Description != "scene scene" {
		t.Fatalf("unexpected merged attributes: %+v", m)
	}
	if a.End != 10 || len(a.MergedFrom) != 0 {
		t.Fatal("sources must not be mutated")
	}
}

func TestPredicateRejectsGapsAndConfidence(t *testing.T) {
	cases := []struct {
		name string
		a, b *session.Segment
	}{
		{"time gap", seg(0, 10, 0.5, "a"), seg(10.6, 20, 0.5, "a")},
		{"confidence gap", seg(0, 10, 0.2, "a"), seg(10, 20, 0.5, "a")},
		{"no keywords", seg(0, 10, 0.5), seg(10, 20, 0.5)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := merge.Merge([]*session.Segment{tc.a, tc.b}, params())
			if len(out) != 2 {
				t.Fatalf("expected no merge, got %d outputs", len(out))
			}
		})
	}
}

func TestCatchUpPrefersPredecessor(t *testing.T) {
	a := seg(0, 10, 0.5, "a", "d")
	s1 := seg(10, 10.5, 0.5, "a", "b")
	s2 := seg(10.5, 11, 0.5, "a", "b", "d")

	out := merge.Merge([]*session.Segment{a, s1, s2}, params())
	if len(out) != 1 {
		t.Fatalf("expected short run absorbed into predecessor, got %+v", out)
	}
	if out[0].Start != 0 || out[0].End != 11 {
		t.Fatalf("unexpected span [%v, %v]", out[0].Start, out[0].End)
	}
	if !slices.Equal(out[0].MergedFrom, []string{a.UID, s1.UID, s2.UID}) {
		t.Fatalf("unexpected provenance %v", out[0].MergedFrom)
	}
}

func TestCatchUpFallsBackToSuccessor(t *testing.T) {
	a := seg(0, 10, 0.5, "x", "y")
	s := seg(10, 11, 0.5, "a", "b")
	n1 := seg(11, 15, 0.5, "a", "c")
	n2 := seg(15, 20, 0.5, "a", "b", "c")

	out := merge.Merge([]*session.Segment{a, s, n1, n2}, params())
	if len(out) != 2 || out[0] != a {
		t.Fatalf("unexpected outputs %+v", out)
	}
	if out[1].Start != 10 || out[1].End != 20 {
		t.Fatalf("unexpected span [%v, %v]", out[1].Start, out[1].End)
	}
	if !slices.Equal(out[1].MergedFrom, []string{s.UID, n1.UID, n2.UID}) {
		t.Fatalf("unexpected provenance %v", out[1].MergedFrom)
	}
}

func TestCatchUpRespectsMaxDurationThenFilterDropsShort(t *testing.T) {
	a := seg(0, 119.8, 0.5, "a", "d")
	s1 := seg(119.8, 120.3, 0.5, "a", "b")
	s2 := seg(120.3, 120.8, 0.5, "a", "b", "d")

	out := merge.Merge([]*session.Segment{a, s1, s2}, params())
	if len(out) != 1 || out[0] != a {
		t.Fatalf("expected only the long original, got %+v", out)
	}
}

func TestFilterKeepsUnsplittableButDropsOverlongMerge(t *testing.T) {
	long := seg(0, 200, 0.5, "solo")
	out := merge.Merge([]*session.Segment{long}, params())
	if len(out) != 1 || out[0] != long {
		t.Fatalf("never-merged long segment must be kept, got %+v", out)
	}

	a := seg(0, 100, 0.5, "same")
	b := seg(100, 200, 0.5, "same")
	if out := merge.Merge([]*session.Segment{a, b}, params()); len(out) != 0 {
		t.Fatalf("merged output over max_duration must be dropped, got %+v", out)
	}
}

func TestMergeIsDeterministic(t *testing.T) {
	input := []*session.Segment{
		seg(20, 30, 0.5, "city", "night"),
		seg(0, 10, 0.5, "beach", "sunset"),
		seg(10, 20, 0.6, "beach", "sunset", "crowd"),
		seg(30, 40, 0.5, "city", "night", "lights"),
	}
	first := merge.Merge(input, params())
	second := merge.Merge(input, params())
	if len(first) != len(second) {
		t.Fatalf("output count differs: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Start != second[i].Start || first[i].End != second[i].End {
			t.Fatalf("span %d differs", i)
		}
		if !slices.Equal(first[i].MergedFrom, second[i].MergedFrom) {
			t.Fatalf("provenance %d differs", i)
		}
	}
	if len(first) != 2 || first[0].Start != 0 || first[1].Start != 20 {
		t.Fatalf("expected chronological merged outputs, got %+v", first)
	}
}

func TestMergeContractJaccardBetweenDirectSources(t *testing.T) {
	p := params()
	input := []*session.Segment{
		seg(0, 5, 0.5, "a", "b"),
		seg(5, 10, 0.5, "a", "b", "c"),
		seg(10, 15, 0.5, "x"),
	}
	byUID := map[string]*session.Segment{}
	for _, s := range input {
		byUID[s.UID] = s
	}
	for _, out := range merge.Merge(input, p) {
		if len(out.MergedFrom) <= 1 {
			continue
		}
		acc := byUID[out.MergedFrom[0]].Keywords
		for _, uid := range out.MergedFrom[1:] {
			next := byUID[uid].Keywords
			if textutil.Jaccard(acc, next) < p.Threshold {
				t.Fatalf("sources merged below threshold: %v / %v", acc, next)
			}
			acc = textutil.MergeKeywords(acc, next)
		}
	}
}

func TestHighlightsOnly(t *testing.T) {
	a := seg(0, 10, 0.8, "beach", "sunset")
	b := seg(10, 20, 0.8, "beach", "sunset")
	c := seg(20, 30, 0.8, "city")
	out := merge.HighlightsOnly(merge.Merge([]*session.Segment{a, b, c}, params()))
	if len(out) != 1 || len(out[0].MergedFrom) != 2 {
		t.Fatalf("expected only the merged output, got %+v", out)
	}
}

func TestEmptyInput(t *testing.T) {
	if out := merge.Merge(nil, params()); out != nil {
		t.Fatalf("expected nil, got %+v", out)
	}
}
