package logging

import "testing"

func TestNewProgressSamplerDefaults(t *testing.T) {
	tests := []struct {
		name       string
		bucketSize float64
		wantSize   float64
	}{
		{"zero uses default", 0, 10},
		{"negative uses default", -1, 10},
		{"custom", 25, 25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewProgressSampler(tt.bucketSize)
			if s.bucketSize != tt.wantSize {
				t.Fatalf("bucketSize = %v, want %v", s.bucketSize, tt.wantSize)
			}
			if s.lastBucket != -1 {
				t.Fatalf("lastBucket = %d, want -1", s.lastBucket)
			}
		})
	}
}

func TestProgressSamplerNil(t *testing.T) {
	var s *ProgressSampler
	if !s.ShouldLog("analysis", 1, 2) {
		t.Fatal("nil sampler should always log")
	}
	s.Reset()
}

func TestProgressSamplerBuckets(t *testing.T) {
	s := NewProgressSampler(25)
	steps := []struct {
		done int
		want bool
	}{
		{0, true},  // stage change
		{1, false}, // 10%
		{2, false}, // 20%
		{3, true},  // 30% crosses 25
		{4, false},
		{5, true}, // 50%
		{10, true},
		{12, false}, // capped at 100
	}
	for _, step := range steps {
		if got := s.ShouldLog("analysis", step.done, 10); got != step.want {
			t.Fatalf("ShouldLog(done=%d) = %v, want %v", step.done, got, step.want)
		}
	}
}

func TestProgressSamplerStageChangeResetsBucket(t *testing.T) {
	s := NewProgressSampler(10)
	s.ShouldLog("analysis", 5, 10)
	if !s.ShouldLog("confidence", 0, 10) {
		t.Fatal("stage change should log")
	}
	if !s.ShouldLog("confidence", 1, 10) {
		t.Fatal("10% after reset should log")
	}
	if s.lastStage != "confidence" {
		t.Fatalf("lastStage = %q", s.lastStage)
	}
}

func TestProgressSamplerUnknownTotal(t *testing.T) {
	s := NewProgressSampler(10)
	if !s.ShouldLog("cut", 0, 0) {
		t.Fatal("first call should log on stage change")
	}
	if s.ShouldLog("cut", 3, 0) {
		t.Fatal("unknown total should not log without stage change")
	}
}

func TestProgressSamplerReset(t *testing.T) {
	s := NewProgressSampler(10)
	s.ShouldLog("analysis", 5, 10)
	s.Reset()
	if s.lastStage != "" || s.lastBucket != -1 {
		t.Fatalf("unexpected state after reset: %+v", s)
	}
	if !s.ShouldLog("analysis", 5, 10) {
		t.Fatal("should log after reset")
	}
}
