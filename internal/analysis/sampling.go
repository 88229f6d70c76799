package analysis

import (
	"smartcut/internal/config"
)

// FrameCount returns how many frames to sample from a segment of the given
// duration. Auto mode scales base_rate per minute with a floor of three;
// fixed mode samples fixed_fps with a floor of one.
func FrameCount(cfg config.Analysis, duration float64) int {
	if duration <= 0 {
		return 1
	}
	if cfg.FrameMode == config.FrameModeFixed {
		return max(1, int(duration*cfg.FixedFPS))
	}
	return max(3, int(float64(cfg.BaseRate)*duration/60))
}

// Timestamps spreads n sample points evenly from start across duration.
func Timestamps(start, duration float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	step := duration / float64(n)
	out := make([]float64, n)
	for i := range out {
		out[i] = start + step*float64(i)
	}
	return out
}

// chunks splits frames into consecutive groups of at most size.
func chunks(frames []string, size int) [][]string {
	if size < 1 {
		size = 1
	}
	var out [][]string
	for len(frames) > 0 {
		n := min(size, len(frames))
		out = append(out, frames[:n])
		frames = frames[n:]
	}
	return out
}
