package ffprobe

import (
	"math"
	"testing"
)

const sampleJSON = `{
  "streams": [
    {"index": 0, "codec_name": "h264", "codec_type": "video", "width": 1920, "height": 1080, "avg_frame_rate": "30000/1001", "r_frame_rate": "30/1"},
    {"index": 1, "codec_name": "aac", "codec_type": "audio", "channels": 2}
  ],
  "format": {"filename": "clip.mp4", "nb_streams": 2, "duration": "600.000", "bit_rate": "4500000", "format_name": "mov,mp4"}
}`

func TestParseSourceMetadata(t *testing.T) {
	result, err := Parse([]byte(sampleJSON))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if result.DurationSeconds() != 600 {
		t.Fatalf("unexpected duration: %v", result.DurationSeconds())
	}
	if fps := result.FPS(); math.Abs(fps-29.97) > 0.01 {
		t.Fatalf("unexpected fps: %v", fps)
	}
	if result.Resolution() != "1920x1080" {
		t.Fatalf("unexpected resolution: %q", result.Resolution())
	}
	if result.VideoCodec() != "h264" {
		t.Fatalf("unexpected codec: %q", result.VideoCodec())
	}
	if result.BitRate() != 4500000 {
		t.Fatalf("unexpected bitrate: %d", result.BitRate())
	}
	if !result.HasAudio() {
		t.Fatal("expected audio stream")
	}
}

func TestResultHelpersHandleMissingValues(t *testing.T) {
	result := Result{
		Streams: []Stream{{CodecType: "video", Duration: "42.5", RFrameRate: "25/1", AvgFrameRate: "0/0"}},
		Format:  Format{Duration: "bad", BitRate: "nope"},
	}
	if result.DurationSeconds() != 42.5 {
		t.Fatalf("expected stream duration fallback, got %v", result.DurationSeconds())
	}
	if result.FPS() != 25 {
		t.Fatalf("expected r_frame_rate fallback, got %v", result.FPS())
	}
	if result.BitRate() != 0 {
		t.Fatalf("expected bitrate 0, got %d", result.BitRate())
	}
	if result.Resolution() != "" || result.HasAudio() {
		t.Fatal("expected empty resolution and no audio")
	}

	var empty Result
	if empty.DurationSeconds() != 0 || empty.FPS() != 0 {
		t.Fatal("expected zero values for empty result")
	}
}

func TestParseRejectsInvalidJSON(t *testing.T) {
	if _, err := Parse([]byte("not json")); err == nil {
		t.Fatal("expected parse error")
	}
}
