// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - Stream: individual audio/video stream properties
//   - Format: container-level metadata (duration, bitrate)
//
// Inspect executes ffprobe and returns the parsed Result. Helper methods on
// Result expose the source metadata stored on a session: duration, frame
// rate, resolution, codec, bitrate, and audio presence.
package ffprobe
