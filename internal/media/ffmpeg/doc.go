// Package ffmpeg drives the ffmpeg and ffprobe binaries for the pipeline:
// scene detection through the select/showinfo filters, frame extraction for
// analysis, and re-encoding segments into standalone files.
//
// Process execution goes through a CommandRunner so tests can script tool
// output without the binaries installed.
package ffmpeg
