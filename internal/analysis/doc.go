// Package analysis implements the per-segment description stage.
//
// For each pending segment the handler samples frames across the segment,
// extracts them with ffmpeg into a scratch directory, and sends them to the
// vision model in chunks sized from free accelerator memory. The chunk
// outputs are combined into one description and a normalized keyword list.
//
// The model is loaded once in Prepare and released in Release; the batch
// size is computed at the same time and holds for the whole stage run.
package analysis
