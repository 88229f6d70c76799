// Package accel sizes inference batches against free accelerator memory and
// tracks the lifetime of a loaded model.
//
// Free memory is read from nvidia-smi. Hosts without an NVIDIA device can set
// analysis.assume_free_gb so the analysis stage still gets a batch size.
// A Handle is owned by one stage run and released exactly once.
package accel
