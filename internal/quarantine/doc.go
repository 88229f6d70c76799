// Package quarantine moves sources and artifacts out of the pipeline's way.
//
// A Dir files things into dated sub-directories (YYYY-MM-DD) under a root. The
// error directory receives sources whose segmentation could not cover enough
// of the timeline; the trash directory receives processed sources and segment
// files that were superseded. Purge removes dated directories older than a
// retention window, and CleanStale clears leftover frame work directories.
package quarantine
