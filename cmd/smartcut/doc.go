// Package main hosts the SmartCut CLI entrypoint and command graph.
//
// The Cobra-based command tree runs the segmentation pipeline over source
// videos, inspects and repairs stored sessions, checks system readiness, and
// scaffolds configuration. It centralizes configuration resolution, store
// access, and logger setup so subcommands can focus on user experience
// instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
