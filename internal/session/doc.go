// Package session persists the pipeline state of each source video in SQLite
// and exposes the helpers stages use to track segment progress.
//
// A Session is keyed by the absolute source path and owns its segments and an
// append-only error log. Stages mutate the in-memory Session and checkpoint
// it through the Store: SaveSegment after each processed segment and Save at
// stage boundaries. A crash loses at most the segment in flight.
//
// Status ordering lives in models.go. When you add a status or a persisted
// field, update schema.sql and bump schemaVersion; users delete the database
// to adopt the new schema.
package session
