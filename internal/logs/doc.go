// Package logs reads the daily log files written by the logging package.
//
// Last returns the trailing lines of a file with bounded memory, and Follow
// polls for appended lines until the context ends. Both accept a Filter so
// callers can narrow output to a single session.
package logs
