// Package notifications pushes short status messages to an ntfy topic when a
// video finishes or fails. Without a configured topic the Notifier is a noop,
// so callers never need to check whether notifications are enabled.
package notifications
