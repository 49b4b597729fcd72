// Package notifications pushes scrape run outcomes to ntfy.
//
// NewService returns a no-op Service when no topic is configured. Events
// are gated by the on_failure and on_success settings so callers can
// publish unconditionally.
package notifications
