// Package retry provides the bounded retry policy used at the hall-selection
// and item-detail call sites. Each call site supplies its own attempt budget,
// backoff, and a classifier deciding between retrying in place, recovering
// shared state (restarting the browser) first, or giving up.
package retry
