// Package browser owns the single Chrome session a scrape run drives.
//
// Session is the narrow page contract the discovery and extraction code use
// (navigate, click, bounded waits, text and HTML reads, screenshots). The
// Chrome implementation runs over the DevTools protocol with basic stealth
// measures: a desktop user agent, the automation flag hidden from
// navigator.webdriver, and scroll/mouse jitter on request.
//
// Manager creates sessions with a bounded launch retry, probes liveness, and
// restarts a crashed session. ClassifyError decides whether a failure means
// the browser died (restart before retrying) or the UI was merely slow
// (retry in place); the crash signatures live in one table.
package browser
