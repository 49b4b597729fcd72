// Package scrape runs the incremental menu scrape: discover what the site
// publishes, diff it against stored records, drive the browser through
// each missing (hall, meal) pair, and persist the results in one batch.
//
// A Run owns the single browser session for its lifetime. Halls are
// processed sequentially through a small state machine
// (pending, selecting, extracting, done or failed) with bounded retries;
// crash-classified failures restart the session, transient ones wait and
// retry in place. A failed hall never stops the halls after it.
package scrape
