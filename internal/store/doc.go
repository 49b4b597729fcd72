// Package store persists scraped food records in SQLite.
//
// Records are keyed loosely by date, dining hall, meal, station, and item
// name. Batch writes run in a single transaction and surface failures as
// services.PersistenceError. The store offers the document-style queries the
// scraper relies on: find, distinct, count, and per-date (hall, meal)
// combinations for gap analysis.
package store
