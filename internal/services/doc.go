// Package services defines shared utilities consumed by the scraper
// components.
//
// Key responsibilities:
//   - Context helpers that stamp hall and meal names, stage names, and run
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper so failures raised deep in
//     browser automation stay classifiable with errors.Is (crash, transient,
//     session init, persistence).
//
// Use these helpers when wiring new scraper logic so operational behaviour
// (error handling, observability, retries) stays uniform across the run.
package services
