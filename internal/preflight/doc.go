// Package preflight provides readiness checks for the browser binary, the
// menu site, and the filesystem paths dinehall writes to.
//
// The doctor command runs RunAll and CheckSystemDeps and renders the
// results; scrape runs CheckSystemDeps before launching a browser so a
// missing Chrome install fails fast with a clear message.
package preflight
