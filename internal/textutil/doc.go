// Package textutil provides the label handling shared by discovery, gap
// analysis, and extraction.
//
// Hall and meal labels are compared case-insensitively after trimming,
// whitespace collapsing, and NFC normalization (Fold, EqualFold, IndexFold).
// Closest suggests the nearest label when a lookup misses, which makes
// "meal tab not found" logs actionable. Slug builds dietary tags and
// screenshot file names.
package textutil
