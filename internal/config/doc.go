// Package config holds dinehall's TOML settings.
//
// Load starts from Default, overlays ~/.config/dinehall/config.toml (or the
// file named by --config), applies the DINEHALL_BASE_URL and
// DINEHALL_NTFY_TOPIC environment overrides, then expands "~" in every path
// and rejects out-of-range values. Selectors for the menu site live under
// [site.selectors] so a markup change needs only a config edit.
package config
