package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"dinehall/internal/config"
	"dinehall/internal/deps"
)

type headlessFlags struct {
	headless   bool
	noHeadless bool
}

func (h *headlessFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&h.headless, "headless", false, "Run Chrome without a visible window (default from browser.headless)")
	cmd.Flags().BoolVar(&h.noHeadless, "no-headless", false, "Show the Chrome window")
	cmd.MarkFlagsMutuallyExclusive("headless", "no-headless")
}

// resolve applies explicit flags over the configured default.
func (h *headlessFlags) resolve(cmd *cobra.Command, cfg *config.Config) bool {
	switch {
	case cmd.Flags().Changed("no-headless"):
		return !h.noHeadless
	case cmd.Flags().Changed("headless"):
		return h.headless
	default:
		return cfg.Browser.Headless
	}
}

func parseDateFlag(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", nil
	}
	parsed, err := time.Parse(config.DateLayout, value)
	if err != nil {
		return "", fmt.Errorf("invalid --date %q: expected YYYY-MM-DD", value)
	}
	return parsed.Format(config.DateLayout), nil
}

func missingDepsError(missing []deps.Status) error {
	parts := make([]string, 0, len(missing))
	for _, status := range missing {
		parts = append(parts, fmt.Sprintf("%s (%s)", status.Name, status.Detail))
	}
	return fmt.Errorf("missing required dependencies: %s; run `dinehall doctor` for details", strings.Join(parts, ", "))
}
