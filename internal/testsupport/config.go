package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"dinehall/internal/config"
)

// TestBaseURL is the site URL used by generated test configs.
const TestBaseURL = "https://dining.test/menus"

// ConfigOption customizes a config built by NewConfig.
type ConfigOption func(t testing.TB, base string, cfg *config.Config)

// NewConfig returns a config rooted in a fresh temp directory, in UTC, with
// every pacing delay and backoff zeroed so tests never sleep.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths = config.Paths{
		DataDir:       filepath.Join(base, "data"),
		LogDir:        filepath.Join(base, "logs"),
		ScreenshotDir: filepath.Join(base, "screenshots"),
	}
	cfg.Site.BaseURL = TestBaseURL
	cfg.Site.Timezone = "UTC"
	cfg.Browser.LaunchBackoffSeconds = 0
	cfg.Scrape.TransientBackoffMinMS, cfg.Scrape.TransientBackoffMaxMS = 0, 0
	cfg.Scrape.ItemDelayMinMS, cfg.Scrape.ItemDelayMaxMS = 0, 0
	cfg.Scrape.ItemRetryBackoffMS = 0

	for _, opt := range opts {
		opt(t, base, &cfg)
	}
	return &cfg
}

// WithNtfyTopic points notifications at the given topic URL.
func WithNtfyTopic(topic string) ConfigOption {
	return func(_ testing.TB, _ string, cfg *config.Config) {
		cfg.Notifications.NtfyTopic = topic
	}
}

// WithStubbedBinaries writes no-op executables named names (default: the
// configured Chrome binary) into <base>/bin and prepends that directory to
// PATH for the rest of the test.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(t testing.TB, base string, cfg *config.Config) {
		if len(names) == 0 {
			names = []string{cfg.ChromeBinary()}
		}
		binDir := filepath.Join(base, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			t.Fatalf("mkdir bin dir: %v", err)
		}
		for _, name := range names {
			if err := os.WriteFile(filepath.Join(binDir, name), []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
				t.Fatalf("write stub %s: %v", name, err)
			}
		}
		t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}

// BaseDir returns the temp directory backing cfg.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
