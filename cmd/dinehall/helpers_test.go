package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"dinehall/internal/browser"
	"dinehall/internal/config"
	"dinehall/internal/testsupport"
)

const testDate = "2026-10-14"

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	site       *testsupport.FakeSite
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	opts = append([]testsupport.ConfigOption{testsupport.WithStubbedBinaries()}, opts...)
	cfg := testsupport.NewConfig(t, opts...)
	home := filepath.Join(testsupport.BaseDir(cfg), "home")
	if err := os.MkdirAll(home, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", home)
	t.Setenv("DINEHALL_BASE_URL", "")
	t.Setenv("DINEHALL_NTFY_TOPIC", "")

	env := &cliTestEnv{
		cfg:        cfg,
		configPath: filepath.Join(home, ".config", "dinehall", "config.toml"),
		site:       fixtureSite(),
	}
	env.writeConfig(t)
	return env
}

// writeConfig persists env.cfg so the CLI loads exactly what the test built.
func (e *cliTestEnv) writeConfig(t *testing.T) {
	t.Helper()
	data, err := toml.Marshal(e.cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(e.configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	if err := os.WriteFile(e.configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func (e *cliTestEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	return runCLI(t, e.site, e.configPath, args...)
}

func runCLI(t *testing.T, launcher browser.Launcher, configPath string, args ...string) (string, string, error) {
	t.Helper()
	cmd := buildRootCommand(launcher)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func fixtureSite() *testsupport.FakeSite {
	return testsupport.NewFakeSite(
		testsupport.FakeHall{Name: "Hall A", Meals: []testsupport.FakeMeal{
			{Name: "Breakfast", Stations: []testsupport.FakeStation{{Name: "Griddle", Items: []testsupport.FakeItem{
				{Name: "Pancakes", Nutrients: [][2]string{{"Calories", "320"}}},
			}}}},
			{Name: "Lunch", Stations: []testsupport.FakeStation{{Name: "Soups", Items: []testsupport.FakeItem{
				{Name: "O'Brien's Stew", Nutrients: [][2]string{{"Calories", "410"}, {"Sodium (mg)", "880"}}},
			}}}},
		}},
		testsupport.FakeHall{Name: "Hall B", Meals: []testsupport.FakeMeal{
			{Name: "Dinner", Stations: []testsupport.FakeStation{{Name: "Carvery", Items: []testsupport.FakeItem{
				{Name: "Roast Chicken", Nutrients: [][2]string{{"Protein (g)", "31"}}},
			}}}},
		}},
	)
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
