package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir       string `toml:"data_dir"`
	LogDir        string `toml:"log_dir"`
	ScreenshotDir string `toml:"screenshot_dir"`
}

// Selectors holds the CSS and XPath queries used to drive the menu site.
// ItemTriggerXPath must contain exactly one %s verb which receives the
// quote-escaped item name.
type Selectors struct {
	HallToggle       string `toml:"hall_toggle"`
	HallOptions      string `toml:"hall_options"`
	MealTabs         string `toml:"meal_tabs"`
	MenuContainer    string `toml:"menu_container"`
	StationRow       string `toml:"station_row"`
	ItemRow          string `toml:"item_row"`
	ItemName         string `toml:"item_name"`
	ItemDescription  string `toml:"item_description"`
	ItemPortion      string `toml:"item_portion"`
	ItemIcons        string `toml:"item_icons"`
	ItemTriggerXPath string `toml:"item_trigger_xpath"`
	DetailPanel      string `toml:"detail_panel"`
	NutrientRow      string `toml:"nutrient_row"`
	NutrientLabel    string `toml:"nutrient_label"`
	NutrientValue    string `toml:"nutrient_value"`
	Ingredients      string `toml:"ingredients"`
	DetailClose      string `toml:"detail_close"`
}

// Site describes the menu source website.
type Site struct {
	BaseURL   string    `toml:"base_url"`
	Timezone  string    `toml:"timezone"`
	Selectors Selectors `toml:"selectors"`
}

// Browser contains browser automation settings.
type Browser struct {
	Headless             bool   `toml:"headless"`
	ChromePath           string `toml:"chrome_path"`
	UserAgent            string `toml:"user_agent"`
	WindowWidth          int    `toml:"window_width"`
	WindowHeight         int    `toml:"window_height"`
	LaunchAttempts       int    `toml:"launch_attempts"`
	LaunchBackoffSeconds int    `toml:"launch_backoff_seconds"`
	WaitTimeoutSeconds   int    `toml:"wait_timeout_seconds"`
	ProbeTimeoutSeconds  int    `toml:"probe_timeout_seconds"`
}

// Scrape contains retry budgets and pacing for the orchestrator.
type Scrape struct {
	HallAttempts          int  `toml:"hall_attempts"`
	TransientBackoffMinMS int  `toml:"transient_backoff_min_ms"`
	TransientBackoffMaxMS int  `toml:"transient_backoff_max_ms"`
	ItemDelayMinMS        int  `toml:"item_delay_min_ms"`
	ItemDelayMaxMS        int  `toml:"item_delay_max_ms"`
	ItemAttempts          int  `toml:"item_attempts"`
	ItemRetryBackoffMS    int  `toml:"item_retry_backoff_ms"`
	ScreenshotOnFailure   bool `toml:"screenshot_on_failure"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	OnFailure      bool   `toml:"on_failure"`
	OnSuccess      bool   `toml:"on_success"`
}

// Config is the full dinehall configuration. Each field maps to one TOML
// table of the same name.
type Config struct {
	Paths         Paths         `toml:"paths"`
	Site          Site          `toml:"site"`
	Browser       Browser       `toml:"browser"`
	Scrape        Scrape        `toml:"scrape"`
	Logging       Logging       `toml:"logging"`
	Notifications Notifications `toml:"notifications"`
}

// DefaultConfigPath returns ~/.config/dinehall/config.toml, expanded.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load reads the config at path, or the first of the default location and
// ./dinehall.toml that exists when path is empty. It returns the config,
// the file that was consulted, and whether that file existed. A missing
// file yields defaults, which still have to validate.
func Load(path string) (*Config, string, bool, error) {
	resolved, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	cfg := Default()
	if exists {
		if err := decodeFile(resolved, &cfg); err != nil {
			return nil, "", false, err
		}
	}
	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolved, exists, nil
}

func decodeFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	if err := toml.NewDecoder(f).Decode(cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		exists, err := isFile(expanded)
		return expanded, exists, err
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}
	local, err := filepath.Abs("dinehall.toml")
	if err != nil {
		return "", false, err
	}
	for _, candidate := range []string{defaultPath, local} {
		if ok, _ := isFile(candidate); ok {
			return candidate, true, nil
		}
	}
	return defaultPath, false, nil
}

func isFile(path string) (bool, error) {
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("stat config: %w", err)
	case info.IsDir():
		return false, fmt.Errorf("config path %s is a directory", path)
	}
	return true, nil
}

// EnsureDirectories creates the data, log, and screenshot directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir, c.Paths.ScreenshotDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the location of the SQLite food store.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "dinehall.db")
}

// LockPath returns the location of the single-run lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "dinehall.lock")
}

// ChromeBinary returns the configured Chrome executable, or the conventional
// binary name when none is set.
func (c *Config) ChromeBinary() string {
	if path := strings.TrimSpace(c.Browser.ChromePath); path != "" {
		return path
	}
	return defaultChromeBinary
}

// Location returns the site's time zone, falling back to the local zone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Site.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Today returns the menu date for now in the site's time zone, formatted as
// YYYY-MM-DD.
func (c *Config) Today(now time.Time) string {
	return now.In(c.Location()).Format(DateLayout)
}

// WaitTimeout is the bounded wait used for page, tab, and panel transitions.
func (c *Config) WaitTimeout() time.Duration {
	return time.Duration(c.Browser.WaitTimeoutSeconds) * time.Second
}

// expandPath resolves a leading "~" or "~/" against the home directory and
// returns a clean absolute path. An empty value stays empty.
func expandPath(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	switch {
	case value == "~":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		value = home
	case strings.HasPrefix(value, "~/"):
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		value = filepath.Join(home, value[2:])
	}
	abs, err := filepath.Abs(value)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", value, err)
	}
	return abs, nil
}

// ExpandPath applies the same "~" and absolute-path rules Load uses.
func ExpandPath(value string) (string, error) {
	return expandPath(value)
}

// CreateSample writes the commented sample config to path, creating parent
// directories as needed.
func CreateSample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
