package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeSite()
	c.normalizeBrowser()
	c.normalizeScrape()
	c.normalizeLogging()
	c.normalizeNotifications()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ScreenshotDir) == "" {
		c.Paths.ScreenshotDir = defaultScreenshotDir
	}
	if c.Paths.ScreenshotDir, err = expandPath(c.Paths.ScreenshotDir); err != nil {
		return fmt.Errorf("paths.screenshot_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeSite() {
	if value, ok := os.LookupEnv("DINEHALL_BASE_URL"); ok && strings.TrimSpace(value) != "" {
		c.Site.BaseURL = value
	}
	c.Site.BaseURL = strings.TrimSpace(c.Site.BaseURL)
	c.Site.Timezone = strings.TrimSpace(c.Site.Timezone)
	if c.Site.Timezone == "" {
		c.Site.Timezone = defaultTimezone
	}

	// Blank selectors fall back individually so a config can override a
	// single query without restating the whole table.
	defaults := DefaultSelectors()
	sel := &c.Site.Selectors
	fill := func(value *string, fallback string) {
		*value = strings.TrimSpace(*value)
		if *value == "" {
			*value = fallback
		}
	}
	fill(&sel.HallToggle, defaults.HallToggle)
	fill(&sel.HallOptions, defaults.HallOptions)
	fill(&sel.MealTabs, defaults.MealTabs)
	fill(&sel.MenuContainer, defaults.MenuContainer)
	fill(&sel.StationRow, defaults.StationRow)
	fill(&sel.ItemRow, defaults.ItemRow)
	fill(&sel.ItemName, defaults.ItemName)
	fill(&sel.ItemDescription, defaults.ItemDescription)
	fill(&sel.ItemPortion, defaults.ItemPortion)
	fill(&sel.ItemIcons, defaults.ItemIcons)
	fill(&sel.ItemTriggerXPath, defaults.ItemTriggerXPath)
	fill(&sel.DetailPanel, defaults.DetailPanel)
	fill(&sel.NutrientRow, defaults.NutrientRow)
	fill(&sel.NutrientLabel, defaults.NutrientLabel)
	fill(&sel.NutrientValue, defaults.NutrientValue)
	fill(&sel.Ingredients, defaults.Ingredients)
	fill(&sel.DetailClose, defaults.DetailClose)
}

func (c *Config) normalizeBrowser() {
	c.Browser.ChromePath = strings.TrimSpace(c.Browser.ChromePath)
	c.Browser.UserAgent = strings.TrimSpace(c.Browser.UserAgent)
	if c.Browser.UserAgent == "" {
		c.Browser.UserAgent = defaultUserAgent
	}
	if c.Browser.WindowWidth <= 0 {
		c.Browser.WindowWidth = defaultWindowWidth
	}
	if c.Browser.WindowHeight <= 0 {
		c.Browser.WindowHeight = defaultWindowHeight
	}
	if c.Browser.ProbeTimeoutSeconds <= 0 {
		c.Browser.ProbeTimeoutSeconds = defaultProbeTimeoutSeconds
	}
}

func (c *Config) normalizeScrape() {
	if c.Scrape.TransientBackoffMinMS < 0 {
		c.Scrape.TransientBackoffMinMS = 0
	}
	if c.Scrape.ItemDelayMinMS < 0 {
		c.Scrape.ItemDelayMinMS = 0
	}
	if c.Scrape.ItemRetryBackoffMS < 0 {
		c.Scrape.ItemRetryBackoffMS = 0
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

func (c *Config) normalizeNotifications() {
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("DINEHALL_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = value
		}
	}
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
}
