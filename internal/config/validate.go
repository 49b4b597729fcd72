package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateSite(); err != nil {
		return err
	}
	if err := c.validateBrowser(); err != nil {
		return err
	}
	if err := c.validateScrape(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateSite() error {
	if c.Site.BaseURL == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("site.base_url is required. Set DINEHALL_BASE_URL env var or edit %s (create with 'dinehall config init')", defaultPath)
	}
	parsed, err := url.Parse(c.Site.BaseURL)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return fmt.Errorf("site.base_url %q must be an absolute http(s) URL", c.Site.BaseURL)
	}
	if _, err := time.LoadLocation(c.Site.Timezone); err != nil {
		return fmt.Errorf("site.timezone %q: %w", c.Site.Timezone, err)
	}
	if n := strings.Count(c.Site.Selectors.ItemTriggerXPath, "%s"); n != 1 {
		return fmt.Errorf("site.selectors.item_trigger_xpath must contain exactly one %%s placeholder, found %d", n)
	}
	return nil
}

func (c *Config) validateBrowser() error {
	if err := ensurePositiveMap(map[string]int{
		"browser.launch_attempts":      c.Browser.LaunchAttempts,
		"browser.wait_timeout_seconds": c.Browser.WaitTimeoutSeconds,
	}); err != nil {
		return err
	}
	if c.Browser.LaunchBackoffSeconds < 0 {
		return errors.New("browser.launch_backoff_seconds must be >= 0")
	}
	return nil
}

func (c *Config) validateScrape() error {
	if err := ensurePositiveMap(map[string]int{
		"scrape.hall_attempts": c.Scrape.HallAttempts,
		"scrape.item_attempts": c.Scrape.ItemAttempts,
	}); err != nil {
		return err
	}
	if c.Scrape.TransientBackoffMaxMS < c.Scrape.TransientBackoffMinMS {
		return errors.New("scrape.transient_backoff_max_ms must be >= scrape.transient_backoff_min_ms")
	}
	if c.Scrape.ItemDelayMaxMS < c.Scrape.ItemDelayMinMS {
		return errors.New("scrape.item_delay_max_ms must be >= scrape.item_delay_min_ms")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
