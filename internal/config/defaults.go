package config

// DateLayout is the menu date format stored on every food record.
const DateLayout = "2006-01-02"

const (
	defaultConfigPath    = "~/.config/dinehall/config.toml"
	defaultDataDir       = "~/.local/share/dinehall"
	defaultLogDir        = "~/.local/share/dinehall/logs"
	defaultScreenshotDir = "~/.local/share/dinehall/screenshots"
	defaultTimezone      = "America/New_York"
	defaultChromeBinary  = "google-chrome"
	defaultUserAgent     = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	defaultLogFormat     = "console"
	defaultLogLevel      = "info"

	defaultLogRetentionDays     = 30
	defaultWindowWidth          = 1920
	defaultWindowHeight         = 1080
	defaultLaunchAttempts       = 3
	defaultLaunchBackoffSeconds = 3
	defaultWaitTimeoutSeconds   = 10
	defaultProbeTimeoutSeconds  = 3
	defaultHallAttempts         = 3
	defaultTransientMinMS       = 2000
	defaultTransientMaxMS       = 4000
	defaultItemDelayMinMS       = 1500
	defaultItemDelayMaxMS       = 3000
	defaultItemAttempts         = 2
	defaultItemRetryBackoffMS   = 1000
	defaultNotifyTimeout        = 10
)

// DefaultSelectors returns the selector set for the stock menu site layout.
func DefaultSelectors() Selectors {
	return Selectors{
		HallToggle:       "#dining-hall-select",
		HallOptions:      "#dining-hall-menu .dining-hall-option",
		MealTabs:         ".meal-tabs .meal-tab",
		MenuContainer:    "#menu-items",
		StationRow:       "tr.station-header",
		ItemRow:          "tr.menu-item",
		ItemName:         ".item-name",
		ItemDescription:  ".item-description",
		ItemPortion:      ".item-portion",
		ItemIcons:        "img.dietary-icon",
		ItemTriggerXPath: "//*[@id='menu-items']//*[contains(concat(' ', normalize-space(@class), ' '), ' item-name ')][normalize-space(.)=%s]",
		DetailPanel:      ".nutrition-panel",
		NutrientRow:      ".nutrient-row",
		NutrientLabel:    ".nutrient-label",
		NutrientValue:    ".nutrient-value",
		Ingredients:      ".ingredients",
		DetailClose:      ".nutrition-panel .close-button",
	}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:       defaultDataDir,
			LogDir:        defaultLogDir,
			ScreenshotDir: defaultScreenshotDir,
		},
		Site: Site{
			Timezone:  defaultTimezone,
			Selectors: DefaultSelectors(),
		},
		Browser: Browser{
			Headless:             true,
			UserAgent:            defaultUserAgent,
			WindowWidth:          defaultWindowWidth,
			WindowHeight:         defaultWindowHeight,
			LaunchAttempts:       defaultLaunchAttempts,
			LaunchBackoffSeconds: defaultLaunchBackoffSeconds,
			WaitTimeoutSeconds:   defaultWaitTimeoutSeconds,
			ProbeTimeoutSeconds:  defaultProbeTimeoutSeconds,
		},
		Scrape: Scrape{
			HallAttempts:          defaultHallAttempts,
			TransientBackoffMinMS: defaultTransientMinMS,
			TransientBackoffMaxMS: defaultTransientMaxMS,
			ItemDelayMinMS:        defaultItemDelayMinMS,
			ItemDelayMaxMS:        defaultItemDelayMaxMS,
			ItemAttempts:          defaultItemAttempts,
			ItemRetryBackoffMS:    defaultItemRetryBackoffMS,
			ScreenshotOnFailure:   true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			OnFailure:      true,
		},
	}
}
