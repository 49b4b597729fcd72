package menu

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"dinehall/internal/browser"
	"dinehall/internal/config"
	"dinehall/internal/logging"
	"dinehall/internal/retry"
	"dinehall/internal/services"
	"dinehall/internal/textutil"
)

// Extractor reads one meal view at a time from a live session.
type Extractor struct {
	sel        config.Selectors
	itemPolicy retry.Policy
	delayMin   time.Duration
	delayMax   time.Duration
	sleep      func(context.Context, time.Duration)
	logger     *slog.Logger
}

// Option customizes an Extractor.
type Option func(*Extractor)

// WithSleep replaces the pause used between items and item retries.
func WithSleep(fn func(context.Context, time.Duration)) Option {
	return func(e *Extractor) { e.sleep = fn }
}

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) { e.logger = logger }
}

// NewExtractor builds an Extractor from site selectors and scrape pacing.
func NewExtractor(cfg *config.Config, opts ...Option) *Extractor {
	e := &Extractor{
		sel:      cfg.Site.Selectors,
		delayMin: time.Duration(cfg.Scrape.ItemDelayMinMS) * time.Millisecond,
		delayMax: time.Duration(cfg.Scrape.ItemDelayMaxMS) * time.Millisecond,
		sleep:    retry.SleepContext,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = logging.NewComponentLogger(e.logger, "menu")
	e.itemPolicy = retry.Policy{
		MaxAttempts: cfg.Scrape.ItemAttempts,
		Backoff:     retry.Constant(time.Duration(cfg.Scrape.ItemRetryBackoffMS) * time.Millisecond),
		Classify: func(err error) retry.Action {
			if browser.ClassifyError(err) == browser.Crash {
				return retry.GiveUp
			}
			return retry.RetryInPlace
		},
		Sleep: e.sleep,
	}
	return e
}

// SelectMealTab clicks the tab whose label matches meal (trimmed, case
// folded) and waits for the menu table. It reports false when the tab is
// missing or the menu does not render in time.
func (e *Extractor) SelectMealTab(ctx context.Context, session browser.Session, meal string) bool {
	logger := logging.WithContext(ctx, e.logger)
	tabs := browser.CSS(e.sel.MealTabs)
	if err := session.WaitVisible(ctx, tabs); err != nil {
		logger.Warn("meal tabs not visible",
			logging.Error(err),
			logging.ErrorKind(err),
			logging.Event("meal_tabs_missing"),
		)
		return false
	}
	labels, err := session.Texts(ctx, tabs)
	if err != nil {
		logger.Warn("meal tabs unreadable", logging.Error(err), logging.Event("meal_tabs_missing"))
		return false
	}
	idx := textutil.IndexFold(labels, meal)
	if idx < 0 {
		closest, score := textutil.Closest(meal, labels)
		logger.Warn("meal tab not found",
			logging.Strings("tabs", labels),
			logging.String("closest", closest),
			logging.Any("closest_score", score),
			logging.Event("meal_tab_not_found"),
		)
		return false
	}
	if err := session.ClickNth(ctx, tabs, idx); err != nil {
		logger.Warn("meal tab click failed", logging.Error(err), logging.ErrorKind(err), logging.Event("meal_tab_click_failed"))
		return false
	}
	if err := session.WaitVisible(ctx, browser.CSS(e.sel.MenuContainer)); err != nil {
		logger.Warn("menu did not render", logging.Error(err), logging.ErrorKind(err), logging.Event("menu_not_rendered"))
		return false
	}
	return true
}

// ExtractMenu parses the menu currently shown and opens every item's
// nutrition panel in turn. Items whose panel cannot be read are kept with an
// error marker and their names returned in failed. A browser crash ends the
// meal with an error wrapping services.ErrCrash.
func (e *Extractor) ExtractMenu(ctx context.Context, session browser.Session, hall, meal string) (stations []Station, failed []string, err error) {
	ctx = services.WithMeal(services.WithHall(ctx, hall), meal)
	logger := logging.WithContext(ctx, e.logger)

	html, err := session.OuterHTML(ctx, browser.CSS(e.sel.MenuContainer))
	if err != nil {
		return nil, nil, services.Wrap(markerFor(err), "menu", "read table", hall+"/"+meal, err)
	}
	stations, err = ParseMenu(html, e.sel)
	if err != nil {
		return nil, nil, services.Wrap(services.ErrTransient, "menu", "parse table", hall+"/"+meal, err)
	}
	if jerr := session.Jitter(ctx); jerr != nil {
		logger.Debug("jitter failed", logging.Error(jerr))
	}

	first := true
	occurrences := make(map[string]int)
	for si := range stations {
		station := &stations[si]
		for ii := range station.Items {
			item := &station.Items[ii]
			if !first {
				e.sleep(ctx, retry.Between(e.delayMin, e.delayMax))
			}
			first = false
			if ctx.Err() != nil {
				return stations, failed, ctx.Err()
			}

			nth := occurrences[item.Name]
			occurrences[item.Name]++
			derr := e.readDetail(ctx, session, item, nth)
			if derr == nil {
				continue
			}
			if browser.ClassifyError(derr) == browser.Crash && !session.Alive(ctx) {
				return stations, failed, services.Wrap(services.ErrCrash, "menu", "extract", item.Name, derr)
			}
			item.Error = derr.Error()
			item.Nutrients = map[string]string{ErrorNutrientKey: item.Error}
			failed = append(failed, item.Name)
			logger.Warn("item detail failed",
				logging.String(logging.FieldStation, station.Name),
				logging.Item(item.Name),
				logging.Error(derr),
				logging.ErrorKind(derr),
				logging.Event("item_failed"),
				logging.Impact("item stored without nutrients"),
			)
		}
	}

	logger.Info("meal extracted",
		logging.Int("stations", len(stations)),
		logging.Int("items", countItems(stations)),
		logging.Int("failed_items", len(failed)),
		logging.Event("meal_extracted"),
	)
	return stations, failed, nil
}

// readDetail opens the nth row named item.Name, so repeated names across
// stations each get their own panel. Once the trigger click lands, the panel
// is closed on every exit path so the next trigger is not obscured.
func (e *Extractor) readDetail(ctx context.Context, session browser.Session, item *FoodItem, nth int) (err error) {
	trigger := browser.XPath(ItemTriggerXPath(e.sel.ItemTriggerXPath, item.Name))
	if _, cerr := e.itemPolicy.Run(ctx, func(ctx context.Context, _ int) error {
		return session.ClickNth(ctx, trigger, nth)
	}); cerr != nil {
		return services.Wrap(markerFor(cerr), "menu", "open detail", "trigger not clickable", cerr)
	}
	defer func() {
		if !session.Alive(ctx) {
			return
		}
		cerr := e.closeDetail(ctx, session)
		switch {
		case cerr == nil:
		case err != nil:
			e.logger.Debug("detail panel close after failed read", logging.Item(item.Name), logging.Error(cerr))
		default:
			logging.WithContext(ctx, e.logger).Warn("detail panel did not close",
				logging.Item(item.Name),
				logging.Error(cerr),
				logging.Event("detail_close_failed"),
			)
		}
	}()

	panel := browser.CSS(e.sel.DetailPanel)
	if err := session.WaitVisible(ctx, panel); err != nil {
		return services.Wrap(markerFor(err), "menu", "open detail", "panel not visible", err)
	}
	html, err := session.OuterHTML(ctx, panel)
	if err != nil {
		return services.Wrap(markerFor(err), "menu", "read detail", "", err)
	}
	nutrients, ingredients, err := ParseDetail(html, e.sel)
	if err != nil {
		return err
	}
	item.Nutrients = nutrients
	item.Ingredients = ingredients
	return nil
}

func (e *Extractor) closeDetail(ctx context.Context, session browser.Session) error {
	if err := session.Click(ctx, browser.CSS(e.sel.DetailClose)); err != nil {
		return err
	}
	return session.WaitNotVisible(ctx, browser.CSS(e.sel.DetailPanel))
}

// markerFor keeps an existing services marker and otherwise tags err by its
// browser classification.
func markerFor(err error) error {
	for _, marker := range []error{services.ErrCrash, services.ErrTimeout, services.ErrNotFound, services.ErrTransient} {
		if errors.Is(err, marker) {
			return marker
		}
	}
	if browser.ClassifyError(err) == browser.Crash {
		return services.ErrCrash
	}
	return services.ErrTransient
}

func countItems(stations []Station) int {
	n := 0
	for _, st := range stations {
		n += len(st.Items)
	}
	return n
}
