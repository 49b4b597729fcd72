// Package discovery enumerates the dining halls and meals the site currently
// publishes, independent of what has been stored.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"dinehall/internal/browser"
	"dinehall/internal/config"
	"dinehall/internal/logging"
	"dinehall/internal/services"
	"dinehall/internal/textutil"
)

// HallMenu is one hall with its meal tab labels in page order.
type HallMenu struct {
	Hall  string
	Meals []string
}

// Catalog is the discovered hall list in page order.
type Catalog []HallMenu

// Halls returns the hall names in order.
func (c Catalog) Halls() []string {
	out := make([]string, 0, len(c))
	for _, hm := range c {
		out = append(out, hm.Hall)
	}
	return out
}

// Combinations returns the number of (hall, meal) pairs.
func (c Catalog) Combinations() int {
	n := 0
	for _, hm := range c {
		n += len(hm.Meals)
	}
	return n
}

// ErrInterrupted means the browser died during discovery and could not be
// brought back, so the catalog is incomplete.
var ErrInterrupted = errors.New("discovery interrupted by browser crash")

// Recovery checks and replaces the session discovery drives.
// *browser.Manager satisfies it.
type Recovery interface {
	IsAlive(ctx context.Context, session browser.Session) bool
	Restart(ctx context.Context, session browser.Session) (browser.Session, error)
}

// Engine drives the landing page's hall selector and meal tabs.
type Engine struct {
	baseURL string
	sel     config.Selectors
	logger  *slog.Logger
}

// NewEngine builds an Engine for the configured site.
func NewEngine(cfg *config.Config, logger *slog.Logger) *Engine {
	return &Engine{
		baseURL: cfg.Site.BaseURL,
		sel:     cfg.Site.Selectors,
		logger:  logging.NewComponentLogger(logger, "discovery"),
	}
}

// ListDiningHalls loads the landing page, opens the hall selector and reads
// the distinct hall names. Failures are logged and yield an empty list.
func (e *Engine) ListDiningHalls(ctx context.Context, session browser.Session) []string {
	halls, err := e.readHalls(ctx, session)
	if err != nil {
		e.warnHalls(ctx, err)
		return nil
	}
	return halls
}

func (e *Engine) warnHalls(ctx context.Context, err error) {
	logging.WarnWithContext(logging.WithContext(ctx, e.logger), "dining hall list unavailable", "halls_unavailable",
		logging.Error(err),
		logging.ErrorKind(err),
		logging.Hint("check site.base_url and the hall selector settings"),
	)
}

func (e *Engine) readHalls(ctx context.Context, session browser.Session) ([]string, error) {
	if err := e.openSelector(ctx, session); err != nil {
		return nil, err
	}
	labels, err := session.Texts(ctx, browser.CSS(e.sel.HallOptions))
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "discovery", "read halls", "", err)
	}
	return textutil.UniqueFold(labels), nil
}

func (e *Engine) openSelector(ctx context.Context, session browser.Session) error {
	if err := session.Navigate(ctx, e.baseURL); err != nil {
		return services.Wrap(nil, "discovery", "navigate", e.baseURL, err)
	}
	if err := session.Jitter(ctx); err != nil {
		e.logger.Debug("jitter failed", logging.Error(err))
	}
	if err := session.Click(ctx, browser.CSS(e.sel.HallToggle)); err != nil {
		return services.Wrap(nil, "discovery", "open hall selector", "", err)
	}
	if err := session.WaitVisible(ctx, browser.CSS(e.sel.HallOptions)); err != nil {
		return services.Wrap(nil, "discovery", "open hall selector", "options not visible", err)
	}
	return nil
}

// SelectHall reloads the landing page and picks hall from the selector.
// Matching is trimmed and case folded. The returned error keeps the
// underlying browser error so callers can classify it.
func (e *Engine) SelectHall(ctx context.Context, session browser.Session, hall string) error {
	if err := e.openSelector(ctx, session); err != nil {
		return err
	}
	options := browser.CSS(e.sel.HallOptions)
	labels, err := session.Texts(ctx, options)
	if err != nil {
		return services.Wrap(nil, "discovery", "select hall", hall, err)
	}
	idx := textutil.IndexFold(labels, hall)
	if idx < 0 {
		closest, _ := textutil.Closest(hall, labels)
		return services.Wrap(services.ErrNotFound, "discovery", "select hall",
			fmt.Sprintf("%q not offered (closest %q)", hall, closest), nil)
	}
	if err := session.ClickNth(ctx, options, idx); err != nil {
		return services.Wrap(nil, "discovery", "select hall", hall, err)
	}
	return nil
}

// ListMealsForHall selects hall and reads its meal tab labels. It returns an
// empty list when the hall cannot be selected or no tabs render within the
// session wait timeout.
func (e *Engine) ListMealsForHall(ctx context.Context, session browser.Session, hall string) []string {
	meals, err := e.readMeals(ctx, session, hall)
	if err != nil {
		e.warnMeals(ctx, hall, err)
		return nil
	}
	return meals
}

func (e *Engine) warnMeals(ctx context.Context, hall string, err error) {
	logger := logging.WithContext(services.WithHall(ctx, hall), e.logger)
	logging.WarnWithContext(logger, "meal tabs unavailable", "meals_unavailable",
		logging.Error(err),
		logging.ErrorKind(err),
		logging.Hint("hall may have no published menu today"),
	)
}

func (e *Engine) readMeals(ctx context.Context, session browser.Session, hall string) ([]string, error) {
	if err := e.SelectHall(ctx, session, hall); err != nil {
		return nil, err
	}
	tabs := browser.CSS(e.sel.MealTabs)
	if err := session.WaitVisible(ctx, tabs); err != nil {
		return nil, services.Wrap(nil, "discovery", "read meals", "tabs not visible", err)
	}
	labels, err := session.Texts(ctx, tabs)
	if err != nil {
		return nil, services.Wrap(nil, "discovery", "read meals", "", err)
	}
	return textutil.UniqueFold(labels), nil
}

// DiscoverAll lists every hall and its meals. Halls whose meals cannot be
// read are skipped with a warning.
//
// With a non-nil rec the session is checked before and after each read. A
// read that leaves the session dead is retried once on a restarted
// session; if the browser is still unusable DiscoverAll stops with an error
// wrapping ErrInterrupted. The returned session is the one left alive (nil
// when a restart failed) and replaces the one passed in.
func (e *Engine) DiscoverAll(ctx context.Context, session browser.Session, rec Recovery) (Catalog, browser.Session, error) {
	var halls []string
	err := e.guard(ctx, rec, &session, "hall list", func(s browser.Session) error {
		var err error
		halls, err = e.readHalls(ctx, s)
		return err
	})
	if errors.Is(err, ErrInterrupted) {
		return nil, session, err
	}
	if err != nil {
		e.warnHalls(ctx, err)
	}

	catalog := make(Catalog, 0, len(halls))
	for _, hall := range halls {
		var meals []string
		err := e.guard(ctx, rec, &session, hall, func(s browser.Session) error {
			var err error
			meals, err = e.readMeals(ctx, s, hall)
			return err
		})
		if errors.Is(err, ErrInterrupted) {
			return catalog, session, err
		}
		if err != nil {
			e.warnMeals(ctx, hall, err)
			meals = nil
		}
		if len(meals) == 0 {
			e.logger.Warn("skipping hall without meals",
				logging.Hall(hall),
				logging.Event("hall_skipped"),
				logging.Impact("hall excluded from this run"),
			)
			continue
		}
		catalog = append(catalog, HallMenu{Hall: hall, Meals: meals})
	}
	e.logger.Info("discovery complete",
		logging.Int("halls", len(catalog)),
		logging.Int("combinations", catalog.Combinations()),
		logging.Event("discovery_complete"),
	)
	return catalog, session, nil
}

// guard runs read against *session under the liveness rules DiscoverAll
// documents. Errors that leave the browser alive are returned unchanged.
func (e *Engine) guard(ctx context.Context, rec Recovery, session *browser.Session, what string, read func(browser.Session) error) error {
	if rec == nil {
		return read(*session)
	}
	if !rec.IsAlive(ctx, *session) {
		if err := e.replace(ctx, rec, session, what, nil); err != nil {
			return err
		}
	}
	err := read(*session)
	if err == nil || rec.IsAlive(ctx, *session) {
		return err
	}
	if rerr := e.replace(ctx, rec, session, what, err); rerr != nil {
		return rerr
	}
	err = read(*session)
	if err != nil && !rec.IsAlive(ctx, *session) {
		return fmt.Errorf("%w: %s: %w", ErrInterrupted, what, err)
	}
	return err
}

func (e *Engine) replace(ctx context.Context, rec Recovery, session *browser.Session, what string, cause error) error {
	attrs := []logging.Attr{
		logging.String("reading", what),
		logging.Hint("restarting the browser and retrying once"),
	}
	if cause != nil {
		attrs = append(attrs, logging.Error(cause), logging.ErrorKind(cause))
	}
	logging.WarnWithContext(logging.WithContext(ctx, e.logger), "browser died during discovery", "discovery_session_lost", attrs...)
	next, err := rec.Restart(ctx, *session)
	*session = next
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInterrupted, what, err)
	}
	return nil
}
