package scrape

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"dinehall/internal/browser"
	"dinehall/internal/config"
	"dinehall/internal/discovery"
	"dinehall/internal/gaps"
	"dinehall/internal/logging"
	"dinehall/internal/menu"
	"dinehall/internal/retry"
	"dinehall/internal/services"
	"dinehall/internal/store"
)

var (
	// ErrRunLocked means another scrape already holds the data directory.
	ErrRunLocked = errors.New("another scrape is running")
	// ErrHallsFailed means at least one hall exhausted its attempt budget.
	ErrHallsFailed = errors.New("dining halls failed")
)

// Persister is the slice of the food store a run needs.
type Persister interface {
	gaps.CombinationSource
	UpsertFoods(ctx context.Context, records []store.FoodRecord) (int, error)
	ReplaceFoods(ctx context.Context, records []store.FoodRecord) (int, error)
}

// Options select the run mode.
type Options struct {
	DryRun        bool
	ForceRescrape bool
	Headless      bool
	// Date overrides today's date in the site time zone (YYYY-MM-DD).
	Date string
}

// Orchestrator sequences discovery, gap analysis, extraction and the final
// batch write.
type Orchestrator struct {
	cfg       *config.Config
	store     Persister
	browser   *browser.Manager
	discovery *discovery.Engine
	extractor *menu.Extractor
	sleep     func(context.Context, time.Duration)
	now       func() time.Time
	newRunID  func() string
	logger    *slog.Logger
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithManager supplies the browser session manager.
func WithManager(m *browser.Manager) Option {
	return func(o *Orchestrator) { o.browser = m }
}

// WithSleep replaces every pacing and backoff pause.
func WithSleep(fn func(context.Context, time.Duration)) Option {
	return func(o *Orchestrator) { o.sleep = fn }
}

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithRunID replaces the run identifier generator.
func WithRunID(fn func() string) Option {
	return func(o *Orchestrator) { o.newRunID = fn }
}

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// New builds an Orchestrator writing to st.
func New(cfg *config.Config, st Persister, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:      cfg,
		store:    st,
		sleep:    retry.SleepContext,
		now:      time.Now,
		newRunID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = logging.NewNop()
	}
	if o.browser == nil {
		o.browser = browser.NewManager(cfg, browser.WithLogger(o.logger))
	}
	o.discovery = discovery.NewEngine(cfg, o.logger)
	o.extractor = menu.NewExtractor(cfg, menu.WithSleep(o.sleep), menu.WithLogger(o.logger))
	o.logger = logging.NewComponentLogger(o.logger, "scrape")
	return o
}

// Run performs one incremental scrape. The summary is always returned; the
// error is non-nil when the session could not be created, discovery was cut
// short by a browser crash, a hall failed, or the batch write failed.
// Nothing missing is a success.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (*Summary, error) {
	start := o.now()
	date := opts.Date
	if date == "" {
		date = o.cfg.Today(start)
	}
	summary := &Summary{
		RunID:         o.newRunID(),
		Date:          date,
		DryRun:        opts.DryRun,
		ForceRescrape: opts.ForceRescrape,
	}
	ctx = services.WithRunID(ctx, summary.RunID)
	logger := logging.WithContext(ctx, o.logger)
	defer func() {
		summary.Duration = o.now().Sub(start)
		summary.log(logger)
	}()

	unlock, err := o.acquireLock()
	if err != nil {
		return summary, err
	}
	defer unlock()

	logger.Info("scrape started",
		logging.String("date", date),
		logging.Bool("dry_run", opts.DryRun),
		logging.Bool("force_rescrape", opts.ForceRescrape),
		logging.Bool("headless", opts.Headless),
		logging.Event("run_started"),
	)

	session, err := o.browser.Create(ctx, opts.Headless)
	if err != nil {
		logging.ErrorWithContext(logger, "browser session unavailable", "run_failed",
			logging.Error(err),
			logging.ErrorKind(err),
			logging.Hint("run dinehall doctor to verify the Chrome install"),
		)
		return summary, err
	}
	// session is reassigned on restart; the handle alive at exit is closed once.
	defer func() { o.browser.Close(session) }()

	catalog, session, err := o.discovery.DiscoverAll(ctx, session, o.browser)
	if err != nil {
		logging.ErrorWithContext(logger, "discovery did not complete", "run_failed",
			logging.Error(err),
			logging.ErrorKind(err),
			logging.Hint("the browser kept crashing; run dinehall doctor and rerun"),
			logging.Impact("nothing scraped"),
		)
		return summary, err
	}
	summary.HallsChecked = len(catalog)
	existing, err := gaps.ExistingCombinations(ctx, o.store, date)
	if err != nil {
		return summary, services.Wrap(services.ErrPersistence, "scrape", "gap analysis", date, err)
	}
	summary.HallsWithExisting = gaps.HallsWithExisting(catalog, existing)
	if opts.ForceRescrape {
		summary.Missing = gaps.ForceAll(catalog)
	} else {
		summary.Missing = gaps.FindMissing(catalog, existing)
	}
	logger.Info("gap analysis complete",
		logging.Int("halls_checked", summary.HallsChecked),
		logging.Int("halls_with_existing", summary.HallsWithExisting),
		logging.Int("missing", len(summary.Missing)),
		logging.Event("gaps_computed"),
	)
	if len(summary.Missing) == 0 {
		if summary.HallsChecked == 0 {
			logging.WarnWithContext(logger, "site published no dining halls", "no_halls",
				logging.Hint("check site.base_url and selectors; the site may be down"),
				logging.Impact("nothing scraped"),
			)
		}
		logger.Info("nothing missing", logging.Event("run_noop"))
		return summary, nil
	}
	if opts.DryRun {
		for _, combo := range summary.Missing {
			logger.Info("missing combination",
				logging.Hall(combo.Hall),
				logging.Meal(combo.Meal),
				logging.Event("dry_run_missing"),
			)
		}
		return summary, nil
	}

	for _, work := range gaps.GroupByHall(summary.Missing) {
		result := o.processHall(ctx, &session, work, date, summary)
		summary.Results = append(summary.Results, result)
		summary.ItemsScraped += result.Items()
		for _, item := range result.FailedItems {
			summary.FailedItems = append(summary.FailedItems, result.Hall+": "+item)
		}
	}

	var runErr error
	if err := o.persist(ctx, summary, opts.ForceRescrape); err != nil {
		logging.ErrorWithContext(logger, "batch write failed", "persist_failed",
			logging.Error(err),
			logging.ErrorKind(err),
			logging.Hint("extracted data for this run is lost; rerun after fixing the store"),
		)
		if path := o.captureScreenshot(ctx, session, "run-failed"); path != "" {
			summary.Screenshots = append(summary.Screenshots, path)
		}
		runErr = err
	}
	if failed := summary.HallsFailed(); failed > 0 {
		runErr = errors.Join(runErr, fmt.Errorf("%w: %d of %d", ErrHallsFailed, failed, len(summary.Results)))
	}
	return summary, runErr
}

func (o *Orchestrator) acquireLock() (func(), error) {
	if err := o.cfg.EnsureDirectories(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "scrape", "lock", "", err)
	}
	lock := flock.New(o.cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (lock %s)", ErrRunLocked, o.cfg.LockPath())
	}
	return func() {
		if err := lock.Unlock(); err != nil {
			o.logger.Warn("failed to release run lock", logging.Error(err))
		}
	}, nil
}

// persist flattens every done hall and writes the batch. Force re-scrapes
// replace the stored rows of each written combination.
func (o *Orchestrator) persist(ctx context.Context, summary *Summary, replace bool) error {
	scrapedAt := o.now().UTC()
	var records []store.FoodRecord
	for _, result := range summary.Results {
		if result.State != StateDone {
			continue
		}
		for _, meal := range result.Meals {
			records = append(records, menu.Flatten(meal, summary.RunID, scrapedAt)...)
		}
	}
	if len(records) == 0 {
		return nil
	}
	write := o.store.UpsertFoods
	if replace {
		write = o.store.ReplaceFoods
	}
	n, err := write(ctx, records)
	if err != nil {
		summary.UploadErr = err
		return err
	}
	summary.Uploaded = n
	return nil
}
