package scrape

import (
	"context"
	"log/slog"
	"time"

	"dinehall/internal/browser"
	"dinehall/internal/gaps"
	"dinehall/internal/logging"
	"dinehall/internal/menu"
	"dinehall/internal/retry"
	"dinehall/internal/services"
)

// processHall runs one hall through the state machine. *session may be
// replaced by a restart, or set to nil when a restart fails so the next hall
// starts from a fresh launch.
func (o *Orchestrator) processHall(ctx context.Context, session *browser.Session, work gaps.HallWork, date string, summary *Summary) HallResult {
	ctx = services.WithHall(ctx, work.Hall)
	result := HallResult{Hall: work.Hall, State: StatePending}
	var logger *slog.Logger
	// enter moves the hall to state and stamps it on ctx so discovery and
	// extraction logs carry the stage too.
	enter := func(state State) {
		result.State = state
		ctx = services.WithStage(ctx, string(state))
		logger = logging.WithContext(ctx, o.logger)
	}

	enter(StateSelecting)
	logger.Info("processing hall",
		logging.Strings("meals", work.Meals),
		logging.Event("hall_started"),
	)
	if !o.browser.IsAlive(ctx, *session) {
		if err := o.restart(ctx, session); err != nil {
			return o.failHall(ctx, result, err, *session, summary)
		}
	}

	policy := o.hallPolicy(session, logger)
	attempts, err := policy.Run(ctx, func(ctx context.Context, _ int) error {
		return o.discovery.SelectHall(ctx, *session, work.Hall)
	})
	result.Attempts = attempts
	if err != nil {
		return o.failHall(ctx, result, err, *session, summary)
	}

	enter(StateExtracting)
	logger.Info("hall selected",
		logging.Attempt(attempts),
		logging.Event("hall_selected"),
	)
	for i, meal := range work.Meals {
		extraction, failed, err := o.extractMeal(ctx, *session, work.Hall, meal, date)
		if err == nil {
			result.Meals = append(result.Meals, extraction)
			result.FailedItems = append(result.FailedItems, failed...)
			continue
		}
		result.FailedMeals = append(result.FailedMeals, meal)
		logging.WarnWithContext(logger, "meal skipped", "meal_skipped",
			logging.Meal(meal),
			logging.Error(err),
			logging.ErrorKind(err),
			logging.Impact("meal missing until the next run"),
		)
		if i == len(work.Meals)-1 || o.browser.IsAlive(ctx, *session) {
			continue
		}
		if rerr := o.reopenHall(ctx, session, work.Hall); rerr != nil {
			logging.WarnWithContext(logger, "could not resume hall after crash", "hall_resume_failed",
				logging.Error(rerr),
				logging.ErrorKind(rerr),
				logging.Impact("remaining meals skipped"),
			)
			result.FailedMeals = append(result.FailedMeals, work.Meals[i+1:]...)
			break
		}
	}

	enter(StateDone)
	if len(result.FailedItems) > 0 {
		logging.WarnWithContext(logger, "hall finished with failed items", "hall_failed_items",
			logging.Strings("items", result.FailedItems),
			logging.Impact("items stored without nutrients"),
		)
	}
	logger.Info("hall done",
		logging.Int("meals", len(result.Meals)),
		logging.Int("items", result.Items()),
		logging.Strings("failed_meals", result.FailedMeals),
		logging.Event("hall_done"),
	)
	return result
}

// hallPolicy retries hall selection: crashes restart the session first,
// transient failures wait out the configured backoff window.
func (o *Orchestrator) hallPolicy(session *browser.Session, logger *slog.Logger) retry.Policy {
	lo := time.Duration(o.cfg.Scrape.TransientBackoffMinMS) * time.Millisecond
	hi := time.Duration(o.cfg.Scrape.TransientBackoffMaxMS) * time.Millisecond
	return retry.Policy{
		MaxAttempts: o.cfg.Scrape.HallAttempts,
		Classify: func(err error) retry.Action {
			if browser.ClassifyError(err) == browser.Crash {
				return retry.RecoverThenRetry
			}
			return retry.RetryInPlace
		},
		Backoff: retry.Uniform(lo, hi),
		Recover: func(ctx context.Context, _ int, _ error) error {
			return o.restart(ctx, session)
		},
		OnFailure: func(attempt int, err error, action retry.Action) {
			logger.Warn("hall selection failed", logging.Args(
				logging.Attempt(attempt),
				logging.Int("max_attempts", o.cfg.Scrape.HallAttempts),
				logging.String("class", browser.ClassifyError(err).String()),
				logging.String("action", action.String()),
				logging.Error(err),
				logging.Event("hall_select_failed"),
				logging.Hint("check the hall selector settings"),
			)...)
		},
		Sleep: o.sleep,
	}
}

func (o *Orchestrator) restart(ctx context.Context, session *browser.Session) error {
	next, err := o.browser.Restart(ctx, *session)
	if err != nil {
		*session = nil
		return err
	}
	*session = next
	return nil
}

// reopenHall replaces a dead session and navigates back to hall.
func (o *Orchestrator) reopenHall(ctx context.Context, session *browser.Session, hall string) error {
	if err := o.restart(ctx, session); err != nil {
		return err
	}
	return o.discovery.SelectHall(ctx, *session, hall)
}

func (o *Orchestrator) extractMeal(ctx context.Context, session browser.Session, hall, meal, date string) (menu.MealExtraction, []string, error) {
	ctx = services.WithMeal(ctx, meal)
	if !o.extractor.SelectMealTab(ctx, session, meal) {
		return menu.MealExtraction{}, nil, services.Wrap(services.ErrNotFound, "scrape", "select meal", meal, nil)
	}
	stations, failed, err := o.extractor.ExtractMenu(ctx, session, hall, meal)
	if err != nil {
		return menu.MealExtraction{}, nil, err
	}
	return menu.MealExtraction{Hall: hall, Meal: meal, Date: date, Stations: stations}, failed, nil
}

func (o *Orchestrator) failHall(ctx context.Context, result HallResult, err error, session browser.Session, summary *Summary) HallResult {
	result.State = StateFailed
	result.Err = err
	ctx = services.WithStage(ctx, string(result.State))
	logging.ErrorWithContext(logging.WithContext(ctx, o.logger), "hall failed", "hall_failed",
		logging.Attempt(result.Attempts),
		logging.Error(err),
		logging.ErrorKind(err),
		logging.Hint("see the failure screenshot and rerun to fill the gap"),
	)
	if path := o.captureScreenshot(ctx, session, result.Hall); path != "" {
		summary.Screenshots = append(summary.Screenshots, path)
	}
	return result
}
