package scrape_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/go-cmp/cmp"

	"dinehall/internal/browser"
	"dinehall/internal/config"
	"dinehall/internal/discovery"
	"dinehall/internal/gaps"
	"dinehall/internal/scrape"
	"dinehall/internal/services"
	"dinehall/internal/store"
	"dinehall/internal/testsupport"
)

const runDate = "2026-10-14"

var fixedNow = time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

func fixtureSite() *testsupport.FakeSite {
	item := func(name string) testsupport.FakeItem {
		return testsupport.FakeItem{Name: name, Nutrients: [][2]string{{"Calories", "100"}}}
	}
	return testsupport.NewFakeSite(
		testsupport.FakeHall{Name: "Hall A", Meals: []testsupport.FakeMeal{
			{Name: "Breakfast", Stations: []testsupport.FakeStation{
				{Name: "Griddle", Items: []testsupport.FakeItem{item("Pancakes"), item("Waffles")}},
			}},
			{Name: "Lunch", Stations: []testsupport.FakeStation{
				{Name: "Soup", Items: []testsupport.FakeItem{item("O'Brien's Stew")}},
				{Name: "Grill", Items: []testsupport.FakeItem{item("Cheeseburger")}},
			}},
		}},
		testsupport.FakeHall{Name: "Hall B", Meals: []testsupport.FakeMeal{
			{Name: "Dinner", Stations: []testsupport.FakeStation{
				{Name: "Entrees", Items: []testsupport.FakeItem{item("Roast Chicken")}},
			}},
		}},
	)
}

type harness struct {
	cfg    *config.Config
	site   *testsupport.FakeSite
	store  *store.Store
	logger *slog.Logger
	sleeps []time.Duration
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Browser.LaunchAttempts = 1
	return &harness{
		cfg:   cfg,
		site:  fixtureSite(),
		store: testsupport.MustOpenStore(t, cfg),
	}
}

func (h *harness) orchestrator(persister scrape.Persister) *scrape.Orchestrator {
	if persister == nil {
		persister = h.store
	}
	mgr := browser.NewManager(h.cfg,
		browser.WithLauncher(h.site),
		browser.WithSleep(func(context.Context, time.Duration) {}),
	)
	opts := []scrape.Option{
		scrape.WithManager(mgr),
		scrape.WithSleep(func(_ context.Context, d time.Duration) { h.sleeps = append(h.sleeps, d) }),
		scrape.WithClock(func() time.Time { return fixedNow }),
		scrape.WithRunID(func() string { return "run-test" }),
	}
	if h.logger != nil {
		opts = append(opts, scrape.WithLogger(h.logger))
	}
	return scrape.New(h.cfg, persister, opts...)
}

func (h *harness) run(t *testing.T, opts scrape.Options) (*scrape.Summary, error) {
	t.Helper()
	opts.Headless = true
	return h.orchestrator(nil).Run(context.Background(), opts)
}

func (h *harness) count(t *testing.T, hall, meal string) int {
	t.Helper()
	n, err := h.store.CountFor(context.Background(), runDate, hall, meal)
	if err != nil {
		t.Fatalf("CountFor: %v", err)
	}
	return n
}

func (h *harness) totalOpened() int {
	n := 0
	for _, s := range h.site.Sessions() {
		n += len(s.Opened)
	}
	return n
}

func TestRunScrapesOnlyMissingCombinations(t *testing.T) {
	h := newHarness(t)
	testsupport.SeedFoods(t, h.store, runDate, map[string][]string{"Hall A": {"Breakfast"}})

	summary, err := h.run(t, scrape.Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	wantMissing := []gaps.Combination{{Hall: "Hall A", Meal: "Lunch"}, {Hall: "Hall B", Meal: "Dinner"}}
	if diff := cmp.Diff(wantMissing, summary.Missing); diff != "" {
		t.Fatalf("missing mismatch (-want +got):\n%s", diff)
	}
	if summary.HallsChecked != 2 || summary.HallsWithExisting != 1 {
		t.Fatalf("unexpected hall counts: checked=%d existing=%d", summary.HallsChecked, summary.HallsWithExisting)
	}
	if summary.HallsDone() != 2 || summary.HallsFailed() != 0 {
		t.Fatalf("unexpected hall states: %+v", summary.Results)
	}
	if summary.ItemsScraped != 3 || summary.Uploaded != 3 || summary.UploadResult() != "ok" {
		t.Fatalf("unexpected totals: items=%d uploaded=%d", summary.ItemsScraped, summary.Uploaded)
	}
	if got := h.count(t, "Hall A", "Lunch"); got != 2 {
		t.Fatalf("expected 2 lunch records, got %d", got)
	}
	if got := h.count(t, "Hall A", "Breakfast"); got != 1 {
		t.Fatalf("expected seeded breakfast untouched, got %d", got)
	}
	records, err := h.store.Find(context.Background(), store.Filter{Date: runDate, DiningHall: "Hall B"})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(records) != 1 || records[0].RunID != "run-test" || records[0].Station != "Entrees" || records[0].Nutrients["calories"] != "100" {
		t.Fatalf("unexpected hall B records: %+v", records)
	}

	launches, closes, _ := h.site.Counts()
	if launches != 1 || closes != 1 {
		t.Fatalf("expected one session launched and closed, got launches=%d closes=%d", launches, closes)
	}
}

func TestRunStampsHallStageOnLogs(t *testing.T) {
	h := newHarness(t)
	var buf bytes.Buffer
	h.logger = slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	testsupport.SeedFoods(t, h.store, runDate, map[string][]string{"Hall A": {"Breakfast", "Lunch"}})
	timeout := testsupport.TimeoutError("click", "item")
	h.site.Fail("item:Roast Chicken", timeout, timeout)

	if _, err := h.run(t, scrape.Options{}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	stages := make(map[string]string)
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var entry map[string]any
		if err := json.Unmarshal(line, &entry); err != nil {
			t.Fatalf("decode log line %q: %v", line, err)
		}
		event, _ := entry["event_type"].(string)
		stage, _ := entry["stage"].(string)
		if event != "" && stages[event] == "" {
			stages[event] = stage
		}
	}
	want := map[string]string{
		"hall_started":   "selecting",
		"hall_selected":  "extracting",
		"item_failed":    "extracting",
		"meal_extracted": "extracting",
		"hall_done":      "done",
	}
	for event, stage := range want {
		if got := stages[event]; got != stage {
			t.Fatalf("event %s: expected stage %q, got %q (all: %v)", event, stage, got, stages)
		}
	}
}

func TestRunDryRunWritesNothing(t *testing.T) {
	h := newHarness(t)
	testsupport.SeedFoods(t, h.store, runDate, map[string][]string{"Hall A": {"Breakfast"}})

	summary, err := h.run(t, scrape.Options{DryRun: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.MissingCount() != 2 || len(summary.Results) != 0 {
		t.Fatalf("unexpected dry run summary: %+v", summary)
	}
	if h.totalOpened() != 0 {
		t.Fatal("dry run must not open item details")
	}
	total, err := h.store.CountDocuments(context.Background(), store.Filter{})
	if err != nil {
		t.Fatalf("CountDocuments: %v", err)
	}
	if total != 1 {
		t.Fatalf("expected only the seed row, got %d", total)
	}
}

func TestRunNothingMissingSucceeds(t *testing.T) {
	h := newHarness(t)
	testsupport.SeedFoods(t, h.store, runDate, map[string][]string{
		"Hall A": {"Breakfast", "Lunch"},
		"Hall B": {"Dinner"},
	})

	summary, err := h.run(t, scrape.Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.MissingCount() != 0 || summary.UploadResult() != "skipped" {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if h.totalOpened() != 0 {
		t.Fatal("nothing should be extracted")
	}
}

func TestRunTransientSelectionRecoversOnThirdAttempt(t *testing.T) {
	h := newHarness(t)
	h.cfg.Scrape.TransientBackoffMinMS = 2000
	h.cfg.Scrape.TransientBackoffMaxMS = 4000
	testsupport.SeedFoods(t, h.store, runDate, map[string][]string{"Hall A": {"Breakfast", "Lunch"}})
	timeout := testsupport.TimeoutError("click_nth", "hall option")
	// The first call is discovery's; the orchestrator's first two fail.
	h.site.Fail("select_hall:Hall B", nil, timeout, timeout)

	summary, err := h.run(t, scrape.Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	result := summary.Results[0]
	if result.Hall != "Hall B" || result.State != scrape.StateDone || result.Attempts != 3 {
		t.Fatalf("expected Hall B done after 3 attempts, got %+v", result)
	}
	launches, _, _ := h.site.Counts()
	if launches != 1 {
		t.Fatalf("transient failures must not restart, got %d launches", launches)
	}
	var backoffs []time.Duration
	for _, d := range h.sleeps {
		if d > 0 {
			backoffs = append(backoffs, d)
		}
	}
	if len(backoffs) != 2 {
		t.Fatalf("expected 2 transient waits, got %v", h.sleeps)
	}
	for _, d := range backoffs {
		if d < 2*time.Second || d > 4*time.Second {
			t.Fatalf("transient wait %s outside 2s-4s", d)
		}
	}
}

func TestRunCrashingHallFailsAndNextHallContinues(t *testing.T) {
	h := newHarness(t)
	crash := testsupport.CrashError("click_nth")
	h.site.Fail("select_hall:Hall A", nil, crash, crash, crash)
	// initial launch, first restart, then the second restart fails.
	h.site.FailLaunch(nil, nil, errors.New("chrome failed to start"))

	summary, err := h.run(t, scrape.Options{})
	if !errors.Is(err, scrape.ErrHallsFailed) {
		t.Fatalf("expected ErrHallsFailed, got %v", err)
	}
	if len(summary.Results) != 2 {
		t.Fatalf("expected both halls processed, got %+v", summary.Results)
	}
	hallA, hallB := summary.Results[0], summary.Results[1]
	if hallA.State != scrape.StateFailed || !errors.Is(hallA.Err, services.ErrRestart) {
		t.Fatalf("expected Hall A failed on restart, got %+v", hallA)
	}
	if hallB.State != scrape.StateDone {
		t.Fatalf("expected Hall B done, got %+v", hallB)
	}
	if got := h.count(t, "Hall B", "Dinner"); got != 1 {
		t.Fatalf("expected Hall B persisted despite Hall A failure, got %d", got)
	}
	if got := h.count(t, "Hall A", ""); got != 0 {
		t.Fatalf("failed hall must not persist records, got %d", got)
	}
	launches, closes, _ := h.site.Counts()
	if launches != 4 || closes != launches-1 {
		t.Fatalf("expected every launched session closed once, launches=%d closes=%d", launches, closes)
	}
}

func TestRunExhaustedHallTakesScreenshot(t *testing.T) {
	h := newHarness(t)
	testsupport.SeedFoods(t, h.store, runDate, map[string][]string{"Hall A": {"Breakfast", "Lunch"}})
	timeout := testsupport.TimeoutError("click_nth", "hall option")
	h.site.Fail("select_hall:Hall B", nil, timeout, timeout, timeout)

	summary, err := h.run(t, scrape.Options{})
	if !errors.Is(err, scrape.ErrHallsFailed) {
		t.Fatalf("expected ErrHallsFailed, got %v", err)
	}
	if summary.Results[0].State != scrape.StateFailed || summary.Results[0].Attempts != 3 {
		t.Fatalf("expected failed after 3 attempts, got %+v", summary.Results[0])
	}
	if len(summary.Screenshots) != 1 {
		t.Fatalf("expected one screenshot, got %v", summary.Screenshots)
	}
	want := filepath.Join(h.cfg.Paths.ScreenshotDir, "20261014-120000-hall-b.png")
	if summary.Screenshots[0] != want {
		t.Fatalf("screenshot path = %s, want %s", summary.Screenshots[0], want)
	}
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("screenshot not written: %v", err)
	}
}

func TestRunScreenshotsDisabled(t *testing.T) {
	h := newHarness(t)
	h.cfg.Scrape.ScreenshotOnFailure = false
	testsupport.SeedFoods(t, h.store, runDate, map[string][]string{"Hall A": {"Breakfast", "Lunch"}})
	timeout := testsupport.TimeoutError("click_nth", "hall option")
	h.site.Fail("select_hall:Hall B", nil, timeout, timeout, timeout)

	summary, err := h.run(t, scrape.Options{})
	if !errors.Is(err, scrape.ErrHallsFailed) {
		t.Fatalf("expected ErrHallsFailed, got %v", err)
	}
	if len(summary.Screenshots) != 0 {
		t.Fatalf("expected no screenshots, got %v", summary.Screenshots)
	}
	if _, _, shots := h.site.Counts(); shots != 0 {
		t.Fatalf("expected no captures, got %d", shots)
	}
	entries, err := os.ReadDir(h.cfg.Paths.ScreenshotDir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("read screenshot dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty screenshot dir, got %d files", len(entries))
	}
}

func TestRunCrashMidMealRestartsForNextMeal(t *testing.T) {
	h := newHarness(t)
	h.site.Fail("item:Pancakes", testsupport.CrashError("click"))

	summary, err := h.run(t, scrape.Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	hallA := summary.Results[0]
	if hallA.State != scrape.StateDone {
		t.Fatalf("expected Hall A done, got %+v", hallA)
	}
	if diff := cmp.Diff([]string{"Breakfast"}, hallA.FailedMeals); diff != "" {
		t.Fatalf("failed meals mismatch (-want +got):\n%s", diff)
	}
	if got := h.count(t, "Hall A", "Lunch"); got != 2 {
		t.Fatalf("expected lunch extracted after restart, got %d", got)
	}
	launches, _, _ := h.site.Counts()
	if launches != 2 {
		t.Fatalf("expected one restart, got %d launches", launches)
	}
}

func TestRunCrashDuringDiscoveryRestartsAndScrapesEveryHall(t *testing.T) {
	h := newHarness(t)
	h.site.Fail("meal_tabs:Hall A", testsupport.CrashError("wait_visible"))

	summary, err := h.run(t, scrape.Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.HallsChecked != 2 || summary.HallsDone() != 2 {
		t.Fatalf("expected both halls discovered and done, got checked=%d results=%+v", summary.HallsChecked, summary.Results)
	}
	if got := h.count(t, "Hall B", "Dinner"); got != 1 {
		t.Fatalf("expected Hall B dinner stored, got %d", got)
	}
	launches, closes, _ := h.site.Counts()
	if launches != 2 || closes != 2 {
		t.Fatalf("expected one restart during discovery, launches=%d closes=%d", launches, closes)
	}
}

func TestRunUnrecoverableDiscoveryCrashFailsRun(t *testing.T) {
	h := newHarness(t)
	crash := testsupport.CrashError("wait_visible")
	h.site.Fail("meal_tabs:Hall A", crash, crash)

	summary, err := h.run(t, scrape.Options{})
	if !errors.Is(err, discovery.ErrInterrupted) {
		t.Fatalf("expected interrupted discovery to fail the run, got %v", err)
	}
	if len(summary.Missing) != 0 || len(summary.Results) != 0 {
		t.Fatalf("expected nothing scraped, got missing=%v results=%+v", summary.Missing, summary.Results)
	}
	if got := h.count(t, "Hall B", "Dinner"); got != 0 {
		t.Fatalf("expected no records written, got %d", got)
	}
}

func TestRunItemFailuresStillPersist(t *testing.T) {
	h := newHarness(t)
	timeout := testsupport.TimeoutError("click", "item")
	h.site.Fail("item:Roast Chicken", timeout, timeout)

	summary, err := h.run(t, scrape.Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if diff := cmp.Diff([]string{"Hall B: Roast Chicken"}, summary.FailedItems); diff != "" {
		t.Fatalf("failed items mismatch (-want +got):\n%s", diff)
	}
	records, err := h.store.Find(context.Background(), store.Filter{Date: runDate, Name: "Roast Chicken"})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(records) != 1 || records[0].ExtractionError == "" || records[0].Nutrients["error"] == "" {
		t.Fatalf("expected error-marked record, got %+v", records)
	}
}

func TestRunForceRescrapeReplacesRecords(t *testing.T) {
	h := newHarness(t)
	testsupport.SeedFoods(t, h.store, runDate, map[string][]string{
		"Hall A": {"Breakfast", "Lunch"},
		"Hall B": {"Dinner"},
	})

	summary, err := h.run(t, scrape.Options{ForceRescrape: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.MissingCount() != 3 {
		t.Fatalf("expected every combination forced, got %d", summary.MissingCount())
	}
	if got := h.count(t, "Hall A", "Breakfast"); got != 2 {
		t.Fatalf("expected breakfast replaced by 2 records, got %d", got)
	}
	seeded, err := h.store.CountDocuments(context.Background(), store.Filter{Date: runDate, Station: "Seed"})
	if err != nil {
		t.Fatalf("CountDocuments: %v", err)
	}
	if seeded != 0 {
		t.Fatalf("expected seed rows replaced, %d remain", seeded)
	}
}

type failingPersister struct {
	*store.Store
}

func (f failingPersister) UpsertFoods(_ context.Context, records []store.FoodRecord) (int, error) {
	return 0, &services.PersistenceError{Attempted: len(records), Err: errors.New("disk full")}
}

func TestRunPersistenceFailureFailsRun(t *testing.T) {
	h := newHarness(t)
	summary, err := h.orchestrator(failingPersister{h.store}).Run(context.Background(), scrape.Options{Headless: true})
	if !errors.Is(err, services.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	var perr *services.PersistenceError
	if !errors.As(err, &perr) || perr.Attempted != 5 {
		t.Fatalf("expected 5 attempted records, got %v", err)
	}
	if summary.UploadResult() != "failed" || len(summary.Screenshots) != 1 {
		t.Fatalf("unexpected summary: upload=%s screenshots=%v", summary.UploadResult(), summary.Screenshots)
	}
}

func TestRunSessionInitFailure(t *testing.T) {
	h := newHarness(t)
	h.site.FailLaunch(errors.New("exec: google-chrome not found"))

	summary, err := h.run(t, scrape.Options{})
	if !errors.Is(err, services.ErrSessionInit) {
		t.Fatalf("expected ErrSessionInit, got %v", err)
	}
	if summary.HallsChecked != 0 || len(summary.Results) != 0 {
		t.Fatalf("expected no work after init failure, got %+v", summary)
	}
}

func TestRunRespectsLock(t *testing.T) {
	h := newHarness(t)
	if err := h.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	held := flock.New(h.cfg.LockPath())
	ok, err := held.TryLock()
	if err != nil || !ok {
		t.Fatalf("TryLock: ok=%v err=%v", ok, err)
	}
	defer held.Unlock()

	if _, err := h.run(t, scrape.Options{}); !errors.Is(err, scrape.ErrRunLocked) {
		t.Fatalf("expected ErrRunLocked, got %v", err)
	}
	launches, _, _ := h.site.Counts()
	if launches != 0 {
		t.Fatal("locked run must not launch a browser")
	}
}

func TestRunDateOverride(t *testing.T) {
	h := newHarness(t)
	testsupport.SeedFoods(t, h.store, runDate, map[string][]string{
		"Hall A": {"Breakfast", "Lunch"},
		"Hall B": {"Dinner"},
	})
	summary, err := h.run(t, scrape.Options{DryRun: true, Date: "2026-10-15"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Date != "2026-10-15" || summary.MissingCount() != 3 {
		t.Fatalf("expected all combinations missing for the override date, got %+v", summary)
	}
}
