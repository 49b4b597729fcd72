package scrape

import (
	"log/slog"
	"time"

	"dinehall/internal/gaps"
	"dinehall/internal/logging"
)

// Summary reports one orchestration run.
type Summary struct {
	RunID             string
	Date              string
	DryRun            bool
	ForceRescrape     bool
	HallsChecked      int
	HallsWithExisting int
	Missing           []gaps.Combination
	Results           []HallResult
	ItemsScraped      int
	FailedItems       []string
	Uploaded          int
	UploadErr         error
	Screenshots       []string
	Duration          time.Duration
}

// MissingCount is the number of (hall, meal) pairs selected for scraping.
func (s *Summary) MissingCount() int { return len(s.Missing) }

// HallsDone counts halls that reached StateDone.
func (s *Summary) HallsDone() int { return s.countState(StateDone) }

// HallsFailed counts halls that ended in StateFailed.
func (s *Summary) HallsFailed() int { return s.countState(StateFailed) }

func (s *Summary) countState(state State) int {
	n := 0
	for _, r := range s.Results {
		if r.State == state {
			n++
		}
	}
	return n
}

// UploadResult renders the batch write outcome for logs and tables.
func (s *Summary) UploadResult() string {
	switch {
	case s.UploadErr != nil:
		return "failed"
	case s.Uploaded > 0:
		return "ok"
	default:
		return "skipped"
	}
}

func (s *Summary) log(logger *slog.Logger) {
	attrs := []logging.Attr{
		logging.String(logging.FieldRunID, s.RunID),
		logging.String("date", s.Date),
		logging.Int("halls_checked", s.HallsChecked),
		logging.Int("halls_with_existing", s.HallsWithExisting),
		logging.Int("missing", s.MissingCount()),
		logging.Int("halls_done", s.HallsDone()),
		logging.Int("halls_failed", s.HallsFailed()),
		logging.Int("items_scraped", s.ItemsScraped),
		logging.Int("failed_items", len(s.FailedItems)),
		logging.Int("uploaded", s.Uploaded),
		logging.String("upload", s.UploadResult()),
		logging.Duration("duration", s.Duration),
		logging.Event("run_summary"),
	}
	if s.UploadErr != nil {
		attrs = append(attrs, logging.Error(s.UploadErr))
	}
	logger.Info("scrape summary", logging.Args(attrs...)...)
}
