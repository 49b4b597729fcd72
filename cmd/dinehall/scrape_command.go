package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"dinehall/internal/config"
	"dinehall/internal/deps"
	"dinehall/internal/logging"
	"dinehall/internal/notifications"
	"dinehall/internal/preflight"
	"dinehall/internal/scrape"
	"dinehall/internal/store"
)

func newScrapeCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool
	var forceRescrape bool
	var dateFlag string
	var browserFlags headlessFlags

	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Scrape menus that are missing from the store for the target date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := parseDateFlag(dateFlag)
			if err != nil {
				return err
			}
			return ctx.withLogger(cmd, func(cfg *config.Config, logger *slog.Logger) error {
				opts := scrape.Options{
					DryRun:        dryRun,
					ForceRescrape: forceRescrape,
					Headless:      browserFlags.resolve(cmd, cfg),
					Date:          date,
				}
				cfg.Browser.Headless = opts.Headless
				if missing := deps.Missing(preflight.CheckSystemDeps(cfg)); len(missing) > 0 {
					return missingDepsError(missing)
				}

				st, err := store.Open(cfg)
				if err != nil {
					return fmt.Errorf("open store: %w", err)
				}
				defer st.Close()

				orchestrator := scrape.New(cfg, st,
					scrape.WithLogger(logger),
					scrape.WithManager(ctx.browserManager(cfg, logger)),
				)
				summary, runErr := orchestrator.Run(cmd.Context(), opts)
				printSummary(cmd.OutOrStdout(), summary)
				if !opts.DryRun {
					publishSummary(cmd.Context(), cfg, logger, summary, runErr)
				}
				return runErr
			})
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report missing combinations without extracting or writing")
	cmd.Flags().BoolVar(&forceRescrape, "force-rescrape", false, "Treat every discovered combination as missing and replace stored records")
	cmd.Flags().StringVar(&dateFlag, "date", "", "Menu date to scrape (YYYY-MM-DD, default today in site.timezone)")
	browserFlags.register(cmd)
	return cmd
}

func printSummary(out io.Writer, summary *scrape.Summary) {
	if summary == nil {
		return
	}
	if summary.DryRun && len(summary.Missing) > 0 {
		rows := make([][]string, 0, len(summary.Missing))
		for _, combo := range summary.Missing {
			rows = append(rows, []string{combo.Hall, combo.Meal})
		}
		fmt.Fprintln(out, renderTable([]string{"Hall", "Meal"}, rows))
	}

	fields := [][2]string{
		{"Run ID", summary.RunID},
		{"Date", summary.Date},
		{"Halls checked", strconv.Itoa(summary.HallsChecked)},
		{"Halls with existing data", strconv.Itoa(summary.HallsWithExisting)},
		{"Missing combinations", strconv.Itoa(summary.MissingCount())},
	}
	if !summary.DryRun {
		fields = append(fields,
			[2]string{"Halls done", strconv.Itoa(summary.HallsDone())},
			[2]string{"Halls failed", strconv.Itoa(summary.HallsFailed())},
			[2]string{"Items scraped", strconv.Itoa(summary.ItemsScraped)},
			[2]string{"Failed items", strconv.Itoa(len(summary.FailedItems))},
			[2]string{"Upload", summary.UploadResult()},
		)
	}
	fields = append(fields,
		[2]string{"Dry run", yesNo(summary.DryRun)},
		[2]string{"Force rescrape", yesNo(summary.ForceRescrape)},
		[2]string{"Duration", summary.Duration.Round(time.Millisecond).String()},
	)
	fmt.Fprintln(out, renderFields("Scrape summary", fields))

	if len(summary.Results) > 0 {
		rows := make([][]string, 0, len(summary.Results))
		for _, result := range summary.Results {
			rows = append(rows, []string{
				result.Hall,
				string(result.State),
				strconv.Itoa(result.Attempts),
				strconv.Itoa(result.Items()),
				strings.Join(result.FailedMeals, ", "),
			})
		}
		fmt.Fprintln(out, renderTable([]string{"Hall", "State", "Attempts", "Items", "Failed meals"}, rows, 2, 3))
	}
	for _, item := range summary.FailedItems {
		fmt.Fprintf(out, "No nutrition: %s\n", item)
	}
	for _, path := range summary.Screenshots {
		fmt.Fprintf(out, "Screenshot: %s\n", path)
	}
}

// publishSummary pushes the run outcome. Delivery failures are logged only.
func publishSummary(ctx context.Context, cfg *config.Config, logger *slog.Logger, summary *scrape.Summary, runErr error) {
	if summary == nil {
		return
	}
	event := notifications.EventRunCompleted
	payload := notifications.Payload{
		"date":         summary.Date,
		"missing":      summary.MissingCount(),
		"items":        summary.ItemsScraped,
		"uploaded":     summary.Uploaded,
		"halls_done":   summary.HallsDone(),
		"halls_failed": summary.HallsFailed(),
		"failed_items": len(summary.FailedItems),
		"duration":     summary.Duration,
	}
	if runErr != nil {
		event = notifications.EventRunFailed
		payload["error"] = runErr
	}
	if err := notifications.NewService(cfg).Publish(ctx, event, payload); err != nil {
		logging.WarnWithContext(logger, "notification failed", "notify_failed",
			logging.Error(err),
			logging.Hint("check notifications.ntfy_topic"),
			logging.Impact("run outcome was not pushed"),
		)
	}
}
