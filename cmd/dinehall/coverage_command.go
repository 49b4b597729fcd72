package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"dinehall/internal/store"
	"dinehall/internal/textutil"
)

func newCoverageCommand(ctx *commandContext) *cobra.Command {
	var dateFlag string
	var hall string
	var meal string

	cmd := &cobra.Command{
		Use:   "coverage",
		Short: "Show how many food records are stored for a date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			date, err := parseDateFlag(dateFlag)
			if err != nil {
				return err
			}
			if date == "" {
				date = cfg.Today(time.Now())
			}

			st, err := store.Open(cfg)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer st.Close()

			count, err := st.CountFor(cmd.Context(), date, hall, meal)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			scope := date
			if h := strings.TrimSpace(hall); h != "" {
				scope += " / " + h
			}
			if m := strings.TrimSpace(meal); m != "" {
				scope += " / " + m
			}
			fmt.Fprintf(out, "%s: %d records\n", scope, count)
			if count == 0 {
				return nil
			}

			combos, err := st.Combinations(cmd.Context(), date)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(combos))
			for _, combo := range combos {
				if !matchesScope(combo, hall, meal) {
					continue
				}
				rows = append(rows, []string{combo.DiningHall, combo.MealName, strconv.Itoa(combo.Count)})
			}
			fmt.Fprintln(out, renderTable([]string{"Hall", "Meal", "Records"}, rows, 2))
			return nil
		},
	}

	cmd.Flags().StringVar(&dateFlag, "date", "", "Menu date (YYYY-MM-DD, default today in site.timezone)")
	cmd.Flags().StringVar(&hall, "hall", "", "Restrict to one dining hall")
	cmd.Flags().StringVar(&meal, "meal", "", "Restrict to one meal")
	return cmd
}

func matchesScope(combo store.Combination, hall, meal string) bool {
	if h := strings.TrimSpace(hall); h != "" && !textutil.EqualFold(h, combo.DiningHall) {
		return false
	}
	if m := strings.TrimSpace(meal); m != "" && !textutil.EqualFold(m, combo.MealName) {
		return false
	}
	return true
}
