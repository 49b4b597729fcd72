package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"dinehall/internal/config"
	"dinehall/internal/logging"
	"dinehall/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	var dateFlag string
	var level string
	var hall string

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show lines from the daily log file",
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
			day := time.Now()
			if date != "" {
				day, _ = time.ParseInLocation(config.DateLayout, date, time.Local)
			}
			path := filepath.Join(cfg.Paths.LogDir, logging.DailyFileName(logging.DailyFilePrefix, day))
			filter := logs.Filter{MinLevel: level, Hall: hall}

			out := cmd.OutOrStdout()
			tail, offset, err := logs.Tail(path, lines, filter)
			if err != nil {
				return err
			}
			for _, line := range tail {
				fmt.Fprintln(out, line)
			}
			if !follow {
				if len(tail) == 0 {
					fmt.Fprintf(cmd.ErrOrStderr(), "no log lines in %s\n", path)
				}
				return nil
			}
			err = logs.Follow(cmd.Context(), path, offset, logs.DefaultPollInterval, filter, func(line string) {
				fmt.Fprintln(out, line)
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines until interrupted")
	cmd.Flags().StringVar(&dateFlag, "date", "", "Log day to read (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&level, "level", "", "Minimum level to show (debug, info, warn, error)")
	cmd.Flags().StringVar(&hall, "hall", "", "Only show lines for one dining hall")
	return cmd
}
