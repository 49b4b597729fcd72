package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"dinehall/internal/deps"
	"dinehall/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var offline bool
	var browserFlags headlessFlags

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check Chrome, directories, and site reachability",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			cfg.Browser.Headless = browserFlags.resolve(cmd, cfg)
			printer := newStatusPrinter(cmd.OutOrStdout())

			printer.section("Dependencies")
			statuses := preflight.CheckSystemDeps(cfg)
			for _, status := range statuses {
				kind := statusOK
				detail := status.Command
				if status.Detail != "" {
					detail = status.Detail
				}
				if !status.Available {
					kind = statusError
					if status.Optional {
						kind = statusWarn
					}
					detail = fmt.Sprintf("%s; %s", detail, status.Description)
				}
				printer.line(status.Name, kind, detail)
			}

			printer.section("Environment")
			results := preflight.RunAll(cmd.Context(), cfg, offline)
			for _, result := range results {
				kind := statusOK
				if !result.Passed {
					kind = statusError
				}
				printer.line(result.Name, kind, result.Detail)
			}

			missing := deps.Missing(statuses)
			failed := preflight.Failed(results)
			if len(missing) == 0 && len(failed) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "All checks passed")
				return nil
			}
			var errs []error
			if len(missing) > 0 {
				errs = append(errs, missingDepsError(missing))
			}
			for _, result := range failed {
				errs = append(errs, fmt.Errorf("%s: %s", result.Name, result.Detail))
			}
			return errors.Join(errs...)
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "Skip the site reachability check")
	browserFlags.register(cmd)
	return cmd
}
