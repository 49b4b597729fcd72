package main

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"dinehall/internal/config"
	"dinehall/internal/deps"
	"dinehall/internal/discovery"
	"dinehall/internal/preflight"
)

func newDiscoverCommand(ctx *commandContext) *cobra.Command {
	var browserFlags headlessFlags

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "List the dining halls and meals the site currently publishes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLogger(cmd, func(cfg *config.Config, logger *slog.Logger) error {
				headless := browserFlags.resolve(cmd, cfg)
				cfg.Browser.Headless = headless
				if missing := deps.Missing(preflight.CheckSystemDeps(cfg)); len(missing) > 0 {
					return missingDepsError(missing)
				}

				manager := ctx.browserManager(cfg, logger)
				session, err := manager.Create(cmd.Context(), headless)
				if err != nil {
					return err
				}
				defer func() { manager.Close(session) }()

				catalog, session, err := discovery.NewEngine(cfg, logger).DiscoverAll(cmd.Context(), session, manager)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(catalog) == 0 {
					fmt.Fprintln(out, "No dining halls with meals found")
					return nil
				}
				rows := make([][]string, 0, len(catalog))
				for _, hall := range catalog {
					rows = append(rows, []string{hall.Hall, strconv.Itoa(len(hall.Meals)), strings.Join(hall.Meals, ", ")})
				}
				fmt.Fprintln(out, renderTable([]string{"Hall", "Meals", "Names"}, rows, 1))
				fmt.Fprintf(out, "%d halls, %d combinations\n", len(catalog), catalog.Combinations())
				return nil
			})
		},
	}
	browserFlags.register(cmd)
	return cmd
}
