package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/missioncontrol/internal/app"
)

func newSimulateCmd() *cobra.Command {
	var opts app.Options

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run the fleet simulation",
		Long: `Runs the simulated fleet until the configured duration elapses or the
process is interrupted. A duration of 0 runs until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := app.New(cmd.Context(), opts)
			if err != nil {
				return err
			}

			report, runErr := application.Run(cmd.Context())

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := application.Shutdown(shutdownCtx); err != nil && runErr == nil {
				runErr = err
			}
			if runErr != nil {
				return runErr
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Simulated %d drones for %s\n", len(application.Drones()), report.Elapsed.Round(time.Millisecond))
			fmt.Fprintf(out, "  telemetry samples:  %d\n", report.Samples)
			fmt.Fprintf(out, "  snapshots verified: %d\n", report.Snapshots)
			fmt.Fprintf(out, "  contended accesses: %d\n", report.Contended)
			fmt.Fprintf(out, "  drone switches:     %d\n", report.Switches)
			fmt.Fprintf(out, "  checklist changes:  %d\n", report.ChecklistChanges)
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to a TOML or YAML config file")
	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "reload the config file when it changes")
	cmd.Flags().DurationVarP(&opts.Duration, "duration", "d", 0, "override simulation.duration")
	return cmd
}
