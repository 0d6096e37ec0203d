package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/missioncontrol/internal/config"
)

func newCheckConfigCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "check-config",
		Short: "Validate configuration and print the effective settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m := config.NewManager(path)
			if err := m.Load(); err != nil {
				return err
			}
			cfg := m.Config()

			out := cmd.OutOrStdout()
			settings := []struct {
				path  string
				value any
			}{
				{"log.level", cfg.Log.Level},
				{"log.development", cfg.Log.Development},
				{"dispatch.mode", cfg.Dispatch.Mode},
				{"dispatch.queueSize", cfg.Dispatch.QueueSize},
				{"access.failFast", cfg.Access.FailFast},
				{"simulation.drones", cfg.Simulation.Drones},
				{"simulation.interval", cfg.Simulation.Interval},
				{"simulation.duration", cfg.Simulation.Duration},
				{"simulation.checklists", cfg.Simulation.Checklists},
				{"display.units", cfg.Display.Units},
			}
			for _, s := range settings {
				fmt.Fprintf(out, "%-22s %-16v (%s)\n", s.path, s.value, m.Origin(s.path))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&path, "config", "c", "", "path to a TOML or YAML config file")
	return cmd
}
