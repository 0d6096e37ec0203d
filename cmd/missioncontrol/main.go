// Package main is the entry point for the mission control simulator.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "missioncontrol",
		Short: "Drone mission control simulator",
		Long: `missioncontrol simulates a fleet of drones whose telemetry is kept in
observable properties. A preflight checklist view follows the selected drone
through a property path while the fleet reports telemetry concurrently.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newSimulateCmd())
	rootCmd.AddCommand(newCheckConfigCmd())
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}
