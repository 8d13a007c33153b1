package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "calendard",
		Short: "Natural-language calendar assistant",
		Long: `calendard answers free-text calendar requests ("schedule lunch tomorrow at 1pm",
"what do I have next week?", "delete everything on the 7th") against a local
SQLite event store.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(
		newServeCmd(),
		newStdioCmd(),
		newAskCmd(),
		newEventsCmd(),
		newSettingsCmd(),
	)
	return rootCmd
}
