// Package main is the entry point for the campus ticket server. It serves
// the complaint lifecycle API (submission, community upvotes, admin triage,
// notifications, global status and analytics) and manages the schema.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ticket-server",
		Short: "Campus complaint ticket server",
		Long: `ticket-server tracks campus complaints from submission to resolution:
students file and upvote tickets, admins triage and respond, and every
change is pushed to connected clients.`,
		SilenceUsage: true,
	}

	serve := newServeCommand()
	rootCmd.AddCommand(serve, newMigrateCommand())
	// Running without a subcommand serves.
	rootCmd.RunE = serve.RunE

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
