package main

import (
	"github.com/spf13/cobra"
)

// NewRootCommand creates the root command for the crm-pipeline CLI.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crm-pipeline",
		Short: "Copy CRM records into BigQuery and report by email",
		Long: `Fetches a CRM record by id, maps it to a warehouse row, inserts it and
emails the outcome. Configuration is read from the environment.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(NewServeCommand())
	cmd.AddCommand(NewInvokeCommand())
	cmd.AddCommand(NewGmailTokenCommand())

	return cmd
}
