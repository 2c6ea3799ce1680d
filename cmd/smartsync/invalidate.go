package main

import (
	"github.com/homemade/smartsync/sync"
	"github.com/spf13/cobra"
)

var invalidateFile string

var invalidateCmd = &cobra.Command{
	Use:   "invalidate",
	Short: "Mark emails from a CSV as catch-all",
	Long: `Reads the email_address column of a CSV file and sets Email_status to
"Email Not Sent" and email_validity to "Catch all" for every matching row.
Matching is case-insensitive.`,
	Args: cobra.NoArgs,
	RunE: runInvalidate,
}

func init() {
	invalidateCmd.Flags().StringVar(&invalidateFile, "file", sync.DefaultInvalidEmailsFile, "csv file with an email_address column")
}

func runInvalidate(cmd *cobra.Command, args []string) error {
	env, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer env.close()

	updater := sync.BigQueryUpdater{SyncContext: env.syncContext(), Warehouse: env.warehouse}
	_, err = updater.InvalidateEmailsFromCSV(cmd.Context(), invalidateFile)
	return err
}
