package commands

import (
	"fmt"

	"github.com/benvon/smart-bookmarks/internal/database"
	"github.com/spf13/cobra"
)

// NewMigrateCmd creates the migrate command
func NewMigrateCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := opts.openDB()
			if err != nil {
				return err
			}
			defer closeDB(db)

			applied, err := database.Migrate(cmd.Context(), db)
			if err != nil {
				return fmt.Errorf("failed to migrate: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(applied) == 0 {
				fmt.Fprintln(out, "Database is up to date.")
				return nil
			}
			for _, version := range applied {
				fmt.Fprintf(out, "Applied %s\n", version)
			}
			return nil
		},
	}
}
