package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/benvon/smart-bookmarks/internal/database"
	"github.com/spf13/cobra"
)

// NewListCmd creates the list command
func NewListCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List users",
		Long:  "List all users with their status and bookmark count",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := opts.openDB()
			if err != nil {
				return err
			}
			defer closeDB(db)

			users, err := database.NewUserRepository(db).List(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list users: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(users) == 0 {
				fmt.Fprintln(out, "No users found")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "EMAIL\tSTATUS\tBOOKMARKS\tID")
			for _, u := range users {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", u.Email, u.Status, u.BookmarkCount, u.ID)
			}
			return w.Flush()
		},
	}
}
