package commands

import (
	"fmt"
	"strings"

	"github.com/benvon/smart-bookmarks/internal/database"
	"github.com/benvon/smart-bookmarks/internal/models"
	"github.com/benvon/smart-bookmarks/internal/services/users"
	"github.com/spf13/cobra"
)

// NewUserCmd creates the user administration command
func NewUserCmd(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Administer users",
	}
	cmd.AddCommand(newUserSetStatusCmd(opts))
	return cmd
}

func newUserSetStatusCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "set-status <email> <ACTIVE|INACTIVE|PENDING|BLOCKED>",
		Short: "Set a user's status",
		Long:  "Set a user's status directly, bypassing the transition rules the API enforces.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			email := strings.TrimSpace(args[0])
			status := models.UserStatus(strings.ToUpper(strings.TrimSpace(args[1])))
			if !status.Valid() {
				return fmt.Errorf("invalid status %q", args[1])
			}

			db, err := opts.openDB()
			if err != nil {
				return err
			}
			defer closeDB(db)

			svc := users.NewService(database.NewUserRepository(db), database.NewBookmarkRepository(db), nil)
			user, err := svc.SetStatus(cmd.Context(), email, status)
			if err != nil {
				if msg, ok := models.ErrorMessage(err); ok {
					return fmt.Errorf("%s", msg)
				}
				return fmt.Errorf("failed to set status: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "User %s is now %s.\n", user.Email, user.Status)
			return nil
		},
	}
}
