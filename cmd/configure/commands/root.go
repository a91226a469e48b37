// Package commands implements the smart-bookmarks-configure CLI.
package commands

import (
	"fmt"
	"os"

	"github.com/benvon/smart-bookmarks/internal/config"
	"github.com/benvon/smart-bookmarks/internal/database"
	"github.com/spf13/cobra"
)

// Options holds flags shared by every command
type Options struct {
	DatabaseURL string
}

// NewRootCmd assembles the CLI
func NewRootCmd() *cobra.Command {
	opts := &Options{}
	rootCmd := &cobra.Command{
		Use:           "smart-bookmarks-configure",
		Short:         "Configuration tool for the Smart Bookmarks API",
		Long:          "CLI tool for migrations, runtime CORS and rate limit settings, user status and tagging checks",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.DatabaseURL, "db-url", "", "Database URL (defaults to DATABASE_URL)")

	rootCmd.AddCommand(NewMigrateCmd(opts))
	rootCmd.AddCommand(NewCorsCmd(opts))
	rootCmd.AddCommand(NewRatelimitCmd(opts))
	rootCmd.AddCommand(NewListCmd(opts))
	rootCmd.AddCommand(NewUserCmd(opts))
	rootCmd.AddCommand(NewTagCmd())
	return rootCmd
}

func (o *Options) databaseURL() (string, error) {
	if o.DatabaseURL != "" {
		return o.DatabaseURL, nil
	}
	if url := config.Read().DatabaseURL; url != "" {
		return url, nil
	}
	return "", fmt.Errorf("--db-url or DATABASE_URL is required")
}

// openDB connects to the database; callers close it
func (o *Options) openDB() (*database.DB, error) {
	url, err := o.databaseURL()
	if err != nil {
		return nil, err
	}
	db, err := database.New(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func closeDB(db *database.DB) {
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
	}
}
