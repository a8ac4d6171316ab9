// Command publisher runs the LinkedIn scheduled-post publisher: the HTTP API
// with its background scheduler, plus operator commands for one-off publishes,
// engagement syncs, credential setup and inspection of due posts.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/tbourn/linkedin-publisher/internal/config"
	"github.com/tbourn/linkedin-publisher/internal/sysutil"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

var (
	cfg     config.Config
	envFile string
	jsonOut bool
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "publisher",
		Short: "LinkedIn scheduled-post publisher",
		Long: `publisher turns approved drafts into live LinkedIn posts at their scheduled time.
- serve: HTTP API plus the dispatch and reconcile loops.
- publish: run the publish pipeline for one scheduled post now.
- sync: refresh engagement counters for one organization.
- due: list scheduled posts that are due for dispatch.
- connect: store an access token for an account.
- migrate: create or update the database schema.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("load %s: %w", envFile, err)
			}
			c, err := config.Load()
			if err != nil {
				return err
			}
			cfg = c
			sysutil.ConfigureLogger(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogPretty)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	root.PersistentFlags().BoolVar(&jsonOut, "json", false, "output JSON")

	root.AddCommand(serveCmd())
	root.AddCommand(publishCmd())
	root.AddCommand(syncCmd())
	root.AddCommand(dueCmd())
	root.AddCommand(connectCmd())
	root.AddCommand(migrateCmd())
	root.AddCommand(versionCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), version)
			return nil
		},
	}
}
