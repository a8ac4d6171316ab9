package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/tbourn/linkedin-publisher/internal/config"
	"github.com/tbourn/linkedin-publisher/internal/domain"
	"github.com/tbourn/linkedin-publisher/internal/linkedin"
	"github.com/tbourn/linkedin-publisher/internal/repo"
	"github.com/tbourn/linkedin-publisher/internal/services"
)

// openDB opens the configured database and brings the schema up to date.
// The returned func closes the connection pool.
func openDB(cfg config.Config) (*gorm.DB, func(), error) {
	db, err := repo.Open(cfg)
	if err != nil {
		return nil, nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, err
	}
	closeDB := func() {
		if err := sqlDB.Close(); err != nil {
			log.Warn().Err(err).Msg("close database")
		}
	}
	if err := repo.AutoMigrate(db); err != nil {
		closeDB()
		return nil, nil, err
	}
	return db, closeDB, nil
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, closeDB, err := openDB(cfg)
			if err != nil {
				return err
			}
			closeDB()
			fmt.Fprintf(cmd.OutOrStdout(), "schema up to date (%s)\n", driverName(cfg))
			return nil
		},
	}
}

func publishCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "publish <scheduled_post_id>",
		Short: "Publish one scheduled post now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, closeDB, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer closeDB()
			svc := services.NewPublishService(db, linkedin.New(cfg.LinkedIn), cfg)
			out, err := svc.Publish(cmd.Context(), args[0])
			if out == nil {
				return err
			}
			if perr := printOutcome(cmd.OutOrStdout(), out); perr != nil {
				return perr
			}
			if err != nil {
				return err
			}
			if out.Status == domain.StatusFailed {
				return fmt.Errorf("publish failed: %s", out.Error)
			}
			return nil
		},
	}
}

func syncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync <org_id>",
		Short: "Refresh engagement counters for one organization",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, closeDB, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer closeDB()
			res, err := services.NewReconcileService(db, linkedin.New(cfg.LinkedIn)).Sync(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if jsonOut {
				return printJSON(cmd.OutOrStdout(), res)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "synced %d of %d posts for %s\n", res.SyncedCount, res.Total, args[0])
			return nil
		},
	}
}

func dueCmd() *cobra.Command {
	var (
		limit int
		at    string
	)
	cmd := &cobra.Command{
		Use:   "due",
		Short: "List scheduled posts due for dispatch",
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now().UTC()
			if at != "" {
				t, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("--at: %w", err)
				}
				now = t.UTC()
			}
			db, closeDB, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer closeDB()
			items, err := repo.ListDueScheduledPosts(cmd.Context(), db, now, limit)
			if err != nil {
				return err
			}
			if jsonOut {
				return printJSON(cmd.OutOrStdout(), items)
			}
			renderDue(cmd.OutOrStdout(), items)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum rows")
	cmd.Flags().StringVar(&at, "at", "", "evaluate due-ness at this RFC3339 instant instead of now")
	return cmd
}

func connectCmd() *cobra.Command {
	var (
		account, token, authorID, kind string
		expiresIn                      time.Duration
	)
	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Store a LinkedIn access token for an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			k := domain.AuthorKind(strings.ToLower(strings.TrimSpace(kind)))
			if k != domain.KindPerson && k != domain.KindOrganization {
				return fmt.Errorf("--kind must be %q or %q", domain.KindPerson, domain.KindOrganization)
			}
			if strings.TrimSpace(account) == "" || strings.TrimSpace(token) == "" || strings.TrimSpace(authorID) == "" {
				return fmt.Errorf("--account, --token and --author-id are required")
			}
			cred := &domain.Credential{
				AccountID:   account,
				AccessToken: token,
				AuthorID:    authorID,
				AuthorKind:  k,
			}
			if expiresIn > 0 {
				exp := time.Now().UTC().Add(expiresIn)
				cred.ExpiresAt = &exp
			}
			db, closeDB, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer closeDB()
			if err := repo.UpsertCredential(cmd.Context(), db, cred); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "connected %s as %s\n", account, k.URN(authorID))
			return nil
		},
	}
	cmd.Flags().StringVar(&account, "account", "", "account (organization) id")
	cmd.Flags().StringVar(&token, "token", "", "OAuth access token")
	cmd.Flags().StringVar(&authorID, "author-id", "", "person or organization id used as post author")
	cmd.Flags().StringVar(&kind, "kind", string(domain.KindOrganization), "author kind: person|organization")
	cmd.Flags().DurationVar(&expiresIn, "expires-in", 0, "token lifetime (0 = no expiry)")
	return cmd
}

func printOutcome(w io.Writer, out *services.PublishOutcome) error {
	if jsonOut {
		return printJSON(w, out)
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Field", "Value"})
	tw.AppendRow(table.Row{"scheduled_post_id", out.ScheduledPostID})
	tw.AppendRow(table.Row{"status", out.Status})
	if out.PlatformPostID != "" {
		tw.AppendRow(table.Row{"platform_post_id", out.PlatformPostID})
		tw.AppendRow(table.Row{"platform_url", out.PlatformURL})
	}
	if out.Protocol != "" {
		tw.AppendRow(table.Row{"protocol", out.Protocol})
	}
	if out.Unidentified {
		tw.AppendRow(table.Row{"success_but_unidentified", true})
	}
	if out.MediaDegraded {
		tw.AppendRow(table.Row{"media_degraded", true})
	}
	if out.UploadFailures > 0 {
		tw.AppendRow(table.Row{"upload_failures", out.UploadFailures})
	}
	if out.Error != "" {
		tw.AppendRow(table.Row{"error", out.Error})
	}
	tw.Render()
	return nil
}

func renderDue(w io.Writer, items []domain.ScheduledPost) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"ID", "Org", "Draft", "Publish Time", "Status", "Retries"})
	for _, sp := range items {
		tw.AppendRow(table.Row{
			sp.ID, sp.OrgID, sp.DraftID,
			sp.PublishTime.UTC().Format(time.RFC3339),
			sp.Status,
			fmt.Sprintf("%d/%d", sp.Retries, sp.MaxRetries),
		})
	}
	tw.AppendFooter(table.Row{"", "", "", "", "Total", len(items)})
	tw.Render()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func driverName(cfg config.Config) string {
	if cfg.DBDriver == "" {
		return "sqlite"
	}
	return cfg.DBDriver
}
