// cmd/seeder/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/unclebandit/partnerconnex-backend/internal/config"
	"github.com/unclebandit/partnerconnex-backend/internal/db"
	appErrors "github.com/unclebandit/partnerconnex-backend/internal/errors"
	"github.com/unclebandit/partnerconnex-backend/internal/logger"
	"github.com/unclebandit/partnerconnex-backend/internal/model"
	"github.com/unclebandit/partnerconnex-backend/internal/repository"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "seeder",
		Short:        "Seed and inspect PartnerConnex campaigns",
		SilenceUsage: true,
	}
	root.AddCommand(seedCmd(), listCmd())
	return root
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the schema and insert the demo campaigns",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepository(cmd.Context(), func(repo repository.CampaignRepositoryInterface) error {
				seeded, err := seedCampaigns(cmd.Context(), repo, model.DemoCampaigns())
				if err != nil {
					return err
				}
				renderCampaigns(cmd.OutOrStdout(), seeded)
				fmt.Fprintf(cmd.OutOrStdout(), "Database seeding completed successfully! (%d new)\n", len(seeded))
				return nil
			})
		},
	}
}

func listCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List campaigns in creation order",
		RunE: func(cmd *cobra.Command, args []string) error {
			if status != "" && !model.CampaignStatus(status).Valid() {
				return fmt.Errorf("unknown status %q", status)
			}
			return withRepository(cmd.Context(), func(repo repository.CampaignRepositoryInterface) error {
				campaigns, total, err := repo.ListCampaigns(cmd.Context(), 0, 1000, status)
				if err != nil {
					return err
				}
				renderCampaigns(cmd.OutOrStdout(), campaigns)
				fmt.Fprintf(cmd.OutOrStdout(), "%d campaign(s)\n", total)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "filter by status (open or closed)")
	return cmd
}

func withRepository(ctx context.Context, fn func(repository.CampaignRepositoryInterface) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if !cfg.Database.Enabled() {
		return errors.New("database.host is not configured")
	}
	conn, err := db.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := db.EnsureSchema(ctx, conn); err != nil {
		return err
	}
	return fn(&repository.CampaignRepository{DB: conn})
}

// seedCampaigns inserts campaigns whose slug is not taken yet and returns the new ones.
func seedCampaigns(ctx context.Context, repo repository.CampaignRepositoryInterface, campaigns []*model.Campaign) ([]*model.Campaign, error) {
	var seeded []*model.Campaign
	for _, c := range campaigns {
		_, err := repo.GetBySlug(ctx, c.Slug)
		if err == nil {
			logger.GetLogger().WithField("slug", c.Slug).Info("Campaign already present, skipping")
			continue
		}
		if !appErrors.IsNotFound(err) {
			return seeded, err
		}
		if err := repo.Create(ctx, c); err != nil {
			return seeded, fmt.Errorf("seed %s: %w", c.Slug, err)
		}
		seeded = append(seeded, c)
	}
	return seeded, nil
}

func renderCampaigns(w io.Writer, campaigns []*model.Campaign) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"ID", "Title", "Slug", "Status", "Platforms", "Deadline", "Creators"})
	for _, c := range campaigns {
		platforms := make([]string, len(c.Platforms))
		for i, p := range c.Platforms {
			platforms[i] = p.Label()
		}
		tw.AppendRow(table.Row{
			c.ID, c.Title, c.Slug, c.Status,
			strings.Join(platforms, ", "),
			c.Deadline.Format("2006-01-02"),
			len(c.Creators),
		})
	}
	tw.Render()
}
