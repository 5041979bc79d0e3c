package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/trusthive/trusthive/auth"
	"github.com/trusthive/trusthive/config"
	bboltstorage "github.com/trusthive/trusthive/storage/bbolt"
)

var cleanupShop string

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Sweep expired and consumed login tokens",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		repo, err := bboltstorage.NewRepositoryFromFile(cfg.DataDir+"/trusthive.db", nil)
		if err != nil {
			return fmt.Errorf("failed to open storage: %w", err)
		}
		defer repo.Close()

		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		sweeper := auth.NewSweeper(repo)
		if cleanupShop != "" {
			if err := sweeper.SweepForShop(ctx, cleanupShop); err != nil {
				return fmt.Errorf("sweep failed: %w", err)
			}
			fmt.Printf("Swept stale tokens for shop %s\n", cleanupShop)
			return nil
		}

		count, err := sweeper.SweepAll(ctx)
		if err != nil {
			return fmt.Errorf("sweep failed: %w", err)
		}
		fmt.Printf("Cleaned up %d old tokens\n", count)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
	cleanupCmd.Flags().StringVar(&cleanupShop, "shop", "", "Limit the sweep to one shop")
}
