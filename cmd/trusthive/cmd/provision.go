package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/trusthive/trusthive/config"
	"github.com/trusthive/trusthive/internal/util"
	"github.com/trusthive/trusthive/storage"
	bboltstorage "github.com/trusthive/trusthive/storage/bbolt"
)

var (
	provisionSiteName   string
	provisionAdminEmail string
)

var provisionCmd = &cobra.Command{
	Use:   "provision <site-url>",
	Short: "Register a shop and print its credentials",
	Args:  cobra.ExactArgs(1),
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

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		siteURL := args[0]
		if existing, err := repo.GetShopBySiteURL(ctx, siteURL); err == nil {
			fmt.Printf("Shop already registered:\n  shop_id: %s\n  api_key: %s\n", existing.ShopID, existing.APIKey)
			return nil
		} else if !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("failed to look up shop: %w", err)
		}

		shopID, err := util.RandomHex(6)
		if err != nil {
			return fmt.Errorf("failed to generate shop id: %w", err)
		}
		apiKey, err := util.RandomHex(32)
		if err != nil {
			return fmt.Errorf("failed to generate api key: %w", err)
		}
		shop := &storage.Shop{
			ShopID:     "shop-" + shopID,
			SiteURL:    siteURL,
			SiteName:   provisionSiteName,
			AdminEmail: provisionAdminEmail,
			APIKey:     apiKey,
			CreatedAt:  time.Now().UTC(),
		}
		if err := repo.CreateShop(ctx, shop); err != nil {
			return fmt.Errorf("failed to create shop: %w", err)
		}

		fmt.Printf("Shop registered:\n  shop_id: %s\n  api_key: %s\n", shop.ShopID, shop.APIKey)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(provisionCmd)
	provisionCmd.Flags().StringVar(&provisionSiteName, "name", "", "Display name for the shop")
	provisionCmd.Flags().StringVar(&provisionAdminEmail, "email", "", "Administrator contact email")
}
