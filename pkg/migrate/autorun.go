package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/cartd/pkg/config"
	"github.com/angelmondragon/cartd/pkg/db"
	"github.com/angelmondragon/cartd/pkg/db/models"
	"github.com/angelmondragon/cartd/pkg/logger"
)

// MaybeRunDev executes migrations automatically when the app is running in dev mode and
// the feature flag is enabled. SQLite databases are migrated from the gorm models.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "sqlite": cfg.FeatureFlags.UseSQLite})

	if cfg.FeatureFlags.UseSQLite {
		logg.Info(ctx, "running gorm auto-migrate (sqlite)")
		if err := AutoMigrateModels(client); err != nil {
			return err
		}
		logg.Info(ctx, "gorm auto-migrate completed")
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	logg.Info(ctx, "running Goose migrations (dev auto-run)")
	if err := Run(ctx, sqlDB, "up"); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}
	logg.Info(ctx, "Goose migrations completed")
	return nil
}

// AutoMigrateModels creates the cart tables from the gorm models.
func AutoMigrateModels(client *db.Client) error {
	if client == nil {
		return fmt.Errorf("db client is required")
	}
	if err := client.DB().AutoMigrate(&models.ProductSku{}, &models.CartItem{}, &models.CartSnapshot{}); err != nil {
		return fmt.Errorf("auto-migrate cart models: %w", err)
	}
	return nil
}
