package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"timed-quiz-service/internal/config"
	"timed-quiz-service/internal/infra/postgres"
	"timed-quiz-service/internal/seed"
)

// NewSeedCmd loads the built-in question bank into an empty database.
func NewSeedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Seed questions and round timers if the database is empty",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer logger.Sync()
			if err := runMigrationsWithConfig(cmd.Context(), cfg, logger); err != nil {
				return err
			}
			return runSeedWithConfig(cmd.Context(), cfg, logger)
		},
	}
}

func runSeedWithConfig(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}
	db := postgres.OpenDB(cfg.Postgres.URL)
	defer db.Close()

	seeded, err := postgres.SeedCatalog(ctx, db, seed.Catalog())
	if err != nil {
		return err
	}
	if seeded {
		logger.Info("question bank seeded", zap.Int("questions", len(seed.Questions())))
	} else {
		logger.Info("question bank already present, seeding skipped")
	}
	return nil
}
