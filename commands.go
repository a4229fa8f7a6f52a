package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cppla/madickblog/config"
	"github.com/cppla/madickblog/routes"
	"github.com/cppla/madickblog/service"
	"github.com/cppla/madickblog/store"
	"github.com/cppla/madickblog/utils"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default store from configuration)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if err := utils.InitLogger(cfg); err != nil {
				return err
			}
			defer func() { _ = utils.Logger.Sync() }()

			primary, err := openStore(cfg)
			if err != nil {
				return err
			}
			closers := []func() error{primary.Close}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if cfg.StoreDriver == config.StoreDriverMemory {
				// Process-scoped store: start from the same fixtures as `seed`.
				if _, err := store.Seed(ctx, primary, seedOptions(cfg, 0)); err != nil {
					return fmt.Errorf("seed memory store: %w", err)
				}
			}
			defaultUser, err := primary.EnsureDefaultUser(ctx, cfg.DefaultUserEmail, cfg.DefaultUserName)
			if err != nil {
				return fmt.Errorf("ensure default user: %w", err)
			}

			opts := service.Options{
				Attribution:   service.AttributionMode(cfg.AttributionMode),
				DefaultUserID: defaultUser.ID,
				Categories:    cfg.Categories,
				Logger:        utils.Logger,
			}
			if cfg.StoreDriver == config.StoreDriverDatabase && cfg.StoreFallback {
				fallback, err := store.NewMemoryStore()
				if err != nil {
					return err
				}
				closers = append(closers, fallback.Close)
				if _, err := store.Seed(ctx, fallback, seedOptions(cfg, 0)); err != nil {
					return fmt.Errorf("seed fallback store: %w", err)
				}
				opts.Fallback = fallback
			}

			if rc := utils.InitRedis(cfg); rc != nil {
				closers = append(closers, rc.Close)
			}

			engine := service.NewEngine(primary, opts)
			r := routes.SetupRouter(routes.Deps{Config: cfg, Engine: engine})

			utils.Logger.Info("starting server",
				zap.String("port", cfg.AppPort),
				zap.String("store", primary.Name()),
				zap.String("attribution", cfg.AttributionMode),
				zap.Bool("fallback", opts.Fallback != nil),
			)
			return utils.GraceServer(":"+cfg.AppPort, r, closers...)
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := config.OpenDatabase(cfg, zap.NewStdLog(utils.Logger))
			if err != nil {
				return err
			}
			if err := config.Migrate(db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			utils.Logger.Info("schema migrated", zap.String("driver", cfg.DBDriver))
			if sqlDB, err := db.DB(); err == nil {
				return sqlDB.Close()
			}
			return nil
		},
	}
}

func seedCmd() *cobra.Command {
	var fake, maxComments int
	var randSeed int64
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Ensure the default user and welcome post, optionally adding fake content",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.StoreDriver == config.StoreDriverMemory {
				return fmt.Errorf("seed needs a database store; the memory store is seeded on serve")
			}
			s, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			opts := seedOptions(cfg, fake)
			opts.MaxComments = maxComments
			opts.RandSeed = randSeed
			res, err := store.Seed(cmd.Context(), s, opts)
			if err != nil {
				return err
			}
			utils.Logger.Info("seed complete",
				zap.Uint("default_user_id", res.DefaultUser.ID),
				zap.Int("posts", res.Posts),
				zap.Int("comments", res.Comments),
			)
			return nil
		},
	}
	cmd.Flags().IntVar(&fake, "fake", 0, "number of generated posts to add")
	cmd.Flags().IntVar(&maxComments, "max-comments", 5, "maximum generated comments per post")
	cmd.Flags().Int64Var(&randSeed, "rand-seed", 0, "seed for generated content (0 uses the clock)")
	return cmd
}

// loadConfig reads configuration for the maintenance commands, which do not need a JWT
// secret.
func loadConfig() (config.AppConfig, error) {
	cfg, err := config.LoadFrom(filepath.Join("config", "config.json"))
	if err != nil {
		return cfg, err
	}
	return cfg, utils.InitLogger(cfg)
}

// openStore opens the configured system of record. Database stores are migrated on
// open.
func openStore(cfg config.AppConfig) (store.Store, error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		return store.NewMemoryStore()
	}
	db, err := config.OpenDatabase(cfg, zap.NewStdLog(utils.Logger))
	if err != nil {
		return nil, err
	}
	if err := config.Migrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return store.NewGormStore(db), nil
}

func seedOptions(cfg config.AppConfig, fake int) store.SeedOptions {
	return store.SeedOptions{
		DefaultUserEmail: cfg.DefaultUserEmail,
		DefaultUserName:  cfg.DefaultUserName,
		Categories:       cfg.Categories,
		FakePosts:        fake,
	}
}
