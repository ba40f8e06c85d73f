package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	gormlogger "gorm.io/gorm/logger"

	"volunteerverse/pkg/db"
	"volunteerverse/services/web/internal/config"
	"volunteerverse/services/web/internal/store"
)

func main() {
	_ = godotenv.Load()

	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "vvctl",
		Short:         "Operator utility for VolunteerVerse",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newMigrateCommand())
	cmd.AddCommand(newUsersCommand())
	cmd.AddCommand(newExportCommand())
	return cmd
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func cliLogger() zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Str("service", "vvctl").Logger()
}

func openPool(ctx context.Context) (*pgxpool.Pool, config.CLI, error) {
	cfg, err := config.LoadCLI(ctx)
	if err != nil {
		return nil, config.CLI{}, fmt.Errorf("load config: %w", err)
	}
	pool, err := db.Open(ctx, cfg.DBDSN)
	if err != nil {
		return nil, config.CLI{}, fmt.Errorf("connect database: %w", err)
	}
	return pool, cfg, nil
}

// openStore connects to the database. The returned func closes the pool.
func openStore(ctx context.Context) (*store.Store, config.CLI, func(), error) {
	pool, cfg, err := openPool(ctx)
	if err != nil {
		return nil, config.CLI{}, nil, err
	}
	orm, err := db.OpenORM(pool, gormlogger.Warn)
	if err != nil {
		pool.Close()
		return nil, config.CLI{}, nil, fmt.Errorf("open orm: %w", err)
	}
	st, err := store.New(pool, orm)
	if err != nil {
		pool.Close()
		return nil, config.CLI{}, nil, err
	}
	return st, cfg, pool.Close, nil
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			pool, _, err := openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := db.Migrate(ctx, pool); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}
