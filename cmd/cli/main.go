package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/aryan0dhankhar/teamspace/internal/app"
	"github.com/aryan0dhankhar/teamspace/internal/infrastructure/logger"
	"github.com/aryan0dhankhar/teamspace/pkg/config"
)

// env is what every subcommand runs against.
type env struct {
	cfg     *config.Config
	log     *slog.Logger
	svc     *app.Services
	migrate func(ctx context.Context) error
	close   func() error
}

type openFunc func(ctx context.Context) (*env, error)

func main() {
	if err := newRootCommand(openFromConfig, os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

// openFromConfig connects to the database described by the environment.
func openFromConfig(ctx context.Context) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	log := logger.NewLogger(cfg.LogLevel)

	pool, err := app.OpenDatabase(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	return newEnv(cfg, log, pool.Gorm(), pool.Migrate, pool.Close), nil
}

func newEnv(cfg *config.Config, log *slog.Logger, db *gorm.DB, migrate func(context.Context) error, closeFn func() error) *env {
	return &env{
		cfg:     cfg,
		log:     log,
		svc:     app.NewServices(db, cfg, log),
		migrate: migrate,
		close:   closeFn,
	}
}

func newRootCommand(open openFunc, out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:          "teamctl",
		Short:        "Administer teamspace users, teams and the model catalog",
		SilenceUsage: true,
	}
	root.SetOut(out)

	// run opens the environment, runs fn and always releases the connection.
	run := func(fn func(ctx context.Context, e *env) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			e, err := open(ctx)
			if err != nil {
				return err
			}
			defer func() {
				if e.close != nil {
					_ = e.close()
				}
			}()
			return fn(ctx, e)
		}
	}

	root.AddCommand(
		newMigrateCommand(run),
		newUserCommand(run, out),
		newCatalogCommand(run, out),
		newTeamCommand(run, out),
	)
	return root
}

type runner func(fn func(ctx context.Context, e *env) error) func(*cobra.Command, []string) error

func newMigrateCommand(run runner) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, e *env) error {
			return e.migrate(ctx)
		}),
	}
}
