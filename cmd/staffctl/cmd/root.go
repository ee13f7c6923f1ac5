package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/studio-ops/studio-erp/internal/config"
	"github.com/studio-ops/studio-erp/internal/persistence"
	"github.com/studio-ops/studio-erp/internal/repository"
	"github.com/studio-ops/studio-erp/internal/service"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "staffctl",
	Short: "Studio ERP staff administration",
	Long: `staffctl provisions staff accounts directly against the studio database and
inspects the access policy. Use it to bootstrap the first admin.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log database activity")
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(deactivateCmd)
	rootCmd.AddCommand(policyCmd)
}

// staffService opens the database and returns a service plus its cleanup.
func staffService(ctx context.Context) (*service.StaffService, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger := zap.NewNop()
	if verbose {
		if logger, err = zap.NewDevelopment(); err != nil {
			return nil, nil, err
		}
	}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	if pg.PoolHandle() == nil {
		return nil, nil, fmt.Errorf("POSTGRES_DSN is required")
	}
	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			pg.Close()
			return nil, nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	repo := repository.NewStaffRepository(pg.PoolHandle())
	return service.NewStaffService(repo, nil, cfg.Auth.BcryptCost, logger), pg.Close, nil
}
