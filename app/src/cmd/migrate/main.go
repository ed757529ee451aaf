package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mission-telemetry/app/src/database"
	"mission-telemetry/app/src/infra"
	_ "mission-telemetry/app/src/infra/utils/autoload"

	"github.com/spf13/cobra"
)

var migrationsDir string

var rootCmd = &cobra.Command{
	Use:          "migrate",
	Short:        "Apply SQL migrations to the mission telemetry database",
	SilenceUsage: true,
	RunE:         runApply,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply every migration in lexical order (default)",
	RunE:  runApply,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the migration files that would be applied",
	RunE:  runList,
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Wait for the database and verify connectivity",
	RunE:  runCheck,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&migrationsDir, "dir", database.ResolveMigrationsDir(), "directory with SQL migration files")
	rootCmd.AddCommand(applyCmd, listCmd, checkCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// ----------------------------
// Вспомогательные функции
// ----------------------------

func runApply(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg, logger, err := initEnvironment()
	if err != nil {
		return err
	}

	if err := checkDatabaseConnection(ctx, cfg, logger); err != nil {
		return err
	}
	return runMigrations(ctx, cfg, logger, migrationsDir)
}

func runList(cmd *cobra.Command, _ []string) error {
	names, err := database.ListMigrations(migrationsDir)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, name := range names {
		fmt.Fprintln(out, name)
	}
	fmt.Fprintf(out, "%d migrations in %s\n", len(names), migrationsDir)
	return nil
}

func runCheck(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := initEnvironment()
	if err != nil {
		return err
	}
	if !database.ShouldCheckDatabase(cfg) {
		return fmt.Errorf("no database configured: set DB_DSN or DB_HOST/DB_PORT")
	}
	if err := checkDatabaseConnection(cmd.Context(), cfg, logger); err != nil {
		return err
	}

	dsn, err := database.BuildDatabaseDSN(cfg)
	if err != nil {
		return err
	}
	db, err := database.Connect(&database.Config{DSN: dsn})
	if err != nil {
		return err
	}
	_ = db.Close()

	fmt.Fprintln(cmd.OutOrStdout(), "database is reachable")
	return nil
}

// initEnvironment загружает конфигурацию и логгер.
func initEnvironment() (infra.Config, *infra.Logger, error) {
	cfg, err := infra.LoadConfig()
	if err != nil {
		return infra.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, infra.NewLogger(os.Stdout, "migrate"), nil
}

// checkDatabaseConnection выполняет проверку соединения с БД.
func checkDatabaseConnection(ctx context.Context, cfg infra.Config, logger *infra.Logger) error {
	if !database.ShouldCheckDatabase(cfg) {
		return nil
	}
	waitCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := database.WaitForDatabase(waitCtx, cfg, logger); err != nil {
		return fmt.Errorf("database connectivity check failed: %w", err)
	}
	return nil
}

// runMigrations строит DSN, создаёт runner и применяет миграции.
func runMigrations(ctx context.Context, cfg infra.Config, logger *infra.Logger, dir string) error {
	dsn, err := database.BuildDatabaseDSN(cfg)
	if err != nil {
		return fmt.Errorf("failed to build database DSN: %w", err)
	}

	runner := database.NewSQLRunner()
	defer runner.Close()

	if err := database.ApplyMigrations(ctx, runner, dsn, dir, logger); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
