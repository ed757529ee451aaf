package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"mission-telemetry/app/src/infra"
)

const defaultMigrationsDir = "app/resources/db/migrations"

// ResolveMigrationsDir returns the directory containing SQL migrations.
// MIGRATIONS_DIR wins over the bundled default.
func ResolveMigrationsDir() string {
	if dir := strings.TrimSpace(os.Getenv("MIGRATIONS_DIR")); dir != "" {
		return dir
	}
	return defaultMigrationsDir
}

// ListMigrations returns the .sql files of dir in lexical order.
func ListMigrations(dir string) ([]string, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("migrations directory is not specified")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations directory %q: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

// ApplyMigrations executes every migration in dir through runner, in lexical order.
// Migrations must be idempotent; there is no applied-version bookkeeping.
func ApplyMigrations(ctx context.Context, runner CommandRunner, dsn, dir string, logger *infra.Logger) error {
	names, err := ListMigrations(dir)
	if err != nil {
		return err
	}

	if len(names) == 0 {
		if logger != nil {
			logger.Printf(ctx, "no migrations found in %s", dir)
		}
		return nil
	}

	for _, name := range names {
		contents, readErr := os.ReadFile(filepath.Join(dir, name))
		if readErr != nil {
			return fmt.Errorf("read migration %q: %w", name, readErr)
		}

		statements := strings.TrimSpace(string(contents))
		if statements == "" {
			if logger != nil {
				logger.Printf(ctx, "skipping empty migration %s", name)
			}
			continue
		}

		if logger != nil {
			logger.Printf(ctx, "applying migration %s", name)
		}

		if _, execErr := runner.Exec(ctx, dsn, "", statements); execErr != nil {
			return fmt.Errorf("apply migration %q: %w", name, execErr)
		}
	}

	if logger != nil {
		logger.Printf(ctx, "%d migrations applied", len(names))
	}

	return nil
}
