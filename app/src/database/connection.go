package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"mission-telemetry/app/src/database/memory"
	"mission-telemetry/app/src/domain"
	"mission-telemetry/app/src/infra"
	"mission-telemetry/app/src/infra/utils"
)

// Connect opens a pool for the migrate tool with the same sizing the repository uses and
// pings it before returning.
func Connect(cfg *Config) (*sql.DB, error) {
	if cfg == nil {
		return nil, errors.New("db: config is required")
	}
	if cfg.DSN == "" {
		return nil, errors.New("db: DSN is required")
	}

	db, err := openPool(context.Background(), cfg.DSN, DefaultPoolOptions())
	if err != nil {
		return nil, fmt.Errorf("db: %w", err)
	}
	return db, nil
}

// ShouldCheckDatabase determines if connectivity should be validated based on the config.
func ShouldCheckDatabase(cfg infra.Config) bool {
	if cfg.DatabaseDSN != "" {
		return true
	}
	return cfg.DatabaseHost != ""
}

// databaseAddress resolves host:port from the discrete settings, falling back to DB_DSN.
// An empty address means no database is configured.
func databaseAddress(cfg infra.Config) (string, error) {
	host, port := cfg.DatabaseHost, cfg.DatabasePort
	if (host == "" || port == "") && cfg.DatabaseDSN != "" {
		parsed, err := url.Parse(cfg.DatabaseDSN)
		if err != nil {
			return "", fmt.Errorf("invalid DB_DSN: %w", err)
		}
		host = utils.EmptyFallback(host, parsed.Hostname())
		port = utils.EmptyFallback(port, parsed.Port())
	}
	if host == "" {
		return "", nil
	}
	return net.JoinHostPort(host, utils.EmptyFallback(port, defaultPostgresPort)), nil
}

const (
	defaultPostgresPort = "5432"
	waitAttempts        = 6
	waitInitialBackoff  = 500 * time.Millisecond
	waitMaxBackoff      = 4 * time.Second
)

// WaitForDatabase dials Postgres with a doubling backoff until it accepts TCP connections,
// the attempts run out or ctx is done.
func WaitForDatabase(ctx context.Context, cfg infra.Config, logger *infra.Logger) error {
	address, err := databaseAddress(cfg)
	if err != nil || address == "" {
		return err
	}

	dialer := &net.Dialer{Timeout: 3 * time.Second}
	backoff := waitInitialBackoff
	for attempt := 1; ; attempt++ {
		conn, err := dialer.DialContext(ctx, "tcp", address)
		if err == nil {
			_ = conn.Close()
			return nil
		}
		if attempt == waitAttempts {
			return fmt.Errorf("database not reachable at %s after %d attempts: %w", address, attempt, err)
		}
		if logger != nil {
			logger.Errorf(ctx, "waiting for postgres at %s (attempt %d/%d): %v", address, attempt, waitAttempts, err)
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		backoff = min(backoff*2, waitMaxBackoff)
	}
}

// SetupRepository initialises the repository selected by STORAGE_DRIVER and its cleanup routine.
// The Postgres driver applies pending migrations first.
func SetupRepository(ctx context.Context, cfg infra.Config, logger *infra.Logger) (domain.Repository, func(), error) {
	if cfg.StorageDriver == infra.StorageDriverMemory {
		if logger != nil {
			logger.Println(ctx, "using in-memory storage; data is lost on exit")
		}
		repo := memory.New()
		return repo, func() { _ = repo.Close() }, nil
	}

	dsn, err := BuildDatabaseDSN(cfg)
	if err != nil {
		return nil, nil, err
	}

	if parsed, parseErr := url.Parse(dsn); parseErr == nil {
		host := parsed.Hostname()
		dbName := strings.TrimPrefix(parsed.Path, "/")
		user := parsed.User.Username()
		if logger != nil {
			logger.Printf(ctx, "connected to DSN host=%s db=%s user=%s", host, dbName, user)
		}
	} else if logger != nil {
		logger.Printf(ctx, "failed to parse DSN for logging: %v", parseErr)
	}

	runner := NewSQLRunner()
	if err := ApplyMigrations(ctx, runner, dsn, ResolveMigrationsDir(), logger); err != nil {
		_ = runner.Close()
		return nil, nil, err
	}

	repo, err := New(Config{
		DSN:         dsn,
		Runner:      runner,
		Logger:      logger,
		InsertChunk: cfg.RecordInsertChunk,
	})
	if err != nil {
		_ = runner.Close()
		return nil, nil, err
	}

	cleanup := func() {
		if err := repo.Close(); err != nil && logger != nil {
			logger.Errorf(ctx, "failed to close repository: %v", err)
		}
	}

	return repo, cleanup, nil
}

// BuildDatabaseDSN constructs a DSN from discrete configuration values when not provided explicitly.
func BuildDatabaseDSN(cfg infra.Config) (string, error) {
	if cfg.DatabaseDSN != "" {
		return cfg.DatabaseDSN, nil
	}

	if cfg.DatabaseHost == "" {
		return "", errors.New("database host is required when DSN is not provided")
	}
	if cfg.DatabaseUser == "" {
		return "", errors.New("database user is required when DSN is not provided")
	}
	if cfg.DatabaseName == "" {
		return "", errors.New("database name is required when DSN is not provided")
	}

	port := utils.EmptyFallback(cfg.DatabasePort, defaultPostgresPort)

	connectionURL := &url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(cfg.DatabaseHost, port),
		Path:   "/" + cfg.DatabaseName,
		User:   url.UserPassword(cfg.DatabaseUser, cfg.DatabasePassword),
	}

	query := connectionURL.Query()
	if query.Get("sslmode") == "" {
		query.Set("sslmode", "disable")
	}
	connectionURL.RawQuery = query.Encode()

	return connectionURL.String(), nil
}
