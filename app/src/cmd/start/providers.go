package main

import (
	"context"
	"io"

	"mission-telemetry/app/src/core"
	"mission-telemetry/app/src/database"
	"mission-telemetry/app/src/domain"
	"mission-telemetry/app/src/infra"
)

func provideConfig() (infra.Config, error) {
	return infra.LoadConfig()
}

func provideServiceName() string {
	return "mission-telemetry"
}

func provideLogger(out io.Writer, serviceName string) *infra.Logger {
	return infra.NewLogger(out, serviceName)
}

func provideNormalizer(cfg infra.Config) (*core.TimestampNormalizer, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	return core.NewTimestampNormalizer(loc), nil
}

func provideStoreConfig(cfg infra.Config) core.StoreConfig {
	return core.StoreConfig{Strict: cfg.StrictIsolation()}
}

func provideMissionService(repo domain.Repository, normalizer *core.TimestampNormalizer, storeCfg core.StoreConfig, logger *infra.Logger) domain.MissionService {
	return core.NewService(repo, normalizer, storeCfg, logger.With("core"))
}

func provideRepository(ctx context.Context, cfg infra.Config, logger *infra.Logger) (domain.Repository, func(), error) {
	if database.ShouldCheckDatabase(cfg) {
		if err := database.WaitForDatabase(ctx, cfg, logger); err != nil {
			logger.Errorf(ctx, "database connectivity check failed: %v", err)
		} else {
			logger.Println(ctx, "database connectivity check succeeded")
		}
	} else if cfg.StorageDriver != infra.StorageDriverMemory {
		logger.Println(ctx, "database connectivity check skipped (no DSN or host/port configured)")
	}

	return database.SetupRepository(ctx, cfg, logger)
}
