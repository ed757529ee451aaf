package main

import (
	"mission-telemetry/app/src/domain"
	"mission-telemetry/app/src/infra"
)

type application struct {
	Config  infra.Config
	Logger  *infra.Logger
	Service domain.MissionService
}

func newApplication(cfg infra.Config, logger *infra.Logger, service domain.MissionService) *application {
	return &application{
		Config:  cfg,
		Logger:  logger,
		Service: service,
	}
}
