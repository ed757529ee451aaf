// Package autoload reads .env from the working directory on import.
package autoload

import (
	"context"
	"os"

	"mission-telemetry/app/src/infra"
	"mission-telemetry/app/src/infra/utils/dotenv"
)

func init() {
	if err := dotenv.Load(); err != nil {
		infra.NewLogger(os.Stderr, "autoload").Errorf(context.Background(), "dotenv autoload: %v", err)
	}
}
