package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	grpcapi "mission-telemetry/app/src/api/grpc"
	httpapi "mission-telemetry/app/src/api/http"
	"mission-telemetry/app/src/domain"
	"mission-telemetry/app/src/infra"
	_ "mission-telemetry/app/src/infra/utils/autoload"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, cleanup, err := initApplication(ctx, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise application: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	cfg := app.Config
	logger := app.Logger

	infra.LogConfig(ctx, logger, cfg)
	infra.StartMetricsServer(cfg.MetricsPort, logger)
	if cfg.MetricsPort != "" {
		logger.Printf(ctx, "metrics server listening on :%s", cfg.MetricsPort)
	}

	if err := serve(ctx, app); err != nil {
		logger.Errorf(ctx, "server error: %v", err)
		cleanup()
		os.Exit(1)
	}

	logger.Println(ctx, "server stopped")
}

// serve runs the HTTP and gRPC transports until ctx ends or one of them fails.
func serve(ctx context.Context, app *application) error {
	cfg := app.Config
	logger := app.Logger

	httpServer := newHTTPServer(cfg, app.Service, logger)
	httpListener, err := net.Listen("tcp", httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on HTTP port %s: %w", cfg.HTTPPort, err)
	}

	grpcServer := grpcapi.NewServer(app.Service, logger.With("grpc"))
	grpcListener, err := net.Listen("tcp", fmt.Sprintf(":%s", cfg.GRPCPort))
	if err != nil {
		_ = httpListener.Close()
		return fmt.Errorf("listen on gRPC port %s: %w", cfg.GRPCPort, err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Printf(ctx, "HTTP server listening on %s", httpListener.Addr())
		if err := httpServer.Serve(httpListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		logger.Printf(ctx, "gRPC server listening on %s", grpcListener.Addr())
		if err := grpcServer.Serve(grpcListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf(ctx, "HTTP server shutdown error: %v", err)
		}
		grpcServer.GracefulStop()
		return nil
	})

	return g.Wait()
}

func newHTTPServer(cfg infra.Config, service domain.MissionService, logger *infra.Logger) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:           httpapi.NewServer(service, logger.With("http"), int64(cfg.MaxBodyBytes)),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
