package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	grpcapi "mission-telemetry/app/src/api/grpc"
	"mission-telemetry/app/src/core"
	"mission-telemetry/app/src/database"
	"mission-telemetry/app/src/domain"
	"mission-telemetry/app/src/infra"
	_ "mission-telemetry/app/src/infra/utils/autoload"
	"mission-telemetry/app/src/shared/constants"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

var feedFlags struct {
	missionID   int64
	target      string
	workers     int
	interval    time.Duration
	metricsPort string
	latitude    float64
	longitude   float64
}

var rootCmd = &cobra.Command{
	Use:          "feeder",
	Short:        "Stream simulated balloon telemetry into a live mission",
	Long:         "feeder attaches to the newest unstarted realtime mission (or --mission) and appends\none generated sensor reading per interval until the mission is closed.",
	SilenceUsage: true,
	RunE:         runFeed,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	f := rootCmd.Flags()
	f.Int64Var(&feedFlags.missionID, "mission", 0, "mission id to feed (default: FEED_MISSION_ID or the current live mission)")
	f.StringVar(&feedFlags.target, "target", "", "gRPC address of a running service; empty writes to storage directly")
	f.IntVar(&feedFlags.workers, "workers", 1, "number of concurrent writers")
	f.DurationVar(&feedFlags.interval, "interval", 0, "time between readings (default: FEED_INTERVAL_MS)")
	f.StringVar(&feedFlags.metricsPort, "metrics-port", "", "expose Prometheus metrics on this port")
	f.Float64Var(&feedFlags.latitude, "lat", 38.7223, "launch latitude")
	f.Float64Var(&feedFlags.longitude, "lon", -9.1393, "launch longitude")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// feedTarget is where generated readings are written.
type feedTarget interface {
	core.RecordAppender
	core.LiveMissionFinder
}

func runFeed(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := infra.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := infra.NewLogger(os.Stdout, "feeder")
	infra.StartMetricsServer(feedFlags.metricsPort, logger)

	target, closeTarget, err := openTarget(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeTarget()

	configured, err := configuredMission(cfg)
	if err != nil {
		return err
	}
	missionID, err := core.ResolveFeedMission(ctx, target, configured)
	if err != nil {
		return fmt.Errorf("resolve mission: %w", err)
	}

	interval := feedFlags.interval
	if interval <= 0 {
		interval = time.Duration(cfg.FeedIntervalMS) * time.Millisecond
	}
	logger.Printf(ctx, "feeding mission %d every %s with %d workers", missionID, interval, feedFlags.workers)

	err = feed(ctx, target, missionID, core.GeneratorConfig{
		Interval:  interval,
		Latitude:  feedFlags.latitude,
		Longitude: feedFlags.longitude,
	}, feedFlags.workers, logger)
	switch {
	case errors.Is(err, domain.ErrMissionClosed):
		logger.Printf(ctx, "mission %d closed, feed finished", missionID)
		return nil
	case err != nil:
		return err
	}
	logger.Println(ctx, "feed stopped")
	return nil
}

// feed runs the generator and the worker pool until ctx ends or the mission stops accepting
// readings. The pool's terminal error is returned.
func feed(ctx context.Context, target core.RecordAppender, missionID int64, genCfg core.GeneratorConfig, workers int, logger *infra.Logger) error {
	g, gctx := errgroup.WithContext(ctx)
	payloads := make(chan domain.Payload, 16)

	generator := core.NewGenerator(genCfg, logger.With("generator"))
	pool := core.NewWorkerPool(workers, missionID, target, logger.With("worker-pool"))

	g.Go(func() error {
		generator.Run(gctx, payloads)
		return nil
	})
	g.Go(func() error {
		return pool.Run(gctx, payloads)
	})
	return g.Wait()
}

func configuredMission(cfg infra.Config) (int64, error) {
	if feedFlags.missionID > 0 {
		return feedFlags.missionID, nil
	}
	if cfg.FeedMissionID == "" {
		return 0, nil
	}
	id, err := constants.ParseID(cfg.FeedMissionID)
	if err != nil {
		return 0, fmt.Errorf("FEED_MISSION_ID: %w", err)
	}
	return id, nil
}

func openTarget(ctx context.Context, cfg infra.Config, logger *infra.Logger) (feedTarget, func(), error) {
	if feedFlags.target != "" {
		conn, err := grpc.NewClient(feedFlags.target, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return nil, nil, fmt.Errorf("dial %s: %w", feedFlags.target, err)
		}
		logger.Printf(ctx, "writing through gRPC service at %s", feedFlags.target)
		return grpcapi.NewClient(conn), func() { _ = conn.Close() }, nil
	}

	repo, cleanup, err := database.SetupRepository(ctx, cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("setup storage: %w", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	service := core.NewService(repo, core.NewTimestampNormalizer(loc), core.StoreConfig{Strict: cfg.StrictIsolation()}, logger.With("core"))
	return service, cleanup, nil
}
