package infra

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	// Transport metrics
	HttpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP and gRPC requests",
	}, []string{"transport"})
	HttpRequestErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_request_errors_total",
		Help: "Total number of HTTP and gRPC request errors",
	}, []string{"transport"})
	ProcessingDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "telemetry_processing_duration_seconds",
		Help:    "Duration of request processing in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"transport", "route"})

	// Ingestion metrics
	RecordsIngestedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "telemetry_records_ingested_total",
		Help: "Total number of telemetry records persisted",
	}, []string{"mode"})
	TimestampsUnparseableTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "telemetry_timestamps_unparseable_total",
		Help: "Records imported whose timestamp could not be normalized",
	})
	ImportBatchesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "telemetry_import_batches_total",
		Help: "Total number of batch imports accepted",
	})
	IngestRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "telemetry_ingest_rejected_total",
		Help: "Ingestion requests rejected before persistence",
	}, []string{"reason"})
	MissionsStartedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "telemetry_missions_started_total",
		Help: "Realtime missions whose start date was set by the first record",
	})

	// Database metrics
	DbQueryDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "telemetry_db_query_duration_seconds",
		Help:    "Duration of database statements in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})

	// Feeder metrics
	FeedPacketsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "telemetry_feed_packets_total",
		Help: "Total number of packets produced by the live feed generator",
	})
	FeedWorkersActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "telemetry_feed_workers_active",
		Help: "Number of active feed worker goroutines",
	})

	// Per-method gRPC server metrics (grpc_server_started_total, grpc_server_handled_total, ...).
	// The library registers these on the default registry itself.
	GRPCServerMetrics = grpc_prometheus.DefaultServerMetrics

	registerOnce      sync.Once
	metricsServerOnce sync.Once
)

func init() {
	InitMetrics()
}

// InitMetrics registers all Prometheus collectors used by the application.
func InitMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			HttpRequestsTotal,
			HttpRequestErrorsTotal,
			ProcessingDurationSeconds,
			RecordsIngestedTotal,
			TimestampsUnparseableTotal,
			ImportBatchesTotal,
			IngestRejectedTotal,
			MissionsStartedTotal,
			DbQueryDurationSeconds,
			FeedPacketsTotal,
			FeedWorkersActive,
		)
	})
}

// Handler returns an HTTP handler that exposes the registered Prometheus metrics.
func Handler() http.Handler {
	InitMetrics()
	return promhttp.Handler()
}

// StartMetricsServer exposes Prometheus metrics on :<port>/metrics.
// An empty port disables the listener.
func StartMetricsServer(port string, logger *Logger) {
	InitMetrics()
	port = strings.TrimSpace(port)
	if port == "" {
		return
	}
	metricsServerOnce.Do(func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())

		go func() {
			if err := http.ListenAndServe(":"+port, mux); err != nil {
				if logger != nil {
					logger.Errorf(context.Background(), "metrics server error: %v", err)
				}
			}
		}()
	})
}

// HTTPMiddleware instruments HTTP handlers with request/latency metrics.
func HTTPMiddleware(pathResolver func(*http.Request) string) func(http.Handler) http.Handler {
	InitMetrics()
	if pathResolver == nil {
		pathResolver = func(r *http.Request) string {
			if r == nil {
				return "unknown"
			}
			return r.URL.Path
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r == nil {
				HttpRequestErrorsTotal.WithLabelValues("http").Inc()
				http.Error(w, "invalid request", http.StatusBadRequest)
				return
			}

			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()

			defer func() {
				ProcessingDurationSeconds.WithLabelValues("http", pathResolver(r)).Observe(time.Since(start).Seconds())
				HttpRequestsTotal.WithLabelValues("http").Inc()

				if recorder.Status() >= http.StatusBadRequest {
					HttpRequestErrorsTotal.WithLabelValues("http").Inc()
				}
			}()

			next.ServeHTTP(recorder, r)
		})
	}
}

// GRPCUnaryInterceptor instruments gRPC unary handlers with request/latency metrics.
func GRPCUnaryInterceptor() grpc.UnaryServerInterceptor {
	InitMetrics()
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
		start := time.Now()
		method := "unknown"
		if info != nil {
			method = info.FullMethod
		}

		defer func() {
			ProcessingDurationSeconds.WithLabelValues("grpc", method).Observe(time.Since(start).Seconds())
			HttpRequestsTotal.WithLabelValues("grpc").Inc()

			if status.Code(err) != codes.OK {
				HttpRequestErrorsTotal.WithLabelValues("grpc").Inc()
			}
		}()

		return handler(ctx, req)
	}
}

// InstrumentGRPCServer pre-creates the per-method series of every service registered on server.
func InstrumentGRPCServer(server *grpc.Server) {
	InitMetrics()
	if server != nil {
		GRPCServerMetrics.InitializeMetrics(server)
	}
}

// RecordIngested counts persisted records for the given mission mode.
func RecordIngested(mode string, n int) {
	InitMetrics()
	if n <= 0 {
		return
	}
	RecordsIngestedTotal.WithLabelValues(mode).Add(float64(n))
}

// RecordUnparseableTimestamps counts imported records without a usable timestamp.
func RecordUnparseableTimestamps(n int) {
	InitMetrics()
	if n <= 0 {
		return
	}
	TimestampsUnparseableTotal.Add(float64(n))
}

// RecordImportBatch counts an accepted batch import.
func RecordImportBatch() {
	InitMetrics()
	ImportBatchesTotal.Inc()
}

// RecordIngestRejected counts a request rejected for the given reason.
func RecordIngestRejected(reason string) {
	InitMetrics()
	IngestRejectedTotal.WithLabelValues(reason).Inc()
}

// RecordMissionStarted counts a realtime mission start transition.
func RecordMissionStarted() {
	InitMetrics()
	MissionsStartedTotal.Inc()
}

// ObserveDBQuery tracks the duration of one database statement.
func ObserveDBQuery(op string, duration time.Duration) {
	InitMetrics()
	if duration < 0 {
		duration = 0
	}
	DbQueryDurationSeconds.WithLabelValues(op).Observe(duration.Seconds())
}

// IncFeedPackets increments the feed generator packet counter.
func IncFeedPackets() {
	InitMetrics()
	FeedPacketsTotal.Inc()
}

// FeedWorkerStarted increments the active feed workers gauge.
func FeedWorkerStarted() {
	InitMetrics()
	FeedWorkersActive.Inc()
}

// FeedWorkerFinished decrements the active feed workers gauge.
func FeedWorkerFinished() {
	InitMetrics()
	FeedWorkersActive.Dec()
}

// statusRecorder captures the response status code for instrumentation.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Status() int {
	return r.status
}
