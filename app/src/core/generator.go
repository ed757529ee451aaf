package core

import (
	"context"
	"math"
	"math/rand"
	"time"

	"mission-telemetry/app/src/domain"
	"mission-telemetry/app/src/infra"
	"mission-telemetry/app/src/shared/constants"
)

type GeneratorConfig struct {
	Interval   time.Duration
	RandSource rand.Source
	Now        func() time.Time
	// Origin is the launch position the simulated track starts from.
	Latitude  float64
	Longitude float64
}

// Generator emits simulated sensor payloads shaped like the balloon telemetry the dashboard reads.
type Generator struct {
	cfg    GeneratorConfig
	logger Logger
	rnd    *rand.Rand

	tick        int
	temperature float64
	pressure    float64
	humidity    float64
	altitude    float64
	latitude    float64
	longitude   float64
}

func NewGenerator(cfg GeneratorConfig, logger Logger) *Generator {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	source := cfg.RandSource
	if source == nil {
		source = rand.NewSource(time.Now().UnixNano())
	}
	cfg.RandSource = source

	return &Generator{
		cfg:         cfg,
		logger:      logger,
		rnd:         rand.New(source),
		temperature: 21,
		pressure:    1013.25,
		humidity:    45,
		latitude:    cfg.Latitude,
		longitude:   cfg.Longitude,
	}
}

func (g *Generator) Run(ctx context.Context, out chan<- domain.Payload) {
	defer close(out)

	ticker := time.NewTicker(g.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			g.log(ctx, "generator: остановлен (context cancelled): %v", ctx.Err())
			return
		case <-ticker.C:
		}

		payload := g.Next()
		infra.IncFeedPackets()

		if !g.send(ctx, out, payload) {
			return
		}
	}
}

// Next advances the simulation by one step and returns the resulting payload.
func (g *Generator) Next() domain.Payload {
	g.tick++

	climb := 4 + g.rnd.Float64()*2
	g.altitude += climb
	// Standard atmosphere: about -6.5 °C per km, pressure falling exponentially with height.
	g.temperature = 21 - 0.0065*g.altitude + g.rnd.NormFloat64()*0.2
	g.pressure = 1013.25 * math.Exp(-g.altitude/8434)
	g.humidity = clamp(g.humidity+g.rnd.NormFloat64(), 0, 100)
	g.latitude += g.rnd.NormFloat64() * 0.0001
	g.longitude += 0.00005 + g.rnd.NormFloat64()*0.0001

	return domain.Payload{
		domain.TimestampField: g.cfg.Now().UTC().Format(constants.TimeFormat),
		"temperature_c":       round(g.temperature, 2),
		"pressure_hpa":        round(g.pressure, 2),
		"humidity_percent":    round(g.humidity, 1),
		"altitude_m":          round(g.altitude, 1),
		"latitude":            round(g.latitude, 6),
		"longitude":           round(g.longitude, 6),
		"sequence":            g.tick,
	}
}

func (g *Generator) send(ctx context.Context, out chan<- domain.Payload, payload domain.Payload) bool {
	select {
	case <-ctx.Done():
		g.log(ctx, "generator: остановка перед отправкой пакета: %v", ctx.Err())
		return false
	case out <- payload:
		return true
	}
}

func (g *Generator) log(ctx context.Context, format string, v ...any) {
	if g.logger != nil {
		g.logger.Printf(ctx, format, v...)
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
