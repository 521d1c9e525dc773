package nowplaying

import (
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

const (
	otelScope         = "marquee/nowplaying"
	metricPages       = "marquee.sync.pages.fetched"
	metricAdded       = "marquee.sync.movies.added"
	metricInvalidated = "marquee.sync.invalidations"
	metricErrors      = "marquee.sync.errors"
	metricDuration    = "marquee.sync.duration"
)

// instruments are always non-nil (no-op when telemetry is disabled)
type instruments struct {
	tracer         trace.Tracer
	cntPages       metric.Int64Counter
	cntAdded       metric.Int64Counter
	cntInvalidated metric.Int64Counter
	cntErrors      metric.Int64Counter
	histDuration   metric.Float64Histogram
}

func newInstruments(logger *slog.Logger) instruments {
	meter := otel.Meter(otelScope)

	mustCounter := func(name, desc string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(desc))
		if err != nil {
			logger.Error("creating OTel counter", "name", name, "error", err)
			return noop.Int64Counter{}
		}
		return c
	}

	hist, err := meter.Float64Histogram(metricDuration,
		metric.WithDescription("Duration of sync operations"),
		metric.WithUnit("s"))
	if err != nil {
		logger.Error("creating OTel histogram", "name", metricDuration, "error", err)
		hist = noop.Float64Histogram{}
	}

	return instruments{
		tracer:         otel.Tracer(otelScope),
		cntPages:       mustCounter(metricPages, "Number of remote pages fetched"),
		cntAdded:       mustCounter(metricAdded, "Number of movies inserted into the cache"),
		cntInvalidated: mustCounter(metricInvalidated, "Number of times the cache was discarded and rebuilt"),
		cntErrors:      mustCounter(metricErrors, "Number of failed sync operations"),
		histDuration:   hist,
	}
}
