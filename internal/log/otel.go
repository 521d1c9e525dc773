package log

import (
	"context"
	"log/slog"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
)

// WithTelemetry returns a logger that writes to logger and also emits every
// record through the global OpenTelemetry logger provider.
func WithTelemetry(logger *slog.Logger, scope string) *slog.Logger {
	return slog.New(&teeHandler{
		primary: logger.Handler(),
		otel:    &otelHandler{logger: global.Logger(scope)},
	})
}

// teeHandler forwards records to the primary handler and, at the primary's
// level, to OpenTelemetry.
type teeHandler struct {
	primary slog.Handler
	otel    *otelHandler
}

func (h *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.primary.Enabled(ctx, level)
}

func (h *teeHandler) Handle(ctx context.Context, r slog.Record) error {
	h.otel.Handle(ctx, r)
	return h.primary.Handle(ctx, r)
}

func (h *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &teeHandler{primary: h.primary.WithAttrs(attrs), otel: h.otel.withAttrs(attrs)}
}

func (h *teeHandler) WithGroup(name string) slog.Handler {
	return &teeHandler{primary: h.primary.WithGroup(name), otel: h.otel.withGroup(name)}
}

type otelHandler struct {
	logger otellog.Logger
	attrs  []otellog.KeyValue
	prefix string
}

func (h *otelHandler) Handle(ctx context.Context, r slog.Record) {
	var rec otellog.Record
	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	rec.SetTimestamp(ts)
	rec.SetBody(otellog.StringValue(r.Message))
	rec.SetSeverity(severity(r.Level))
	rec.SetSeverityText(r.Level.String())
	rec.AddAttributes(h.attrs...)
	r.Attrs(func(a slog.Attr) bool {
		rec.AddAttributes(h.convert(a))
		return true
	})
	h.logger.Emit(ctx, rec)
}

func (h *otelHandler) withAttrs(attrs []slog.Attr) *otelHandler {
	next := &otelHandler{logger: h.logger, prefix: h.prefix}
	next.attrs = append([]otellog.KeyValue{}, h.attrs...)
	for _, a := range attrs {
		next.attrs = append(next.attrs, h.convert(a))
	}
	return next
}

func (h *otelHandler) withGroup(name string) *otelHandler {
	return &otelHandler{logger: h.logger, attrs: h.attrs, prefix: h.prefix + name + "."}
}

func (h *otelHandler) convert(a slog.Attr) otellog.KeyValue {
	key := h.prefix + a.Key
	v := a.Value.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return otellog.String(key, v.String())
	case slog.KindInt64:
		return otellog.Int64(key, v.Int64())
	case slog.KindUint64:
		return otellog.Int64(key, int64(v.Uint64()))
	case slog.KindFloat64:
		return otellog.Float64(key, v.Float64())
	case slog.KindBool:
		return otellog.Bool(key, v.Bool())
	default:
		return otellog.String(key, v.String())
	}
}

func severity(level slog.Level) otellog.Severity {
	switch {
	case level >= slog.LevelError:
		return otellog.SeverityError
	case level >= slog.LevelWarn:
		return otellog.SeverityWarn
	case level >= slog.LevelInfo:
		return otellog.SeverityInfo
	default:
		return otellog.SeverityDebug
	}
}
