package api

import (
	"context"
	"fmt"
	"time"

	"github.com/alecthomas/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/spotify/android-store-service/internal/observability"
)

const (
	apiMeterName          = "android_store.api"
	methodAttribute       = "http.request.method"
	statusCodeAttribute   = "http.response.status_code"
	statusClassAttribute  = "http.response.status_class"
	unmatchedRoutePattern = "unmatched"
)

type Metrics struct {
	requests metric.Int64Counter
	errors   metric.Int64Counter
	duration metric.Int64Histogram
}

// NoopMetrics records nothing.
func NoopMetrics() *Metrics {
	return &Metrics{
		requests: noop.Int64Counter{},
		errors:   noop.Int64Counter{},
		duration: noop.Int64Histogram{},
	}
}

func NewMetrics(provider metric.MeterProvider) (*Metrics, error) {
	result := NoopMetrics()
	var err error
	meter := provider.Meter(apiMeterName)

	signalName := fmt.Sprintf("%s.requests", apiMeterName)
	if result.requests, err = meter.Int64Counter(
		signalName,
		metric.WithDescription("counts handled requests")); err != nil {
		return nil, errors.Wrapf(err, "failed to create %q signal", signalName)
	}

	signalName = fmt.Sprintf("%s.errors", apiMeterName)
	if result.errors, err = meter.Int64Counter(
		signalName,
		metric.WithDescription("counts requests answered with a 4xx or 5xx status")); err != nil {
		return nil, errors.Wrapf(err, "failed to create %q signal", signalName)
	}

	signalName = fmt.Sprintf("%s.duration", apiMeterName)
	if result.duration, err = meter.Int64Histogram(
		signalName,
		metric.WithDescription("duration of handled requests"),
		metric.WithUnit("ms")); err != nil {
		return nil, errors.Wrapf(err, "failed to create %q signal", signalName)
	}
	return result, nil
}

func (m *Metrics) requestFinished(ctx context.Context, method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = unmatchedRoutePattern
	}
	attrs := []attribute.KeyValue{
		attribute.String(methodAttribute, method),
		attribute.String(observability.RouteAttribute, route),
		attribute.String(statusClassAttribute, fmt.Sprintf("%dxx", status/100)),
		attribute.String(observability.OutcomeStatusNameAttribute, observability.SuccessOrFailureStatus(status < 400)),
	}
	m.requests.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.duration.Record(ctx, elapsed.Milliseconds(), metric.WithAttributes(attrs...))
	if status >= 400 {
		m.errors.Add(ctx, 1, metric.WithAttributes(append(attrs, attribute.Int(statusCodeAttribute, status))...))
	}
}
