package publish

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
	publishMeterName    = "android_store.publish"
	fromStateAttribute  = "android_store.publish.state.from"
	destStateAttribute  = "android_store.publish.state.dest"
	publishOutcomeLabel = "android_store.publish.outcome"
)

// Outcome is how a publish run ended.
type Outcome string

const (
	OutcomeCommitted Outcome = "committed"
	OutcomeDryRun    Outcome = "dry_run"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeAborted   Outcome = "aborted"
)

type Metrics struct {
	runsActive  metric.Int64UpDownCounter
	transitions metric.Int64Counter
	outcomes    metric.Int64Counter
	binaries    metric.Int64Counter
	duration    metric.Int64Histogram
}

// NoopMetrics records nothing.
func NoopMetrics() *Metrics {
	return &Metrics{
		runsActive:  noop.Int64UpDownCounter{},
		transitions: noop.Int64Counter{},
		outcomes:    noop.Int64Counter{},
		binaries:    noop.Int64Counter{},
		duration:    noop.Int64Histogram{},
	}
}

func NewMetrics(provider metric.MeterProvider) (*Metrics, error) {
	result := NoopMetrics()
	var err error
	meter := provider.Meter(publishMeterName)

	signalName := fmt.Sprintf("%s.runs.active", publishMeterName)
	if result.runsActive, err = meter.Int64UpDownCounter(
		signalName,
		metric.WithDescription("counts the number of publish runs in progress")); err != nil {
		return nil, wrapErr(signalName, err)
	}

	signalName = fmt.Sprintf("%s.transitions", publishMeterName)
	if result.transitions, err = meter.Int64Counter(
		signalName,
		metric.WithDescription("counts publish state transitions")); err != nil {
		return nil, wrapErr(signalName, err)
	}

	signalName = fmt.Sprintf("%s.outcomes", publishMeterName)
	if result.outcomes, err = meter.Int64Counter(
		signalName,
		metric.WithDescription("counts finished publish runs by outcome")); err != nil {
		return nil, wrapErr(signalName, err)
	}

	signalName = fmt.Sprintf("%s.binaries.uploaded", publishMeterName)
	if result.binaries, err = meter.Int64Counter(
		signalName,
		metric.WithDescription("counts binaries accepted by the store")); err != nil {
		return nil, wrapErr(signalName, err)
	}

	signalName = fmt.Sprintf("%s.duration", publishMeterName)
	if result.duration, err = meter.Int64Histogram(
		signalName,
		metric.WithDescription("duration of publish runs"),
		metric.WithUnit("ms")); err != nil {
		return nil, wrapErr(signalName, err)
	}
	return result, nil
}

func wrapErr(signalName string, err error) error {
	return errors.Wrapf(err, "failed to create %q signal", signalName)
}

func (m *Metrics) runStarted(ctx context.Context, req Request) {
	m.runsActive.Add(ctx, 1, metric.WithAttributes(requestAttributes(req)...))
}

func (m *Metrics) runFinished(ctx context.Context, req Request, outcome Outcome, elapsed time.Duration) {
	attrs := requestAttributes(req)
	m.runsActive.Add(ctx, -1, metric.WithAttributes(attrs...))
	attrs = append(attrs,
		attribute.String(publishOutcomeLabel, string(outcome)),
		attribute.String(observability.OutcomeStatusNameAttribute, observability.SuccessOrFailureStatus(outcome != OutcomeAborted)))
	m.outcomes.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.duration.Record(ctx, elapsed.Milliseconds(), metric.WithAttributes(attrs...))
}

func (m *Metrics) transitioned(ctx context.Context, req Request, from, to State) {
	m.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String(observability.PackageNameAttribute, req.Package.String()),
		attribute.String(fromStateAttribute, from.String()),
		attribute.String(destStateAttribute, to.String())))
}

func (m *Metrics) binaryUploaded(ctx context.Context, req Request) {
	m.binaries.Add(ctx, 1, metric.WithAttributes(requestAttributes(req)...))
}

func requestAttributes(req Request) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(observability.PackageNameAttribute, req.Package.String()),
		attribute.String(observability.BinaryKindAttribute, req.Kind.String()),
	}
}
