// Package observability configures OpenTelemetry export for the service.
package observability

import (
	"context"
	"os"
	"strings"

	"github.com/alecthomas/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/spotify/android-store-service/internal/log"
)

type ExportOTELFlag bool

func (e *ExportOTELFlag) UnmarshalText(text []byte) error {
	// Kong would use strconv.ParseBool, but any endpoint value enables export.
	v := strings.ToLower(string(text))
	*e = ExportOTELFlag(!(v == "false" || v == "0" || v == "no" || v == ""))
	return nil
}

type Config struct {
	LogLevel   log.Level      `default:"error" help:"OTEL log level." env:"O11Y_LOG_LEVEL"`
	ExportOTEL ExportOTELFlag `help:"Export observability data to OTEL." env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

// Init installs global OTEL meter and tracer providers exporting over OTLP/gRPC.
//
// The returned function flushes and stops the exporters.
func Init(ctx context.Context, serviceName, serviceVersion string, config Config) (func(context.Context) error, error) {
	logger := log.FromContext(ctx)
	if !config.ExportOTEL {
		logger.Tracef("OTEL export is disabled, set OTEL_EXPORTER_OTLP_ENDPOINT to enable")
		return func(context.Context) error { return nil }, nil
	}

	logger.Debugf("OTEL is enabled, exporting to %s at log level %s", os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"), config.LogLevel)

	otel.SetLogger(NewOtelLogger(logger, config.LogLevel))
	otel.SetErrorHandler(otel.ErrorHandlerFunc(func(err error) { logger.Errorf(err, "OTEL") }))

	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create OTEL resource")
	}

	otelMetricExporter, err := otlpmetricgrpc.New(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create OTEL metric exporter")
	}
	meterProvider := metric.NewMeterProvider(metric.WithReader(metric.NewPeriodicReader(otelMetricExporter)), metric.WithResource(res))
	otel.SetMeterProvider(meterProvider)

	otelTraceExporter, err := otlptracegrpc.New(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create OTEL trace exporter")
	}
	traceProvider := trace.NewTracerProvider(trace.WithBatcher(otelTraceExporter), trace.WithResource(res))
	otel.SetTracerProvider(traceProvider)

	return func(ctx context.Context) error {
		return errors.Join(meterProvider.Shutdown(ctx), traceProvider.Shutdown(ctx))
	}, nil
}
