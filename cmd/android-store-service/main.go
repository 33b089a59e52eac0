package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	kongtoml "github.com/alecthomas/kong-toml"
	"go.opentelemetry.io/otel"

	androidstore "github.com/spotify/android-store-service"
	"github.com/spotify/android-store-service/backend/api"
	"github.com/spotify/android-store-service/backend/publish"
	"github.com/spotify/android-store-service/backend/publisher"
	"github.com/spotify/android-store-service/backend/staging"
	"github.com/spotify/android-store-service/backend/tracks"
	_ "github.com/spotify/android-store-service/internal/automaxprocs" // Set GOMAXPROCS to match Linux container CPU quota.
	httpserver "github.com/spotify/android-store-service/internal/http"
	"github.com/spotify/android-store-service/internal/log"
	"github.com/spotify/android-store-service/internal/observability"
	"github.com/spotify/android-store-service/internal/secrets"
)

var cli struct {
	Version             kong.VersionFlag     `help:"Show version."`
	Config              kong.ConfigFlag      `help:"TOML configuration file." env:"APP_CONFIG_FILE"`
	LogConfig           log.Config           `embed:"" prefix:"log-"`
	ObservabilityConfig observability.Config `embed:"" prefix:"o11y-"`
	HTTPConfig          httpserver.Config    `embed:""`
	APIConfig           api.Config           `embed:""`
	PublisherConfig     publisher.Config     `embed:"" prefix:"publisher-"`
	SecretsConfig       secrets.Config       `embed:"" prefix:"secrets-"`
	StagingConfig       staging.Config       `embed:"" prefix:"staging-"`
}

func main() {
	kctx := kong.Parse(&cli,
		kong.Description(`Publishes Android binaries to Google Play`),
		kong.Configuration(kongtoml.Loader),
		kong.UsageOnError(),
		kong.Vars{"version": androidstore.FormattedVersion(androidstore.Version, androidstore.Timestamp)},
	)

	logger := log.Configure(os.Stderr, cli.LogConfig)
	ctx, cancel := signal.NotifyContext(log.ContextWithLogger(context.Background(), logger), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	if !androidstore.IsRelease(androidstore.Version) {
		logger.Warnf("Running development build %s", androidstore.Version)
	}

	shutdown, err := observability.Init(ctx, log.ServiceName, androidstore.Version, cli.ObservabilityConfig)
	kctx.FatalIfErrorf(err, "failed to initialize observability")
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Warnf("Failed to flush observability data: %s", err)
		}
	}()

	err = run(ctx)
	kctx.FatalIfErrorf(err)
}

func run(ctx context.Context) error {
	store, err := secrets.New(ctx, cli.SecretsConfig)
	if err != nil {
		return err
	}
	dialer := publisher.NewDialer(cli.PublisherConfig, store)

	publishMetrics, err := publish.NewMetrics(otel.GetMeterProvider())
	if err != nil {
		return err
	}
	apiMetrics, err := api.NewMetrics(otel.GetMeterProvider())
	if err != nil {
		return err
	}

	stager := staging.New(cli.StagingConfig, staging.Fetchers(cli.StagingConfig)...)
	svc, err := api.New(cli.APIConfig, publish.New(stager, dialer, publishMetrics), tracks.New(dialer), apiMetrics)
	if err != nil {
		return err
	}

	if cli.HTTPConfig.DebugBind != "" {
		mux := http.NewServeMux()
		httpserver.RegisterPprof(mux)
		go func() {
			if err := httpserver.ListenAndServe(ctx, cli.HTTPConfig.DebugBind, mux); err != nil {
				log.FromContext(ctx).Errorf(err, "Debug server failed")
			}
		}()
	}
	return httpserver.ListenAndServe(ctx, cli.HTTPConfig.Bind, svc.Handler())
}
