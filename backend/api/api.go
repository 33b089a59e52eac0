// Package api serves the HTTP interface of the service.
package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/benbjohnson/clock"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/spotify/android-store-service/backend/publish"
	"github.com/spotify/android-store-service/internal/cors"
	"github.com/spotify/android-store-service/internal/model"
)

type Config struct {
	CORS        cors.Config `embed:"" prefix:"cors-"`
	MaxBodySize int64       `help:"Maximum accepted request body size in bytes." default:"1073741824" env:"MAX_BODY_SIZE"`
}

// Publisher runs publish requests.
type Publisher interface {
	Publish(ctx context.Context, req publish.Request, source publish.Source) ([]model.VersionCode, error)
}

// TrackLister lists the tracks of an app.
type TrackLister interface {
	List(ctx context.Context, pkg model.PackageName) ([]model.Track, error)
}

type Service struct {
	config    Config
	publisher Publisher
	lister    TrackLister
	metrics   *Metrics
	schemas   schemas
	clock     clock.Clock
}

func New(config Config, publisher Publisher, lister TrackLister, metrics *Metrics) (*Service, error) {
	compiled, err := compileSchemas()
	if err != nil {
		return nil, err
	}
	if config.MaxBodySize <= 0 {
		config.MaxBodySize = 1 << 30
	}
	return &Service{
		config:    config,
		publisher: publisher,
		lister:    lister,
		metrics:   metrics,
		schemas:   compiled,
		clock:     clock.New(),
	}, nil
}

// Handler returns the root handler of the service.
func (s *Service) Handler() http.Handler {
	routes := s.routes()
	router := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		route, params, allowed := dispatch(routes, r)
		if route == nil {
			if len(allowed) > 0 {
				w.Header().Set("Allow", strings.Join(allowed, ", "))
				writeJSON(w, http.StatusMethodNotAllowed, errorEnvelope{Error: errorMessage{Message: "Method not allowed"}})
				return
			}
			writeJSON(w, http.StatusNotFound, errorEnvelope{Error: errorMessage{Message: "Not found"}})
			return
		}
		requestFromContext(ctx).route = route.path
		if err := route.handler(w, r, params); err != nil {
			writeError(ctx, w, err)
		}
	})
	return otelhttp.NewHandler(s.middleware(cors.Middleware(s.config.CORS, router)), "android-store-service")
}
