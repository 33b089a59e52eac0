// Package cors wraps handlers with CORS support.
package cors

import (
	"net/http"

	"github.com/rs/cors"
)

type Config struct {
	AllowOrigins []string `help:"Origins allowed to make cross-origin requests." default:"*" env:"CORS_ALLOW_ORIGINS"`
	AllowHeaders []string `help:"Headers allowed in cross-origin requests." default:"Content-Type,X-Request-Id" env:"CORS_ALLOW_HEADERS"`
}

func Middleware(config Config, next http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: config.AllowOrigins,
		AllowedHeaders: config.AllowHeaders,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		ExposedHeaders: []string{"X-Request-Id"},
	})
	return c.Handler(next)
}
