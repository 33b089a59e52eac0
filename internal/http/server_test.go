package http

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/spotify/android-store-service/internal/log"
)

func TestServeUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(log.ContextWithNewDefaultLogger(context.Background()))
	defer cancel()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	assert.NoError(t, err)

	mux := http.NewServeMux()
	mux.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) { _, _ = io.WriteString(w, "pong") })
	RegisterPprof(mux)

	done := make(chan error, 1)
	go func() { done <- Serve(ctx, listener, mux) }()

	for _, path := range []string{"/ping", "/debug/pprof/"} {
		resp, err := http.Get("http://" + listener.Addr().String() + path)
		assert.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, "%s", path)
	}

	cancel()
	assert.NoError(t, <-done)
}
