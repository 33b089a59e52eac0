// Package http runs HTTP servers until their context is cancelled.
package http

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/alecthomas/errors"
	"golang.org/x/sync/errgroup"

	"github.com/spotify/android-store-service/internal/log"
)

const ShutdownGracePeriod = time.Second * 5

type Config struct {
	Bind      string `help:"Address to serve the API on." default:"127.0.0.1:8080" env:"BIND"`
	DebugBind string `help:"Address to serve pprof on. Disabled if empty." env:"DEBUG_BIND"`
}

// Serve serves handler on listener until ctx is cancelled, then shuts down gracefully.
func Serve(ctx context.Context, listener net.Listener, handler http.Handler) error {
	logger := log.FromContext(ctx)
	// In-flight requests outlive cancellation and are drained by Shutdown.
	baseCtx := context.WithoutCancel(ctx)
	server := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 30 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}
	wg, ctx := errgroup.WithContext(ctx)

	wg.Go(func() error {
		<-ctx.Done()
		ctx, cancel := context.WithTimeout(context.Background(), ShutdownGracePeriod)
		defer cancel()
		err := server.Shutdown(ctx)
		if errors.Is(err, context.DeadlineExceeded) {
			_ = server.Close()
		}
		if err != nil {
			return errors.Wrap(err, "shutdown failed")
		}
		return nil
	})

	wg.Go(func() error {
		logger.Infof("Listening on http://%s", listener.Addr())
		err := server.Serve(listener)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "server failed")
	})

	return wg.Wait()
}

// ListenAndServe listens on bind and calls Serve.
func ListenAndServe(ctx context.Context, bind string, handler http.Handler) error {
	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", bind)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %s", bind)
	}
	return Serve(ctx, listener, handler)
}
