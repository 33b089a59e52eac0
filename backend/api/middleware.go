package api

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/alecthomas/errors"
	"github.com/google/uuid"

	"github.com/spotify/android-store-service/internal/log"
)

const (
	requestIDHeader = "X-Request-Id"
	maxLoggedBody   = 1000
)

type requestKey struct{}

// request is the per-request state shared between middleware and handlers.
type request struct {
	id    string
	start time.Time
	body  []byte
	// route is the matched route pattern, empty if none matched.
	route string
}

func requestFromContext(ctx context.Context) *request {
	if req, ok := ctx.Value(requestKey{}).(*request); ok {
		return req
	}
	return &request{}
}

// statusRecorder captures the status written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	if s.status == 0 {
		s.status = status
	}
	s.ResponseWriter.WriteHeader(status)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	return s.ResponseWriter.Write(b)
}

// middleware tags the request with an ID, reads the body once, logs the
// request and records timing when the handler finishes. Panics become 500s.
func (s *Service) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := &request{id: r.Header.Get(requestIDHeader), start: s.clock.Now()}
		if req.id == "" {
			req.id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, req.id)
		logger := log.FromContext(r.Context()).RequestID(req.id)
		ctx := log.ContextWithLogger(r.Context(), logger)
		ctx = context.WithValue(ctx, requestKey{}, req)
		r = r.WithContext(ctx)

		recorder := &statusRecorder{ResponseWriter: w}
		defer func() {
			if p := recover(); p != nil {
				if p == http.ErrAbortHandler {
					panic(p)
				}
				writeError(ctx, recorder, errors.Errorf("panic: %v", p))
			}
			elapsed := s.clock.Since(req.start)
			status := recorder.status
			if status == 0 {
				status = http.StatusOK
			}
			logger.Debugf("%s %s %d in %s", r.Method, r.URL.Path, status, elapsed)
			s.metrics.requestFinished(ctx, r.Method, req.route, status, elapsed)
		}()

		if r.Body != nil {
			body, err := io.ReadAll(http.MaxBytesReader(recorder, r.Body, s.config.MaxBodySize))
			if err != nil {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					writeError(ctx, recorder, validationErrorf("Request body exceeds %d bytes", tooLarge.Limit))
					return
				}
				writeError(ctx, recorder, errors.Wrap(err, "failed to read request body"))
				return
			}
			req.body = body
			r.Body = io.NopCloser(bytes.NewReader(body))
		}
		logger.Infof("%s %s DATA: %s", r.Method, r.URL.Path, truncate(req.body, maxLoggedBody))
		next.ServeHTTP(recorder, r)
	})
}

func truncate(body []byte, n int) string {
	if len(body) <= n {
		return string(body)
	}
	return string(body[:n]) + "..."
}
