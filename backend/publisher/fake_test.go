package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alecthomas/errors"
	"google.golang.org/api/androidpublisher/v3"
	"google.golang.org/api/option"

	"github.com/spotify/android-store-service/internal/secrets"
)

const testPackage = "com.example.app"

type fakeCall struct {
	route string
	body  string
}

// fakePlay is a minimal Play Developer API server.
type fakePlay struct {
	lock  sync.Mutex
	calls []fakeCall
	// failures maps a route to the statuses returned, in order, before the route succeeds.
	failures map[string][]failure
	tracks   string
}

type failure struct {
	status  int
	message string
}

func newFakePlay(t *testing.T) (*fakePlay, *httptest.Server) {
	t.Helper()
	fake := &fakePlay{failures: map[string][]failure{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return fake, srv
}

func (f *fakePlay) fail(route string, status int, message string) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.failures[route] = append(f.failures[route], failure{status: status, message: message})
}

func (f *fakePlay) routes() []string {
	f.lock.Lock()
	defer f.lock.Unlock()
	out := make([]string, len(f.calls))
	for i, call := range f.calls {
		out[i] = call.route
	}
	return out
}

func (f *fakePlay) bodies(route string) []string {
	f.lock.Lock()
	defer f.lock.Unlock()
	var out []string
	for _, call := range f.calls {
		if call.route == route {
			out = append(out, call.body)
		}
	}
	return out
}

func (f *fakePlay) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/upload")
	path = strings.TrimPrefix(path, "/androidpublisher/v3/applications/"+testPackage)
	route := r.Method + " " + path
	body, _ := io.ReadAll(r.Body)

	f.lock.Lock()
	f.calls = append(f.calls, fakeCall{route: route, body: string(body)})
	var failed *failure
	if pending := f.failures[route]; len(pending) > 0 {
		failed = &pending[0]
		f.failures[route] = pending[1:]
	}
	f.lock.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if failed != nil {
		w.WriteHeader(failed.status)
		fmt.Fprintf(w, `{"error":{"code":%d,"message":%q,"errors":[{"message":%q,"domain":"global","reason":"forbidden"}]}}`,
			failed.status, failed.message, failed.message)
		return
	}
	switch {
	case route == "POST /edits":
		fmt.Fprint(w, `{"id":"edit-1"}`)
	case route == "POST /edits/edit-1/apks":
		fmt.Fprint(w, `{"versionCode":42,"binary":{"sha1":"x"}}`)
	case route == "POST /edits/edit-1/bundles":
		fmt.Fprint(w, `{"versionCode":43}`)
	case strings.HasSuffix(route, "/deobfuscationFiles/proguard"):
		fmt.Fprint(w, `{"deobfuscationFile":{"symbolType":"proguard"}}`)
	case r.Method == http.MethodPut && strings.HasPrefix(path, "/edits/edit-1/tracks/"):
		_, _ = w.Write(body)
	case route == "POST /edits/edit-1:validate", route == "POST /edits/edit-1:commit":
		fmt.Fprint(w, `{"id":"edit-1"}`)
	case route == "GET /edits/edit-1/tracks":
		fmt.Fprint(w, f.tracks)
	default:
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprintf(w, `{"error":{"code":404,"message":"no route %s"}}`, route)
	}
}

type memStore map[string]string

var _ secrets.Store = memStore{}

func (m memStore) Exists(ctx context.Context, name string) (bool, error) {
	_, ok := m[name]
	return ok, nil
}

func (m memStore) Load(ctx context.Context, name string) ([]byte, error) {
	value, ok := m[name]
	if !ok {
		return nil, errors.Wrap(secrets.ErrNotFound, name)
	}
	return []byte(value), nil
}

// newTestDialer returns a dialer talking to srv and the credentials it was last dialled with.
func newTestDialer(store secrets.Store, srv *httptest.Server) (*GoogleDialer, *string) {
	return newTestDialerWithConfig(Config{Attempts: 3, MinBackoff: time.Millisecond, MaxBackoff: time.Millisecond}, store, srv)
}

func newTestDialerWithConfig(config Config, store secrets.Store, srv *httptest.Server) (*GoogleDialer, *string) {
	dialer := NewDialer(config, store)
	var used string
	dialer.newService = func(ctx context.Context, credentials []byte, opts ...option.ClientOption) (*androidpublisher.Service, error) {
		used = string(credentials)
		if !json.Valid(credentials) {
			return nil, errors.New("invalid credentials JSON")
		}
		opts = append(opts, option.WithEndpoint(srv.URL+"/"), option.WithoutAuthentication())
		return androidpublisher.NewService(ctx, opts...)
	}
	return dialer, &used
}
