package publisher

import (
	"context"
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"
	"github.com/alecthomas/errors"

	"github.com/spotify/android-store-service/internal/log"
	"github.com/spotify/android-store-service/internal/model"
	"github.com/spotify/android-store-service/internal/secrets"
)

func TestSelectCredentials(t *testing.T) {
	const pkg = model.PackageName("com.package.name")
	for _, test := range []struct {
		name     string
		secrets  []string
		access   model.Access
		expected string
	}{
		{name: "ViewerPrefersPackageViewer", secrets: []string{"com.package.name", "com.package.name-viewer"}, access: model.ReadOnly, expected: "com.package.name-viewer"},
		{name: "EditorIgnoresPackageViewer", secrets: []string{"com.package.name", "com.package.name-viewer"}, access: model.ReadWrite, expected: "com.package.name"},
		{name: "ViewerFallsBackToPackage", secrets: []string{"com.package.name", "googleplayapiaccess-viewer"}, access: model.ReadOnly, expected: "com.package.name"},
		{name: "ViewerFallsBackToGlobalViewer", secrets: []string{"googleplayapiaccess-viewer", "googleplayapiaccess"}, access: model.ReadOnly, expected: "googleplayapiaccess-viewer"},
		{name: "EditorIgnoresGlobalViewer", secrets: []string{"googleplayapiaccess-viewer", "googleplayapiaccess"}, access: model.ReadWrite, expected: "googleplayapiaccess"},
		{name: "ViewerFallsBackToGlobal", secrets: []string{"googleplayapiaccess"}, access: model.ReadOnly, expected: "googleplayapiaccess"},
		{name: "ViewerUsesPackageViewerWithoutPackage", secrets: []string{"com.package.name-viewer", "googleplayapiaccess"}, access: model.ReadOnly, expected: "com.package.name-viewer"},
		{name: "EditorSkipsPackageViewerWithoutPackage", secrets: []string{"com.package.name-viewer", "googleplayapiaccess"}, access: model.ReadWrite, expected: "googleplayapiaccess"},
		{name: "GlobalSelectedEvenIfMissing", access: model.ReadWrite, expected: "googleplayapiaccess"},
	} {
		t.Run(test.name, func(t *testing.T) {
			store := memStore{}
			for _, name := range test.secrets {
				store[name] = "{}"
			}
			selected, err := SelectCredentials(context.Background(), store, pkg, test.access)
			assert.NoError(t, err)
			assert.Equal(t, test.expected, selected)
		})
	}
}

func TestDialUsesSelectedCredentials(t *testing.T) {
	ctx := log.ContextWithNewDefaultLogger(context.Background())
	_, srv := newFakePlay(t)
	dialer, used := newTestDialer(memStore{
		testPackage:             `{"secret":"package"}`,
		testPackage + "-viewer": `{"secret":"viewer"}`,
	}, srv)

	_, err := dialer.Dial(ctx, testPackage, model.ReadOnly)
	assert.NoError(t, err)
	assert.Equal(t, `{"secret":"viewer"}`, *used)

	_, err = dialer.Dial(ctx, testPackage, model.ReadWrite)
	assert.NoError(t, err)
	assert.Equal(t, `{"secret":"package"}`, *used)
}

func TestDialConfigurationErrors(t *testing.T) {
	ctx := log.ContextWithNewDefaultLogger(context.Background())
	_, srv := newFakePlay(t)

	dialer, _ := newTestDialer(memStore{}, srv)
	_, err := dialer.Dial(ctx, testPackage, model.ReadWrite)
	var cerr *ConfigurationError
	assert.True(t, errors.As(err, &cerr))
	assert.Equal(t, "googleplayapiaccess", cerr.Secret)
	assert.IsError(t, err, secrets.ErrNotFound)

	dialer, _ = newTestDialer(memStore{globalSecret: "not json"}, srv)
	_, err = dialer.Dial(ctx, testPackage, model.ReadWrite)
	assert.True(t, errors.As(err, &cerr))
}

// countingStore counts secret loads.
type countingStore struct {
	memStore
	loads int
}

func (c *countingStore) Load(ctx context.Context, name string) ([]byte, error) {
	c.loads++
	return c.memStore.Load(ctx, name)
}

func TestDialReusesServices(t *testing.T) {
	ctx := log.ContextWithNewDefaultLogger(context.Background())
	_, srv := newFakePlay(t)
	for _, test := range []struct {
		name  string
		ttl   time.Duration
		loads int
	}{
		{name: "Reused", ttl: time.Minute, loads: 2},
		{name: "Disabled", ttl: 0, loads: 4},
	} {
		t.Run(test.name, func(t *testing.T) {
			store := &countingStore{memStore: memStore{globalSecret: "{}"}}
			dialer, _ := newTestDialerWithConfig(Config{Attempts: 1, ClientTTL: test.ttl}, store, srv)
			for range 2 {
				for _, access := range []model.Access{model.ReadWrite, model.ReadOnly} {
					client, err := dialer.Dial(ctx, testPackage, access)
					assert.NoError(t, err)
					_, err = client.OpenEdit(ctx)
					assert.NoError(t, err)
				}
			}
			assert.Equal(t, test.loads, store.loads)
		})
	}
}

func TestDialDoesNotReuseFailures(t *testing.T) {
	ctx := log.ContextWithNewDefaultLogger(context.Background())
	_, srv := newFakePlay(t)
	store := memStore{globalSecret: "not json"}
	dialer, _ := newTestDialerWithConfig(Config{Attempts: 1, ClientTTL: time.Minute}, store, srv)
	_, err := dialer.Dial(ctx, testPackage, model.ReadWrite)
	var cerr *ConfigurationError
	assert.True(t, errors.As(err, &cerr))

	store[globalSecret] = "{}"
	_, err = dialer.Dial(ctx, testPackage, model.ReadWrite)
	assert.NoError(t, err)
}
