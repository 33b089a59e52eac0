// Package publisher is a typed client for the Google Play Developer API.
package publisher

import (
	"context"
	"time"

	"github.com/spotify/android-store-service/internal/model"
)

// Client exposes one method per Play Developer API primitive used to publish.
//
// A Client is bound to a single package at dial time.
type Client interface {
	// OpenEdit creates a new edit (store-side transaction).
	OpenEdit(ctx context.Context) (model.EditID, error)
	// UploadBinary uploads the APK or app bundle at path and returns its version code.
	UploadBinary(ctx context.Context, edit model.EditID, kind model.BinaryKind, path string) (model.VersionCode, error)
	// UploadSymbols attaches the ProGuard mapping at path to versionCode.
	UploadSymbols(ctx context.Context, edit model.EditID, versionCode model.VersionCode, path string) (string, error)
	// Promote replaces the track's release with a single completed release of exactly versionCodes.
	Promote(ctx context.Context, edit model.EditID, track string, versionCodes []model.VersionCode) error
	Validate(ctx context.Context, edit model.EditID) error
	Commit(ctx context.Context, edit model.EditID) error
	ListTracks(ctx context.Context, edit model.EditID) ([]model.Track, error)
}

// Dialer creates package bound clients.
type Dialer interface {
	Dial(ctx context.Context, pkg model.PackageName, access model.Access) (Client, error)
}

type Config struct {
	Attempts   int           `help:"Attempts per Play Developer API call." default:"3" env:"PUBLISHER_ATTEMPTS"`
	MinBackoff time.Duration `help:"Initial delay between attempts." default:"1s" env:"PUBLISHER_MIN_BACKOFF"`
	MaxBackoff time.Duration `help:"Maximum delay between attempts." default:"10s" env:"PUBLISHER_MAX_BACKOFF"`
	Endpoint   string        `help:"Override the Play Developer API endpoint." env:"PUBLISHER_ENDPOINT" hidden:""`
	ClientTTL  time.Duration `help:"How long a dialled API client is reused per package and access level. Zero disables reuse." default:"5m" env:"PUBLISHER_CLIENT_TTL"`
}
