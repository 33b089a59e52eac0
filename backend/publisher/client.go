package publisher

import (
	"context"
	"os"
	"strconv"

	"github.com/alecthomas/errors"
	"github.com/benbjohnson/clock"
	"github.com/jellydator/ttlcache/v3"
	"google.golang.org/api/androidpublisher/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/spotify/android-store-service/internal/log"
	"github.com/spotify/android-store-service/internal/model"
	"github.com/spotify/android-store-service/internal/secrets"
)

const (
	octetStream      = "application/octet-stream"
	proguardSymbols  = "proguard"
	completedRelease = "completed"
)

var _ Dialer = (*GoogleDialer)(nil)

// GoogleDialer dials the Play Developer API with credentials from a secret store.
type GoogleDialer struct {
	config  Config
	secrets secrets.Store
	clock   clock.Clock
	// services holds dialled API services for Config.ClientTTL, nil when reuse is disabled.
	services *ttlcache.Cache[dialKey, *androidpublisher.Service]
	// newService is replaced in tests to skip authentication.
	newService func(ctx context.Context, credentials []byte, opts ...option.ClientOption) (*androidpublisher.Service, error)
}

type dialKey struct {
	pkg    model.PackageName
	access model.Access
}

func NewDialer(config Config, store secrets.Store) *GoogleDialer {
	d := &GoogleDialer{
		config:  config,
		secrets: store,
		clock:   clock.New(),
		newService: func(ctx context.Context, credentials []byte, opts ...option.ClientOption) (*androidpublisher.Service, error) {
			opts = append(opts,
				option.WithCredentialsJSON(credentials),
				option.WithScopes(androidpublisher.AndroidpublisherScope),
			)
			return androidpublisher.NewService(ctx, opts...)
		},
	}
	if config.ClientTTL > 0 {
		d.services = ttlcache.New[dialKey, *androidpublisher.Service](
			ttlcache.WithTTL[dialKey, *androidpublisher.Service](config.ClientTTL),
			ttlcache.WithDisableTouchOnHit[dialKey, *androidpublisher.Service](),
		)
	}
	return d
}

func (d *GoogleDialer) Dial(ctx context.Context, pkg model.PackageName, access model.Access) (Client, error) {
	key := dialKey{pkg: pkg, access: access}
	if d.services != nil {
		if item := d.services.Get(key); item != nil {
			return d.client(pkg, item.Value()), nil
		}
	}
	name, err := SelectCredentials(ctx, d.secrets, pkg, access)
	if err != nil {
		return nil, err
	}
	log.FromContext(ctx).Scope("publisher").Debugf("Using credentials %q for %s (%s)", name, pkg, access)
	credentials, err := d.secrets.Load(ctx, name)
	if err != nil {
		return nil, &ConfigurationError{Secret: name, Err: err}
	}
	var opts []option.ClientOption
	if d.config.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(d.config.Endpoint))
	}
	// The service refreshes tokens long after this request has finished.
	svc, err := d.newService(context.WithoutCancel(ctx), credentials, opts...)
	if err != nil {
		return nil, &ConfigurationError{Secret: name, Err: err}
	}
	if d.services != nil {
		d.services.Set(key, svc, ttlcache.DefaultTTL)
	}
	return d.client(pkg, svc), nil
}

func (d *GoogleDialer) client(pkg model.PackageName, svc *androidpublisher.Service) *client {
	return &client{pkg: pkg.String(), svc: svc, config: d.config, clock: d.clock}
}

type client struct {
	pkg    string
	svc    *androidpublisher.Service
	config Config
	clock  clock.Clock
}

func (c *client) OpenEdit(ctx context.Context) (model.EditID, error) {
	var edit *androidpublisher.AppEdit
	err := c.retry(ctx, "open edit", func() (err error) {
		edit, err = c.svc.Edits.Insert(c.pkg, &androidpublisher.AppEdit{}).Context(ctx).Do()
		return err
	})
	if err != nil {
		return "", err
	}
	return model.EditID(edit.Id), nil
}

func (c *client) UploadBinary(ctx context.Context, edit model.EditID, kind model.BinaryKind, path string) (model.VersionCode, error) {
	var versionCode int64
	err := c.retry(ctx, "upload "+kind.String(), func() error {
		r, err := os.Open(path)
		if err != nil {
			return errors.WithStack(err)
		}
		defer r.Close()
		switch kind {
		case model.APK:
			apk, err := c.svc.Edits.Apks.Upload(c.pkg, edit.String()).Media(r, googleapi.ContentType(octetStream)).Context(ctx).Do()
			if err != nil {
				return err
			}
			versionCode = apk.VersionCode
		case model.AppBundle:
			bundle, err := c.svc.Edits.Bundles.Upload(c.pkg, edit.String()).Media(r, googleapi.ContentType(octetStream)).Context(ctx).Do()
			if err != nil {
				return err
			}
			versionCode = bundle.VersionCode
		default:
			return errors.Errorf("unsupported binary kind %s", kind)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return model.VersionCode(versionCode), nil
}

func (c *client) UploadSymbols(ctx context.Context, edit model.EditID, versionCode model.VersionCode, path string) (string, error) {
	var resp *androidpublisher.DeobfuscationFilesUploadResponse
	err := c.retry(ctx, "upload deobfuscation file", func() error {
		r, err := os.Open(path)
		if err != nil {
			return errors.WithStack(err)
		}
		defer r.Close()
		resp, err = c.svc.Edits.Deobfuscationfiles.Upload(c.pkg, edit.String(), int64(versionCode), proguardSymbols).
			Media(r, googleapi.ContentType(octetStream)).
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		return "", err
	}
	if resp.DeobfuscationFile == nil {
		return proguardSymbols, nil
	}
	return resp.DeobfuscationFile.SymbolType, nil
}

func (c *client) Promote(ctx context.Context, edit model.EditID, track string, versionCodes []model.VersionCode) error {
	codes := make(googleapi.Int64s, len(versionCodes))
	for i, vc := range versionCodes {
		codes[i] = int64(vc)
	}
	body := &androidpublisher.Track{
		Track:    track,
		Releases: []*androidpublisher.TrackRelease{{Status: completedRelease, VersionCodes: codes}},
	}
	return c.retry(ctx, "promote to "+track, func() error {
		_, err := c.svc.Edits.Tracks.Update(c.pkg, edit.String(), track, body).Context(ctx).Do()
		return err
	})
}

func (c *client) Validate(ctx context.Context, edit model.EditID) error {
	return c.retry(ctx, "validate edit", func() error {
		_, err := c.svc.Edits.Validate(c.pkg, edit.String()).Context(ctx).Do()
		return err
	})
}

func (c *client) Commit(ctx context.Context, edit model.EditID) error {
	return c.retry(ctx, "commit edit", func() error {
		_, err := c.svc.Edits.Commit(c.pkg, edit.String()).Context(ctx).Do()
		return err
	})
}

func (c *client) ListTracks(ctx context.Context, edit model.EditID) ([]model.Track, error) {
	var resp *androidpublisher.TracksListResponse
	err := c.retry(ctx, "list tracks", func() (err error) {
		resp, err = c.svc.Edits.Tracks.List(c.pkg, edit.String()).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, err
	}
	tracks := make([]model.Track, 0, len(resp.Tracks))
	for _, track := range resp.Tracks {
		tracks = append(tracks, trackFromAPI(track))
	}
	return tracks, nil
}

func trackFromAPI(track *androidpublisher.Track) model.Track {
	out := model.Track{Track: track.Track}
	for _, release := range track.Releases {
		r := model.Release{
			Name:                release.Name,
			Status:              release.Status,
			UserFraction:        release.UserFraction,
			InAppUpdatePriority: release.InAppUpdatePriority,
		}
		if targeting := release.CountryTargeting; targeting != nil {
			r.CountryTargeting = &model.CountryTargeting{
				Countries:          targeting.Countries,
				IncludeRestOfWorld: targeting.IncludeRestOfWorld,
			}
		}
		for _, vc := range release.VersionCodes {
			r.VersionCodes = append(r.VersionCodes, strconv.FormatInt(vc, 10))
		}
		for _, note := range release.ReleaseNotes {
			r.ReleaseNotes = append(r.ReleaseNotes, model.LocalizedText{Language: note.Language, Text: note.Text})
		}
		out.Releases = append(out.Releases, r)
	}
	return out
}
