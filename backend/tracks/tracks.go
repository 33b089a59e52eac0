// Package tracks lists the distribution tracks of an app.
package tracks

import (
	"context"

	"github.com/spotify/android-store-service/backend/publisher"
	"github.com/spotify/android-store-service/internal/log"
	"github.com/spotify/android-store-service/internal/model"
)

type Lister struct {
	dialer publisher.Dialer
}

func New(dialer publisher.Dialer) *Lister {
	return &Lister{dialer: dialer}
}

// List returns the current tracks of pkg with their releases.
//
// The edit opened to read them is never committed and left to expire.
func (l *Lister) List(ctx context.Context, pkg model.PackageName) ([]model.Track, error) {
	client, err := l.dialer.Dial(ctx, pkg, model.ReadOnly)
	if err != nil {
		return nil, err
	}
	edit, err := client.OpenEdit(ctx)
	if err != nil {
		return nil, err
	}
	tracks, err := client.ListTracks(ctx, edit)
	if err != nil {
		return nil, err
	}
	log.FromContext(ctx).Scope("tracks").Debugf("Listed %d tracks for %s", len(tracks), pkg)
	if tracks == nil {
		tracks = []model.Track{}
	}
	return tracks, nil
}
