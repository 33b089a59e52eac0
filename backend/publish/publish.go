// Package publish sequences one publish request into a single Play Developer
// API edit: stage, open, upload, promote, validate and commit.
package publish

import (
	"context"
	"fmt"

	"github.com/benbjohnson/clock"

	"github.com/spotify/android-store-service/backend/publisher"
	"github.com/spotify/android-store-service/backend/staging"
	"github.com/spotify/android-store-service/internal/log"
	"github.com/spotify/android-store-service/internal/model"
)

// State of a publish run.
type State int

const (
	Pending State = iota
	Staged
	EditOpen
	Uploading
	SymbolsUploaded
	Promoting
	Validated
	Committed
	Aborted
)

var stateNames = [...]string{"pending", "staged", "edit_open", "uploading", "symbols_uploaded", "promoting", "validated", "committed", "aborted"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Request describes one publish run.
type Request struct {
	Package model.PackageName
	Kind    model.BinaryKind
	// Tracks receive every uploaded version code, in order.
	Tracks []string
	// DryRun validates the edit without committing it.
	DryRun bool
}

// Source stages the binaries of a request into dir.
type Source func(ctx context.Context, dir *staging.Dir) ([]staging.Staged, error)

// Binaries is a Source of base64 encoded binaries.
func Binaries(binaries []model.Binary) Source {
	return func(ctx context.Context, dir *staging.Dir) ([]staging.Staged, error) {
		return dir.Stage(ctx, binaries)
	}
}

// Links is a Source of binaries fetched from URLs.
func Links(binaries []model.LinkedBinary) Source {
	return func(ctx context.Context, dir *staging.Dir) ([]staging.Staged, error) {
		return dir.StageLinks(ctx, binaries)
	}
}

type Orchestrator struct {
	stager  *staging.Stager
	dialer  publisher.Dialer
	metrics *Metrics
	clock   clock.Clock
}

func New(stager *staging.Stager, dialer publisher.Dialer, metrics *Metrics) *Orchestrator {
	return &Orchestrator{stager: stager, dialer: dialer, metrics: metrics, clock: clock.New()}
}

// Publish runs one publish request and returns the version codes assigned to
// the uploaded binaries in upload order.
//
// If the store rejects a binary because its version code has already been
// used, the run stops without error and returns no version codes.
func (o *Orchestrator) Publish(ctx context.Context, req Request, source Source) ([]model.VersionCode, error) {
	r := &run{
		req:     req,
		metrics: o.metrics,
		logger:  log.FromContext(ctx).Scope("publish").Attrs(map[string]string{"package": req.Package.String()}),
	}
	start := o.clock.Now()
	o.metrics.runStarted(ctx, req)
	defer func() {
		o.metrics.runFinished(ctx, req, r.outcome, o.clock.Since(start))
	}()

	dir, err := o.stager.Scope(ctx)
	if err != nil {
		return nil, r.abort(ctx, err)
	}
	defer func() {
		if err := dir.Close(); err != nil {
			r.logger.Warnf("Failed to remove staging directory %s: %s", dir.Path(), err)
		}
	}()

	versionCodes, err := o.publish(ctx, r, dir, source)
	if err != nil {
		return nil, r.abort(ctx, err)
	}
	return versionCodes, nil
}

func (o *Orchestrator) publish(ctx context.Context, r *run, dir *staging.Dir, source Source) ([]model.VersionCode, error) {
	req := r.req
	staged, err := source(ctx, dir)
	if err != nil {
		return nil, err
	}
	r.transition(ctx, Staged)

	client, err := o.dialer.Dial(ctx, req.Package, model.ReadWrite)
	if err != nil {
		return nil, err
	}
	edit, err := client.OpenEdit(ctx)
	if err != nil {
		return nil, err
	}
	r.transition(ctx, EditOpen)
	r.logger.Debugf("Opened edit %s", edit)

	versionCodes := make([]model.VersionCode, 0, len(staged))
	for _, binary := range staged {
		r.transition(ctx, Uploading)
		versionCode, err := client.UploadBinary(ctx, edit, req.Kind, binary.BinaryPath)
		if publisher.IsDuplicateVersion(err) {
			r.logger.Infof("Version code already used, nothing to publish: %s", err)
			r.outcome = OutcomeDuplicate
			return []model.VersionCode{}, nil
		} else if err != nil {
			return nil, err
		}
		versionCodes = append(versionCodes, versionCode)
		o.metrics.binaryUploaded(ctx, req)

		if symbols, ok := binary.SymbolPath.Get(); ok {
			if _, err := client.UploadSymbols(ctx, edit, versionCode, symbols); err != nil {
				return nil, err
			}
			r.transition(ctx, SymbolsUploaded)
		}
	}

	r.transition(ctx, Promoting)
	for _, track := range req.Tracks {
		if err := client.Promote(ctx, edit, track, versionCodes); err != nil {
			return nil, err
		}
	}

	if err := client.Validate(ctx, edit); err != nil {
		return nil, err
	}
	r.transition(ctx, Validated)

	if req.DryRun {
		r.logger.Infof("Validated %s %v for tracks %v without committing (dry run)", req.Kind, versionCodes, req.Tracks)
		r.outcome = OutcomeDryRun
		return versionCodes, nil
	}

	if err := client.Commit(ctx, edit); err != nil {
		return nil, err
	}
	r.transition(ctx, Committed)
	r.outcome = OutcomeCommitted
	r.logger.Infof("Published %s %v to tracks %v", req.Kind, versionCodes, req.Tracks)
	return versionCodes, nil
}

// run tracks the state of a single Publish call.
type run struct {
	req     Request
	state   State
	outcome Outcome
	metrics *Metrics
	logger  *log.Logger
}

func (r *run) transition(ctx context.Context, to State) {
	r.metrics.transitioned(ctx, r.req, r.state, to)
	r.logger.Tracef("%s -> %s", r.state, to)
	r.state = to
}

func (r *run) abort(ctx context.Context, err error) error {
	r.logger.Debugf("Aborted in state %s: %s", r.state, err)
	r.transition(ctx, Aborted)
	r.outcome = OutcomeAborted
	return err
}
