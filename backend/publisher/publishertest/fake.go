// Package publishertest provides an in-memory publisher for tests.
package publishertest

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/spotify/android-store-service/backend/publisher"
	"github.com/spotify/android-store-service/internal/model"
)

var _ publisher.Dialer = (*Fake)(nil)
var _ publisher.Client = (*Fake)(nil)

// Fake is both a Dialer and the Client it dials.
//
// Every call is recorded in Calls as "<op> <args...>". Errors keyed by op are
// returned from every call of that op. ErrorsAt keys errors by op and the
// 1-based number of the call to that op.
type Fake struct {
	lock     sync.Mutex
	calls    []string
	counts   map[string]int
	uploaded []string
	nextCode model.VersionCode

	Errors   map[string]error
	ErrorsAt map[string]map[int]error
	Tracks   []model.Track
}

// New creates a Fake that assigns version codes from first upwards.
func New(first model.VersionCode) *Fake {
	return &Fake{
		nextCode: first,
		counts:   map[string]int{},
		Errors:   map[string]error{},
		ErrorsAt: map[string]map[int]error{},
	}
}

// FailAt makes the nth call to op return err.
func (f *Fake) FailAt(op string, n int, err error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.ErrorsAt[op] == nil {
		f.ErrorsAt[op] = map[int]error{}
	}
	f.ErrorsAt[op][n] = err
}

// Calls returns the recorded calls.
func (f *Fake) Calls() []string {
	f.lock.Lock()
	defer f.lock.Unlock()
	return append([]string{}, f.calls...)
}

// CallsTo returns the recorded calls of a single op.
func (f *Fake) CallsTo(op string) []string {
	var out []string
	for _, call := range f.Calls() {
		if call == op || strings.HasPrefix(call, op+" ") {
			out = append(out, call)
		}
	}
	return out
}

// Uploaded returns the paths of every uploaded binary and symbol file, in order.
func (f *Fake) Uploaded() []string {
	f.lock.Lock()
	defer f.lock.Unlock()
	return append([]string{}, f.uploaded...)
}

func (f *Fake) record(op string, args ...any) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	call := op
	if len(args) > 0 {
		call += " " + strings.TrimSuffix(fmt.Sprintln(args...), "\n")
	}
	f.calls = append(f.calls, call)
	f.counts[op]++
	if err, ok := f.ErrorsAt[op][f.counts[op]]; ok {
		return err
	}
	return f.Errors[op]
}

func (f *Fake) upload(path string) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}
	f.lock.Lock()
	defer f.lock.Unlock()
	f.uploaded = append(f.uploaded, path)
	return nil
}

func (f *Fake) Dial(ctx context.Context, pkg model.PackageName, access model.Access) (publisher.Client, error) {
	if err := f.record("dial", pkg, access); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *Fake) OpenEdit(ctx context.Context) (model.EditID, error) {
	if err := f.record("open-edit"); err != nil {
		return "", err
	}
	return "edit-1", nil
}

func (f *Fake) UploadBinary(ctx context.Context, edit model.EditID, kind model.BinaryKind, path string) (model.VersionCode, error) {
	if err := f.record("upload", edit, kind); err != nil {
		return 0, err
	}
	if err := f.upload(path); err != nil {
		return 0, err
	}
	f.lock.Lock()
	defer f.lock.Unlock()
	code := f.nextCode
	f.nextCode++
	return code, nil
}

func (f *Fake) UploadSymbols(ctx context.Context, edit model.EditID, versionCode model.VersionCode, path string) (string, error) {
	if err := f.record("upload-symbols", edit, versionCode); err != nil {
		return "", err
	}
	if err := f.upload(path); err != nil {
		return "", err
	}
	return "proguard", nil
}

func (f *Fake) Promote(ctx context.Context, edit model.EditID, track string, versionCodes []model.VersionCode) error {
	return f.record("promote", edit, track, versionCodes)
}

func (f *Fake) Validate(ctx context.Context, edit model.EditID) error {
	return f.record("validate", edit)
}

func (f *Fake) Commit(ctx context.Context, edit model.EditID) error {
	return f.record("commit", edit)
}

func (f *Fake) ListTracks(ctx context.Context, edit model.EditID) ([]model.Track, error) {
	if err := f.record("list-tracks", edit); err != nil {
		return nil, err
	}
	return f.Tracks, nil
}

// DuplicateVersion returns the error the store reports for a reused version code.
func DuplicateVersion() error {
	return &publisher.RemoteError{
		Status:  403,
		Message: "APK specifies a version code that has already been used.",
		Body:    `{"error":{"code":403,"message":"APK specifies a version code that has already been used.","status":"PERMISSION_DENIED"}}`,
	}
}
