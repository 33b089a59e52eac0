package staging

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/alecthomas/errors"
	"github.com/alecthomas/types/optional"

	"github.com/spotify/android-store-service/internal/log"
	"github.com/spotify/android-store-service/internal/model"
)

// Fetcher downloads the object at a URL.
type Fetcher interface {
	// Schemes returns the URL schemes this Fetcher handles.
	Schemes() []string
	Fetch(ctx context.Context, link *url.URL, w io.Writer) error
}

// LinkError is returned when a linked payload cannot be fetched.
type LinkError struct {
	Link string
	Err  error
}

func (l *LinkError) Error() string {
	return fmt.Sprintf("unable to fetch %s: %s", l.Link, l.Err)
}

func (l *LinkError) Unwrap() error { return l.Err }

// ChecksumError is returned when a fetched binary does not match its declared SHA-256.
type ChecksumError struct {
	Index    int
	Expected string
	Actual   string
}

func (c *ChecksumError) Error() string {
	return fmt.Sprintf("binary %d: sha256 mismatch: expected %s but got %s", c.Index, c.Expected, c.Actual)
}

// StageLinks downloads linked payloads into the directory, one Staged per binary in input order.
func (d *Dir) StageLinks(ctx context.Context, binaries []model.LinkedBinary) ([]Staged, error) {
	logger := log.FromContext(ctx).Scope("staging")
	staged := make([]Staged, 0, len(binaries))
	for i, binary := range binaries {
		out := Staged{BinaryPath: d.file("binary", i)}
		sum, err := d.fetchFile(ctx, binary.MediaBodyLink, out.BinaryPath)
		if err != nil {
			return nil, err
		}
		if !strings.EqualFold(sum, binary.SHA256) {
			return nil, &ChecksumError{Index: i, Expected: binary.SHA256, Actual: sum}
		}
		if link, ok := binary.DeobfuscationFileLink.Get(); ok {
			data, err := d.fetchBytes(ctx, link)
			if err != nil {
				return nil, err
			}
			path, err := d.writeSymbols(i, data)
			if err != nil {
				return nil, err
			}
			out.SymbolPath = optional.Some(path)
		}
		logger.Debugf("Fetched %s", binary.MediaBodyLink)
		staged = append(staged, out)
	}
	return staged, nil
}

// fetchFile writes the linked object to path and returns its hex encoded SHA-256.
func (d *Dir) fetchFile(ctx context.Context, link, path string) (string, error) {
	w, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return "", errors.WithStack(err)
	}
	defer w.Close()
	h := sha256.New()
	if err := d.fetch(ctx, link, io.MultiWriter(w, h)); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", errors.WithStack(err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func (d *Dir) fetchBytes(ctx context.Context, link string) ([]byte, error) {
	buf := &strings.Builder{}
	if err := d.fetch(ctx, link, buf); err != nil {
		return nil, err
	}
	return []byte(buf.String()), nil
}

func (d *Dir) fetch(ctx context.Context, link string, w io.Writer) error {
	u, err := url.Parse(link)
	if err != nil {
		return &LinkError{Link: link, Err: err}
	}
	fetcher, ok := d.fetchers[u.Scheme]
	if !ok {
		return &LinkError{Link: link, Err: errors.Errorf("unsupported scheme %q", u.Scheme)}
	}
	if d.config.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.config.FetchTimeout)
		defer cancel()
	}
	if err := fetcher.Fetch(ctx, u, w); err != nil {
		return &LinkError{Link: link, Err: err}
	}
	return nil
}
