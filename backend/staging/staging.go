// Package staging materialises uploaded binaries on local disk so they can be
// streamed to the Play Developer API.
package staging

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/alecthomas/errors"
	"github.com/alecthomas/types/optional"

	"github.com/spotify/android-store-service/internal/log"
	"github.com/spotify/android-store-service/internal/model"
)

type Config struct {
	Dir          string        `help:"Root for request scoped staging directories. Defaults to the system temporary directory." env:"STAGING_DIR"`
	FetchTimeout time.Duration `help:"Timeout for downloading one linked binary." default:"10m" env:"STAGING_FETCH_TIMEOUT"`
	S3Region     string        `help:"AWS region used for s3:// links." env:"STAGING_S3_REGION"`
	S3Endpoint   string        `help:"Override the S3 endpoint used for s3:// links." env:"STAGING_S3_ENDPOINT"`
}

// Staged is the on-disk location of one staged binary.
type Staged struct {
	BinaryPath string
	SymbolPath optional.Option[string]
}

// DecodeError is returned when a binary or symbol payload cannot be decoded.
type DecodeError struct {
	Index int
	Field string
	Err   error
}

func (d *DecodeError) Error() string {
	return fmt.Sprintf("binary %d: invalid %s: %s", d.Index, d.Field, d.Err)
}

func (d *DecodeError) Unwrap() error { return d.Err }

// Stager creates request scoped staging directories.
type Stager struct {
	config   Config
	fetchers map[string]Fetcher
}

// New creates a Stager. Fetchers are used to resolve linked binaries by URL scheme.
func New(config Config, fetchers ...Fetcher) *Stager {
	s := &Stager{config: config, fetchers: map[string]Fetcher{}}
	for _, fetcher := range fetchers {
		for _, scheme := range fetcher.Schemes() {
			s.fetchers[scheme] = fetcher
		}
	}
	return s
}

// Scope creates a new staging directory. The caller must Close it.
func (s *Stager) Scope(ctx context.Context) (*Dir, error) {
	path, err := os.MkdirTemp(s.config.Dir, "android-store-")
	if err != nil {
		return nil, errors.Wrap(err, "failed to create staging directory")
	}
	log.FromContext(ctx).Scope("staging").Tracef("Created %s", path)
	return &Dir{path: path, config: s.config, fetchers: s.fetchers}, nil
}

// Dir is a request scoped staging directory.
type Dir struct {
	path     string
	config   Config
	fetchers map[string]Fetcher
}

func (d *Dir) Path() string { return d.path }

// Close removes the directory and everything staged in it.
func (d *Dir) Close() error {
	return errors.WithStack(os.RemoveAll(d.path))
}

// Stage decodes base64 payloads into the directory, one Staged per binary in input order.
func (d *Dir) Stage(ctx context.Context, binaries []model.Binary) ([]Staged, error) {
	staged := make([]Staged, 0, len(binaries))
	for i, binary := range binaries {
		out := Staged{BinaryPath: d.file("binary", i)}
		err := writeFile(out.BinaryPath, base64.NewDecoder(base64.StdEncoding, strings.NewReader(binary.MediaBody)))
		if err != nil {
			return nil, decodeError(i, "media_body", err)
		}
		if symbols, ok := binary.DeobfuscationFile.Get(); ok {
			data, err := base64.StdEncoding.DecodeString(symbols)
			if err != nil {
				return nil, &DecodeError{Index: i, Field: "deobfuscation_file", Err: err}
			}
			path, err := d.writeSymbols(i, data)
			if err != nil {
				return nil, err
			}
			out.SymbolPath = optional.Some(path)
		}
		staged = append(staged, out)
	}
	log.FromContext(ctx).Scope("staging").Debugf("Staged %d binaries in %s", len(staged), d.path)
	return staged, nil
}

func (d *Dir) writeSymbols(index int, data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", &DecodeError{Index: index, Field: "deobfuscation_file", Err: errors.New("not UTF-8 text")}
	}
	path := d.file("mapping", index)
	if err := os.WriteFile(path, data, 0600); err != nil {
		return "", errors.Wrap(err, "failed to stage deobfuscation file")
	}
	return path, nil
}

func (d *Dir) file(prefix string, index int) string {
	return filepath.Join(d.path, fmt.Sprintf("%s-%d", prefix, index))
}

func writeFile(path string, r io.Reader) error {
	w, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return errors.WithStack(err)
	}
	_, err = io.Copy(w, r)
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	return err
}

func decodeError(index int, field string, err error) error {
	var corrupt base64.CorruptInputError
	if errors.As(err, &corrupt) {
		return &DecodeError{Index: index, Field: field, Err: err}
	}
	return errors.Wrapf(err, "failed to stage binary %d", index)
}
