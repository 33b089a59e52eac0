package secrets

import (
	"context"
	"os"
	"path/filepath"

	"github.com/alecthomas/errors"
)

var _ Store = DirStore{}

// DirStore reads secrets from files named after the secret in a directory.
type DirStore struct {
	path string
}

func NewDirStore(path string) DirStore {
	return DirStore{path: path}
}

func (d DirStore) Exists(ctx context.Context, name string) (bool, error) {
	_, err := os.Stat(d.file(name))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	} else if err != nil {
		return false, errors.Wrapf(err, "secret %s", name)
	}
	return true, nil
}

func (d DirStore) Load(ctx context.Context, name string) ([]byte, error) {
	data, err := os.ReadFile(d.file(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, errors.Wrapf(ErrNotFound, "secret %s does not exist at %s", name, d.file(name))
	} else if err != nil {
		return nil, errors.Wrapf(err, "secret %s", name)
	}
	return data, nil
}

func (d DirStore) file(name string) string {
	return filepath.Join(d.path, filepath.Base(name))
}
