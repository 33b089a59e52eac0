// Package secrets resolves the named service account credentials used to talk
// to the Play Developer API.
package secrets

import (
	"context"

	"github.com/alecthomas/errors"
)

// ErrNotFound is returned by Store.Load when a secret does not exist.
var ErrNotFound = errors.New("secret not found")

// Store is a read-only source of named secrets.
type Store interface {
	// Exists reports whether the named secret exists.
	Exists(ctx context.Context, name string) (bool, error)
	// Load returns the secret's contents or an error wrapping ErrNotFound.
	Load(ctx context.Context, name string) ([]byte, error)
}

type Config struct {
	Provider string    `help:"Secret store holding service account credentials (${enum})." enum:"dir,asm" default:"dir" env:"SECRETS_PROVIDER"`
	Path     string    `help:"Directory holding one credential file per secret name." default:"/etc/android-store-service/secrets" env:"SECRETS_PATH"`
	ASM      ASMConfig `embed:"" prefix:"asm-"`
}

// New creates the Store selected by the config.
func New(ctx context.Context, config Config) (Store, error) {
	switch config.Provider {
	case "", "dir":
		return NewDirStore(config.Path), nil
	case "asm":
		return NewASMStore(ctx, config.ASM)
	default:
		return nil, errors.Errorf("unknown secrets provider %q", config.Provider)
	}
}
