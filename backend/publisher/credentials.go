package publisher

import (
	"context"

	"github.com/alecthomas/errors"

	"github.com/spotify/android-store-service/internal/model"
	"github.com/spotify/android-store-service/internal/secrets"
)

const (
	globalSecret       = "googleplayapiaccess"
	globalViewerSecret = "googleplayapiaccess-viewer"
)

type credentialRule struct {
	secret   func(pkg model.PackageName) string
	readOnly bool
	// fallback rules are selected without checking that the secret exists.
	fallback bool
}

// Evaluated top to bottom, first match wins.
var credentialRules = []credentialRule{
	{secret: func(pkg model.PackageName) string { return pkg.String() + "-viewer" }, readOnly: true},
	{secret: func(pkg model.PackageName) string { return pkg.String() }},
	{secret: func(model.PackageName) string { return globalViewerSecret }, readOnly: true},
	{secret: func(model.PackageName) string { return globalSecret }, fallback: true},
}

// SelectCredentials returns the name of the secret to authenticate with.
func SelectCredentials(ctx context.Context, store secrets.Store, pkg model.PackageName, access model.Access) (string, error) {
	for _, rule := range credentialRules {
		if rule.readOnly && access != model.ReadOnly {
			continue
		}
		name := rule.secret(pkg)
		if rule.fallback {
			return name, nil
		}
		exists, err := store.Exists(ctx, name)
		if err != nil {
			return "", &ConfigurationError{Secret: name, Err: err}
		}
		if exists {
			return name, nil
		}
	}
	return "", errors.Errorf("no credentials rule matched %s", pkg)
}
