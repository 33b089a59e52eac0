package secrets

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/smithy-go"
)

func TestDirStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "secret"), []byte("foobar\n"), 0600))
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "empty_secret"), nil, 0600))
	store := NewDirStore(dir)

	for _, test := range []struct {
		name     string
		exists   bool
		expected string
	}{
		{name: "secret", exists: true, expected: "foobar\n"},
		{name: "empty_secret", exists: true, expected: ""},
		{name: "secret-does-not-exist", exists: false},
	} {
		t.Run(test.name, func(t *testing.T) {
			exists, err := store.Exists(ctx, test.name)
			assert.NoError(t, err)
			assert.Equal(t, test.exists, exists)

			data, err := store.Load(ctx, test.name)
			if !test.exists {
				assert.IsError(t, err, ErrNotFound)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, test.expected, string(data))
		})
	}
}

type fakeASM map[string]string

func (f fakeASM) GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	value, ok := f[*params.SecretId]
	if !ok {
		return nil, &smithy.GenericAPIError{Code: "ResourceNotFoundException", Message: "not found"}
	}
	return &secretsmanager.GetSecretValueOutput{SecretString: aws.String(value)}, nil
}

func TestASMStore(t *testing.T) {
	ctx := context.Background()
	store := &ASMStore{
		prefix: "android-store/",
		client: fakeASM{"android-store/googleplayapiaccess": `{"type": "service_account"}`},
	}

	exists, err := store.Exists(ctx, "googleplayapiaccess")
	assert.NoError(t, err)
	assert.True(t, exists)

	data, err := store.Load(ctx, "googleplayapiaccess")
	assert.NoError(t, err)
	assert.Equal(t, `{"type": "service_account"}`, string(data))

	exists, err = store.Exists(ctx, "com.example")
	assert.NoError(t, err)
	assert.False(t, exists)

	_, err = store.Load(ctx, "com.example")
	assert.IsError(t, err, ErrNotFound)
}

func TestNewUnknownProvider(t *testing.T) {
	_, err := New(context.Background(), Config{Provider: "vault"})
	assert.EqualError(t, err, `unknown secrets provider "vault"`)
}
