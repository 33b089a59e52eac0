package staging

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/alecthomas/errors"
	"github.com/alecthomas/types/optional"

	"github.com/spotify/android-store-service/internal/log"
	"github.com/spotify/android-store-service/internal/model"
)

func encode(s string) string { return base64.StdEncoding.EncodeToString([]byte(s)) }

func scope(t *testing.T, fetchers ...Fetcher) (context.Context, *Dir) {
	t.Helper()
	ctx := log.ContextWithNewDefaultLogger(context.Background())
	dir, err := New(Config{Dir: t.TempDir()}, fetchers...).Scope(ctx)
	assert.NoError(t, err)
	t.Cleanup(func() { _ = dir.Close() })
	return ctx, dir
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	assert.NoError(t, err)
	return string(data)
}

func TestStage(t *testing.T) {
	ctx, dir := scope(t)
	staged, err := dir.Stage(ctx, []model.Binary{
		{SHA1: "a", SHA256: "b", MediaBody: encode("first"), DeobfuscationFile: optional.Some(encode("com.A -> a:"))},
		{SHA1: "c", SHA256: "d", MediaBody: encode("second")},
	})
	assert.NoError(t, err)
	assert.Equal(t, 2, len(staged))

	assert.Equal(t, "first", readFile(t, staged[0].BinaryPath))
	symbols, ok := staged[0].SymbolPath.Get()
	assert.True(t, ok)
	assert.Equal(t, "com.A -> a:", readFile(t, symbols))

	assert.Equal(t, "second", readFile(t, staged[1].BinaryPath))
	assert.False(t, staged[1].SymbolPath.Ok())

	for _, s := range staged {
		assert.Equal(t, dir.Path(), filepath.Dir(s.BinaryPath))
	}
}

func TestStageToleratesLineBreaks(t *testing.T) {
	ctx, dir := scope(t)
	encoded := encode("a payload long enough to wrap")
	wrapped := encoded[:8] + "\n" + encoded[8:16] + "\r\n" + encoded[16:]
	staged, err := dir.Stage(ctx, []model.Binary{{MediaBody: wrapped}})
	assert.NoError(t, err)
	assert.Equal(t, "a payload long enough to wrap", readFile(t, staged[0].BinaryPath))
}

func TestStageDecodeErrors(t *testing.T) {
	for _, test := range []struct {
		name   string
		binary model.Binary
		field  string
	}{
		{name: "MalformedMedia", binary: model.Binary{MediaBody: "not base64!"}, field: "media_body"},
		{name: "MalformedSymbols", binary: model.Binary{MediaBody: encode("ok"), DeobfuscationFile: optional.Some("%%%")}, field: "deobfuscation_file"},
		{name: "BinarySymbols", binary: model.Binary{MediaBody: encode("ok"), DeobfuscationFile: optional.Some(base64.StdEncoding.EncodeToString([]byte{0xff, 0xfe, 0x00}))}, field: "deobfuscation_file"},
	} {
		t.Run(test.name, func(t *testing.T) {
			ctx, dir := scope(t)
			_, err := dir.Stage(ctx, []model.Binary{{MediaBody: encode("fine")}, test.binary})
			var derr *DecodeError
			assert.True(t, errors.As(err, &derr), "expected DecodeError but got %v", err)
			assert.Equal(t, 1, derr.Index)
			assert.Equal(t, test.field, derr.Field)
		})
	}
}

func TestCloseRemovesDirectory(t *testing.T) {
	ctx := log.ContextWithNewDefaultLogger(context.Background())
	root := t.TempDir()
	dir, err := New(Config{Dir: root}).Scope(ctx)
	assert.NoError(t, err)
	_, err = dir.Stage(ctx, []model.Binary{{MediaBody: encode("payload"), DeobfuscationFile: optional.Some(encode("map"))}})
	assert.NoError(t, err)

	assert.NoError(t, dir.Close())
	_, err = os.Stat(dir.Path())
	assert.True(t, os.IsNotExist(err))
	entries, err := os.ReadDir(root)
	assert.NoError(t, err)
	assert.Equal(t, 0, len(entries))
}
