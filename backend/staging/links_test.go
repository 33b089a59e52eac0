package staging

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/alecthomas/errors"
	"github.com/alecthomas/types/optional"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/spotify/android-store-service/internal/model"
)

func digest(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func newLinkServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/app.apk":
			_, _ = io.WriteString(w, "apk-bytes")
		case "/mapping.txt":
			_, _ = io.WriteString(w, "com.A -> a:")
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

type fakeS3 map[string]string

func (f fakeS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	content, ok := f[*params.Bucket+"/"+*params.Key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewBufferString(content))}, nil
}

func fakeGCS(objects map[string]string) objectOpener {
	return func(ctx context.Context, bucket, object string) (io.ReadCloser, error) {
		content, ok := objects[bucket+"/"+object]
		if !ok {
			return nil, errors.New("object doesn't exist")
		}
		return io.NopCloser(bytes.NewBufferString(content)), nil
	}
}

func TestStageLinks(t *testing.T) {
	srv := newLinkServer(t)
	fetchers := []Fetcher{
		NewHTTPFetcher(srv.Client()),
		&GCSFetcher{open: fakeGCS(map[string]string{"builds/release/app.aab": "gcs-bytes"})},
		&S3Fetcher{client: func(context.Context) (s3ObjectGetter, error) {
			return fakeS3{"builds/release/app.aab": "s3-bytes"}, nil
		}},
	}
	ctx, dir := scope(t, fetchers...)
	staged, err := dir.StageLinks(ctx, []model.LinkedBinary{
		{SHA256: digest("apk-bytes"), MediaBodyLink: srv.URL + "/app.apk", DeobfuscationFileLink: optional.Some(srv.URL + "/mapping.txt")},
		{SHA256: digest("gcs-bytes"), MediaBodyLink: "gs://builds/release/app.aab"},
		{SHA256: digest("s3-bytes"), MediaBodyLink: "s3://builds/release/app.aab"},
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, len(staged))
	assert.Equal(t, "apk-bytes", readFile(t, staged[0].BinaryPath))
	assert.Equal(t, "com.A -> a:", readFile(t, staged[0].SymbolPath.MustGet()))
	assert.Equal(t, "gcs-bytes", readFile(t, staged[1].BinaryPath))
	assert.Equal(t, "s3-bytes", readFile(t, staged[2].BinaryPath))
	assert.False(t, staged[2].SymbolPath.Ok())
}

func TestStageLinksErrors(t *testing.T) {
	srv := newLinkServer(t)
	for _, test := range []struct {
		name     string
		binary   model.LinkedBinary
		checksum bool
	}{
		{name: "ChecksumMismatch", binary: model.LinkedBinary{SHA256: digest("other"), MediaBodyLink: srv.URL + "/app.apk"}, checksum: true},
		{name: "NotFound", binary: model.LinkedBinary{SHA256: digest("apk-bytes"), MediaBodyLink: srv.URL + "/missing.apk"}},
		{name: "UnsupportedScheme", binary: model.LinkedBinary{SHA256: digest("apk-bytes"), MediaBodyLink: "ftp://host/app.apk"}},
		{name: "MissingSymbols", binary: model.LinkedBinary{SHA256: digest("apk-bytes"), MediaBodyLink: srv.URL + "/app.apk", DeobfuscationFileLink: optional.Some(srv.URL + "/missing.txt")}},
		{name: "MissingBucket", binary: model.LinkedBinary{SHA256: digest("apk-bytes"), MediaBodyLink: "gs:///app.apk"}},
	} {
		t.Run(test.name, func(t *testing.T) {
			ctx, dir := scope(t, NewHTTPFetcher(srv.Client()), &GCSFetcher{open: fakeGCS(nil)})
			_, err := dir.StageLinks(ctx, []model.LinkedBinary{test.binary})
			if test.checksum {
				var cerr *ChecksumError
				assert.True(t, errors.As(err, &cerr), "expected ChecksumError but got %v", err)
				assert.Equal(t, digest("apk-bytes"), cerr.Actual)
				return
			}
			var lerr *LinkError
			assert.True(t, errors.As(err, &lerr), "expected LinkError but got %v", err)
		})
	}
}

func TestLazyClientRetriesFailures(t *testing.T) {
	attempts := 0
	newClient := lazyClient(func(ctx context.Context) (string, error) {
		attempts++
		assert.NoError(t, ctx.Err())
		if attempts == 1 {
			return "", errors.New("no credentials yet")
		}
		return "client", nil
	})

	_, err := newClient()
	assert.EqualError(t, err, "no credentials yet")

	client, err := newClient()
	assert.NoError(t, err)
	assert.Equal(t, "client", client)

	client, err = newClient()
	assert.NoError(t, err)
	assert.Equal(t, "client", client)
	assert.Equal(t, 2, attempts)
}
