package staging

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"cloud.google.com/go/storage"
	"github.com/alecthomas/errors"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Fetchers returns a Fetcher for every supported link scheme.
//
// Cloud clients are created on first use so that credentials are only needed
// when links of that kind are published.
func Fetchers(cfg Config) []Fetcher {
	return []Fetcher{
		NewHTTPFetcher(&http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}),
		&GCSFetcher{open: lazyGCS()},
		&S3Fetcher{client: lazyS3(cfg)},
	}
}

// HTTPFetcher fetches http:// and https:// links.
type HTTPFetcher struct {
	client *http.Client
}

func NewHTTPFetcher(client *http.Client) *HTTPFetcher {
	return &HTTPFetcher{client: client}
}

func (h *HTTPFetcher) Schemes() []string { return []string{"http", "https"} }

func (h *HTTPFetcher) Fetch(ctx context.Context, link *url.URL, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link.String(), nil)
	if err != nil {
		return errors.WithStack(err)
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return errors.WithStack(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("unexpected status %s", resp.Status)
	}
	_, err = io.Copy(w, resp.Body)
	return errors.WithStack(err)
}

type objectOpener func(ctx context.Context, bucket, object string) (io.ReadCloser, error)

// GCSFetcher fetches gs://bucket/object links from Google Cloud Storage.
type GCSFetcher struct {
	open objectOpener
}

func (g *GCSFetcher) Schemes() []string { return []string{"gs"} }

func (g *GCSFetcher) Fetch(ctx context.Context, link *url.URL, w io.Writer) error {
	bucket, object, err := splitObjectURL(link)
	if err != nil {
		return err
	}
	r, err := g.open(ctx, bucket, object)
	if err != nil {
		return err
	}
	defer r.Close()
	_, err = io.Copy(w, r)
	return errors.WithStack(err)
}

func lazyGCS() objectOpener {
	newClient := lazyClient(func(ctx context.Context) (*storage.Client, error) {
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create GCS client")
		}
		return client, nil
	})
	return func(ctx context.Context, bucket, object string) (io.ReadCloser, error) {
		client, err := newClient()
		if err != nil {
			return nil, err
		}
		r, err := client.Bucket(bucket).Object(object).NewReader(ctx)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		return r, nil
	}
}

type s3ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Fetcher fetches s3://bucket/key links from Amazon S3.
type S3Fetcher struct {
	client func(ctx context.Context) (s3ObjectGetter, error)
}

func (s *S3Fetcher) Schemes() []string { return []string{"s3"} }

func (s *S3Fetcher) Fetch(ctx context.Context, link *url.URL, w io.Writer) error {
	bucket, key, err := splitObjectURL(link)
	if err != nil {
		return err
	}
	client, err := s.client(ctx)
	if err != nil {
		return err
	}
	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return errors.WithStack(err)
	}
	defer out.Body.Close()
	_, err = io.Copy(w, out.Body)
	return errors.WithStack(err)
}

func lazyS3(cfg Config) func(ctx context.Context) (s3ObjectGetter, error) {
	newClient := lazyClient(func(ctx context.Context) (s3ObjectGetter, error) {
		var optFns []func(*config.LoadOptions) error
		if cfg.S3Region != "" {
			optFns = append(optFns, config.WithRegion(cfg.S3Region))
		}
		awsConfig, err := config.LoadDefaultConfig(ctx, optFns...)
		if err != nil {
			return nil, errors.Wrap(err, "unable to load aws config")
		}
		return s3.NewFromConfig(awsConfig, func(o *s3.Options) {
			if cfg.S3Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.S3Endpoint)
				o.UsePathStyle = true
			}
		}), nil
	})
	return func(context.Context) (s3ObjectGetter, error) { return newClient() }
}

// lazyClient creates a client on first successful use. Failed attempts are
// retried by the next caller.
func lazyClient[T any](create func(ctx context.Context) (T, error)) func() (T, error) {
	var (
		lock   sync.Mutex
		client T
		ok     bool
	)
	return func() (T, error) {
		lock.Lock()
		defer lock.Unlock()
		if ok {
			return client, nil
		}
		created, err := create(context.Background())
		if err != nil {
			return created, err
		}
		client, ok = created, true
		return client, nil
	}
}

func splitObjectURL(link *url.URL) (bucket, object string, err error) {
	object = strings.TrimPrefix(link.Path, "/")
	if link.Host == "" || object == "" {
		return "", "", errors.Errorf("expected %s://<bucket>/<object>", link.Scheme)
	}
	return link.Host, object, nil
}
