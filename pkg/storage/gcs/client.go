package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/angelmondragon/civicpulse-backend/pkg/config"
	"github.com/angelmondragon/civicpulse-backend/pkg/gcp"
	"github.com/angelmondragon/civicpulse-backend/pkg/logger"
	"google.golang.org/api/iterator"
)

const (
	pingTimeout    = 5 * time.Second
	defaultTimeout = 30 * time.Second
)

// ErrObjectNotFound is returned when the named object does not exist.
var ErrObjectNotFound = errors.New("gcs object not found")

// Object describes a stored object.
type Object struct {
	Name        string
	ContentType string
	Size        int64
	Metadata    map[string]string
	Created     time.Time
}

type Client struct {
	client     *storage.Client
	bucket     string
	publicBase string
	timeout    time.Duration
}

type Pinger interface {
	Ping(ctx context.Context) error
}

func NewClient(ctx context.Context, cfg config.GCSConfig, gcpCfg config.GCPConfig, logg *logger.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.BucketName) == "" {
		return nil, errors.New("gcs bucket name is required")
	}

	sc, err := storage.NewClient(ctx, gcp.ClientOptions(gcpCfg)...)
	if err != nil {
		return nil, fmt.Errorf("creating gcs client: %w", err)
	}

	client := newClient(sc, cfg)
	if err := client.Ping(ctx); err != nil {
		_ = sc.Close()
		return nil, fmt.Errorf("gcs health check failed: %w", err)
	}

	if logg != nil {
		logg.Info(logg.WithField(ctx, "bucket", cfg.BucketName), "gcs client initialized")
	}
	return client, nil
}

func newClient(sc *storage.Client, cfg config.GCSConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.PublicBase), "/")
	if base == "" {
		base = "https://storage.googleapis.com"
	}
	return &Client{
		client:     sc,
		bucket:     cfg.BucketName,
		publicBase: base,
		timeout:    timeout,
	}
}

func (c *Client) Bucket() string {
	if c == nil {
		return ""
	}
	return c.bucket
}

// PublicURL is the browser-facing address of an object.
func (c *Client) PublicURL(name string) string {
	segments := strings.Split(strings.TrimLeft(name, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return fmt.Sprintf("%s/%s/%s", c.publicBase, url.PathEscape(c.bucket), strings.Join(segments, "/"))
}

// Upload streams body into name and returns the stored attributes.
func (c *Client) Upload(ctx context.Context, name, contentType string, metadata map[string]string, body io.Reader) (*Object, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("gcs client not initialized")
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	w := c.client.Bucket(c.bucket).Object(name).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.ContentType = contentType
	w.Metadata = metadata
	w.CacheControl = "public, max-age=31536000"

	if _, err := io.Copy(w, body); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("writing %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finalizing %s: %w", name, err)
	}
	return fromAttrs(w.Attrs()), nil
}

// Attrs loads object attributes, returning ErrObjectNotFound when absent.
func (c *Client) Attrs(ctx context.Context, name string) (*Object, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("gcs client not initialized")
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	attrs, err := c.client.Bucket(c.bucket).Object(name).Attrs(ctx)
	if err != nil {
		return nil, translate(err)
	}
	return fromAttrs(attrs), nil
}

// Delete removes an object, returning ErrObjectNotFound when absent.
func (c *Client) Delete(ctx context.Context, name string) error {
	if c == nil || c.client == nil {
		return errors.New("gcs client not initialized")
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	return translate(c.client.Bucket(c.bucket).Object(name).Delete(ctx))
}

// List calls fn for every object under prefix. Returning an error from fn
// stops the walk.
func (c *Client) List(ctx context.Context, prefix string, fn func(*Object) error) error {
	if c == nil || c.client == nil {
		return errors.New("gcs client not initialized")
	}
	it := c.client.Bucket(c.bucket).Objects(ctx, &storage.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("listing %s: %w", prefix, err)
		}
		if err := fn(fromAttrs(attrs)); err != nil {
			return err
		}
	}
}

func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errors.New("gcs client not initialized")
	}
	if c.bucket == "" {
		return errors.New("gcs bucket not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if _, err := c.client.Bucket(c.bucket).Attrs(ctx); err != nil {
		if errors.Is(err, storage.ErrBucketNotExist) {
			return fmt.Errorf("bucket %q does not exist", c.bucket)
		}
		return err
	}
	return nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

func translate(err error) error {
	if errors.Is(err, storage.ErrObjectNotExist) {
		return ErrObjectNotFound
	}
	return err
}

func fromAttrs(attrs *storage.ObjectAttrs) *Object {
	if attrs == nil {
		return nil
	}
	return &Object{
		Name:        attrs.Name,
		ContentType: attrs.ContentType,
		Size:        attrs.Size,
		Metadata:    attrs.Metadata,
		Created:     attrs.Created,
	}
}
