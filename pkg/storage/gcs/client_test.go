package gcs

import (
	"context"
	"fmt"
	"testing"
	"time"

	"cloud.google.com/go/storage"
	"github.com/angelmondragon/civicpulse-backend/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublicURL(t *testing.T) {
	c := newClient(nil, config.GCSConfig{BucketName: "civic-media", PublicBase: "https://cdn.example.com/"})
	assert.Equal(t, "https://cdn.example.com/civic-media/reports/abc.png", c.PublicURL("reports/abc.png"))
	assert.Equal(t, "https://cdn.example.com/civic-media/reports/a%20b.png", c.PublicURL("/reports/a b.png"))
}

func TestNewClientDefaults(t *testing.T) {
	c := newClient(nil, config.GCSConfig{BucketName: "b"})
	assert.Equal(t, defaultTimeout, c.timeout)
	assert.Equal(t, "https://storage.googleapis.com/b/x.jpg", c.PublicURL("x.jpg"))

	c = newClient(nil, config.GCSConfig{BucketName: "b", Timeout: 3 * time.Second})
	assert.Equal(t, 3*time.Second, c.timeout)
	assert.Equal(t, "b", c.Bucket())
}

func TestTranslate(t *testing.T) {
	assert.ErrorIs(t, translate(storage.ErrObjectNotExist), ErrObjectNotFound)
	assert.ErrorIs(t, translate(fmt.Errorf("attrs: %w", storage.ErrObjectNotExist)), ErrObjectNotFound)
	assert.NoError(t, translate(nil))

	other := fmt.Errorf("permission denied")
	assert.Equal(t, other, translate(other))
}

func TestUninitializedClient(t *testing.T) {
	var c *Client
	_, err := c.Attrs(context.Background(), "x")
	require.Error(t, err)
	assert.Error(t, c.Delete(context.Background(), "x"))
	assert.Error(t, c.Ping(context.Background()))
	assert.Error(t, c.List(context.Background(), "reports/", func(*Object) error { return nil }))
	assert.NoError(t, c.Close())
}

func TestFromAttrs(t *testing.T) {
	assert.Nil(t, fromAttrs(nil))
	created := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	obj := fromAttrs(&storage.ObjectAttrs{
		Name:        "reports/1.png",
		ContentType: "image/png",
		Size:        42,
		Metadata:    map[string]string{"uploaded_by": "u1"},
		Created:     created,
	})
	assert.Equal(t, &Object{
		Name:        "reports/1.png",
		ContentType: "image/png",
		Size:        42,
		Metadata:    map[string]string{"uploaded_by": "u1"},
		Created:     created,
	}, obj)
}
