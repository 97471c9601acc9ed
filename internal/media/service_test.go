package media

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/angelmondragon/civicpulse-backend/internal/policy"
	"github.com/angelmondragon/civicpulse-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/civicpulse-backend/pkg/errors"
	"github.com/angelmondragon/civicpulse-backend/pkg/storage/gcs"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	mu        sync.Mutex
	objects   map[string]*gcs.Object
	uploadErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: map[string]*gcs.Object{}}
}

func (m *memoryStore) Upload(_ context.Context, name, contentType string, metadata map[string]string, body io.Reader) (*gcs.Object, error) {
	if m.uploadErr != nil {
		return nil, m.uploadErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	obj := &gcs.Object{Name: name, ContentType: contentType, Size: int64(len(data)), Metadata: metadata}
	m.objects[name] = obj
	return obj, nil
}

func (m *memoryStore) Attrs(_ context.Context, name string) (*gcs.Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[name]
	if !ok {
		return nil, gcs.ErrObjectNotFound
	}
	return obj, nil
}

func (m *memoryStore) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[name]; !ok {
		return gcs.ErrObjectNotFound
	}
	delete(m.objects, name)
	return nil
}

func (m *memoryStore) PublicURL(name string) string {
	return "https://cdn.test/bucket/" + name
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func webpBytes() []byte {
	b := []byte("RIFF\x24\x00\x00\x00WEBPVP8 ")
	return append(b, make([]byte, 24)...)
}

func newTestService(t *testing.T, store *memoryStore) Service {
	t.Helper()
	svc, err := NewService(store, config.MediaConfig{
		MaxImageBytes:       1024,
		MaxImagesPerRequest: 2,
		ObjectPrefix:        "reports",
	}, nil)
	require.NoError(t, err)
	return svc
}

func TestUploadImageStoresSniffedPNG(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(t, store)
	owner := policy.Citizen{UserID: uuid.New()}
	data := pngBytes(t, 4, 3)

	img, err := svc.UploadImage(context.Background(), owner, &File{Name: "photo.jpg", Body: bytes.NewReader(data)})
	require.NoError(t, err)

	assert.Equal(t, "png", img.Format)
	assert.Equal(t, 4, img.Width)
	assert.Equal(t, 3, img.Height)
	assert.EqualValues(t, len(data), img.Size)
	assert.True(t, strings.HasPrefix(img.PublicID, "reports/"))
	assert.True(t, strings.HasSuffix(img.PublicID, ".png"))
	assert.Equal(t, "https://cdn.test/bucket/"+img.PublicID, img.URL)

	stored := store.objects[img.PublicID]
	require.NotNil(t, stored)
	assert.Equal(t, "image/png", stored.ContentType)
	assert.Equal(t, owner.UserID.String(), stored.Metadata[metadataUploadedBy])
	assert.Equal(t, "photo.jpg", stored.Metadata["original_name"])
}

func TestUploadImageWebPHasNoDimensions(t *testing.T) {
	svc := newTestService(t, newMemoryStore())

	img, err := svc.UploadImage(context.Background(), policy.Citizen{UserID: uuid.New()}, &File{Name: "a.webp", Body: bytes.NewReader(webpBytes())})
	require.NoError(t, err)
	assert.Equal(t, "webp", img.Format)
	assert.Zero(t, img.Width)
	assert.Zero(t, img.Height)
}

func TestUploadImageRejections(t *testing.T) {
	svc := newTestService(t, newMemoryStore())
	actor := policy.Citizen{UserID: uuid.New()}

	cases := []struct {
		name   string
		file   *File
		reason string
	}{
		{"missing", nil, ReasonNoFile},
		{"empty", &File{Name: "x.png", Body: bytes.NewReader(nil)}, ReasonNoFile},
		{"declared too large", &File{Name: "x.png", Size: 4096, Body: bytes.NewReader([]byte{1})}, ReasonFileTooLarge},
		{"actually too large", &File{Name: "x.png", Body: bytes.NewReader(make([]byte, 2048))}, ReasonFileTooLarge},
		{"not an image", &File{Name: "x.png", Body: strings.NewReader("just some plain text, nothing else")}, ReasonInvalidFileType},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.UploadImage(context.Background(), actor, tc.file)
			require.Error(t, err)
			assert.True(t, pkgerrors.Is(err, tc.reason), "got %v", err)
			assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
		})
	}
}

func TestUploadImageStorageFailure(t *testing.T) {
	store := newMemoryStore()
	store.uploadErr = errors.New("503 backend")
	svc := newTestService(t, store)

	_, err := svc.UploadImage(context.Background(), policy.Citizen{UserID: uuid.New()}, &File{Body: bytes.NewReader(pngBytes(t, 1, 1))})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.As(err).Code())
}

func TestUploadImagesLimits(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(t, store)
	actor := policy.Citizen{UserID: uuid.New()}
	file := func() *File { return &File{Body: bytes.NewReader(pngBytes(t, 2, 2))} }

	imgs, err := svc.UploadImages(context.Background(), actor, []*File{file(), file()})
	require.NoError(t, err)
	require.Len(t, imgs, 2)
	assert.NotEqual(t, imgs[0].PublicID, imgs[1].PublicID)

	_, err = svc.UploadImages(context.Background(), actor, []*File{file(), file(), file()})
	assert.True(t, pkgerrors.Is(err, ReasonTooManyFiles))

	_, err = svc.UploadImages(context.Background(), actor, nil)
	assert.True(t, pkgerrors.Is(err, ReasonNoFile))
}

func TestDeleteImageOwnership(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(t, store)
	ctx := context.Background()
	owner := policy.Citizen{UserID: uuid.New()}
	stranger := policy.Citizen{UserID: uuid.New()}
	admin := policy.Administrator{UserID: uuid.New()}

	first, err := svc.UploadImage(ctx, owner, &File{Body: bytes.NewReader(pngBytes(t, 1, 1))})
	require.NoError(t, err)
	second, err := svc.UploadImage(ctx, owner, &File{Body: bytes.NewReader(pngBytes(t, 1, 1))})
	require.NoError(t, err)

	err = svc.DeleteImage(ctx, stranger, first.PublicID)
	assert.True(t, pkgerrors.Is(err, ReasonAccessDenied))

	require.NoError(t, svc.DeleteImage(ctx, owner, first.PublicID))
	assert.True(t, pkgerrors.Is(svc.DeleteImage(ctx, owner, first.PublicID), ReasonImageNotFound))

	require.NoError(t, svc.DeleteImage(ctx, admin, "/"+second.PublicID))
	assert.Empty(t, store.objects)
}

func TestDeleteImageOutsidePrefix(t *testing.T) {
	svc := newTestService(t, newMemoryStore())
	actor := policy.Administrator{UserID: uuid.New()}

	for _, id := range []string{"", "other/x.png", "reports/../secrets.png", "reports"} {
		err := svc.DeleteImage(context.Background(), actor, id)
		assert.True(t, pkgerrors.Is(err, ReasonImageNotFound), "publicId %q", id)
	}
}

func TestNewServiceRequiresConfig(t *testing.T) {
	_, err := NewService(nil, config.MediaConfig{MaxImageBytes: 1, MaxImagesPerRequest: 1}, nil)
	assert.Error(t, err)
	_, err = NewService(newMemoryStore(), config.MediaConfig{MaxImagesPerRequest: 1}, nil)
	assert.Error(t, err)
}
