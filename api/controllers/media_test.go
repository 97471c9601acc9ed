package controllers

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/angelmondragon/civicpulse-backend/internal/media"
	"github.com/angelmondragon/civicpulse-backend/internal/policy"
	"github.com/angelmondragon/civicpulse-backend/pkg/config"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubMedia struct {
	files    [][]byte
	names    []string
	deleted  string
	gotNil   bool
	deleteFn func(publicID string) error
}

func (s *stubMedia) read(f *media.File) error {
	data, err := io.ReadAll(f.Body)
	if err != nil {
		return err
	}
	s.files = append(s.files, data)
	s.names = append(s.names, f.Name)
	return nil
}

func (s *stubMedia) UploadImage(_ context.Context, _ policy.Actor, f *media.File) (*media.Image, error) {
	if f == nil {
		s.gotNil = true
		return &media.Image{}, nil
	}
	if err := s.read(f); err != nil {
		return nil, err
	}
	return &media.Image{PublicID: "reports/x.png", URL: "https://cdn/reports/x.png", Format: "png"}, nil
}

func (s *stubMedia) UploadImages(_ context.Context, _ policy.Actor, files []*media.File) ([]media.Image, error) {
	out := make([]media.Image, 0, len(files))
	for _, f := range files {
		if err := s.read(f); err != nil {
			return nil, err
		}
		out = append(out, media.Image{PublicID: "reports/" + f.Name})
	}
	return out, nil
}

func (s *stubMedia) DeleteImage(_ context.Context, _ policy.Actor, publicID string) error {
	s.deleted = publicID
	if s.deleteFn != nil {
		return s.deleteFn(publicID)
	}
	return nil
}

var testMediaConfig = config.MediaConfig{MaxImageBytes: 1 << 10, MaxImagesPerRequest: 2, ObjectPrefix: "reports"}

func multipartRequest(t *testing.T, target, field string, parts map[string][]byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, data := range parts {
		fw, err := mw.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadImageField(t *testing.T) {
	svc := &stubMedia{}
	req := multipartRequest(t, "/api/upload/image", "image", map[string][]byte{"pic.png": []byte("png-bytes")})

	rec := serve(UploadImage(svc, testMediaConfig, nil), asActor(req, citizen))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, svc.files, 1)
	assert.Equal(t, "png-bytes", string(svc.files[0]))
	assert.Equal(t, "pic.png", svc.names[0])

	var body struct {
		Message string       `json:"message"`
		Image   *media.Image `json:"image"`
	}
	decodeBody(t, rec, &body)
	require.NotNil(t, body.Image)
	assert.Equal(t, "reports/x.png", body.Image.PublicID)
}

func TestUploadImageWrongFieldPassesNoFile(t *testing.T) {
	svc := &stubMedia{}
	req := multipartRequest(t, "/api/upload/image", "file", map[string][]byte{"pic.png": []byte("png-bytes")})

	rec := serve(UploadImage(svc, testMediaConfig, nil), asActor(req, citizen))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, svc.gotNil)
}

func TestUploadImageNotMultipart(t *testing.T) {
	rec := serve(UploadImage(&stubMedia{}, testMediaConfig, nil),
		asActor(jsonRequest(http.MethodPost, "/api/upload/image", `{}`), citizen))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, media.ReasonNoFile, decodeError(t, rec).Error)
}

func TestUploadImageBodyTooLarge(t *testing.T) {
	big := bytes.Repeat([]byte("a"), 4<<20)
	req := multipartRequest(t, "/api/upload/image", "image", map[string][]byte{"big.png": big})

	rec := serve(UploadImage(&stubMedia{}, testMediaConfig, nil), asActor(req, citizen))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, media.ReasonFileTooLarge, decodeError(t, rec).Error)
}

func TestUploadImagesField(t *testing.T) {
	svc := &stubMedia{}
	req := multipartRequest(t, "/api/upload/images", "images", map[string][]byte{
		"a.png": []byte("a"),
		"b.png": []byte("b"),
	})

	rec := serve(UploadImages(svc, testMediaConfig, nil), asActor(req, citizen))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.ElementsMatch(t, []string{"a.png", "b.png"}, svc.names)

	var body struct {
		Images []media.Image `json:"images"`
	}
	decodeBody(t, rec, &body)
	assert.Len(t, body.Images, 2)
}

func TestDeleteImageWildcard(t *testing.T) {
	svc := &stubMedia{}
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, asActor(req, citizen))
		})
	})
	r.Delete("/api/upload/*", DeleteImage(svc, nil))

	rec := serve(r, httptest.NewRequest(http.MethodDelete, "/api/upload/reports/abc.png", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "reports/abc.png", svc.deleted)
}
