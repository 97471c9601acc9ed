package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/angelmondragon/civicpulse-backend/internal/policy"
	"github.com/angelmondragon/civicpulse-backend/pkg/config"
	"github.com/angelmondragon/civicpulse-backend/pkg/logger"
	"github.com/angelmondragon/civicpulse-backend/pkg/storage/gcs"
	"github.com/google/uuid"
)

const metadataUploadedBy = "uploaded_by"

type objectStore interface {
	Upload(ctx context.Context, name, contentType string, metadata map[string]string, body io.Reader) (*gcs.Object, error)
	Attrs(ctx context.Context, name string) (*gcs.Object, error)
	Delete(ctx context.Context, name string) error
	PublicURL(name string) string
}

// File is one uploaded part. Size is the client-declared length when known.
type File struct {
	Name string
	Size int64
	Body io.Reader
}

// Image is what the API returns for a stored upload.
type Image struct {
	URL      string `json:"url"`
	PublicID string `json:"publicId"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Format   string `json:"format"`
	Size     int64  `json:"size"`
}

// Service stores report images in object storage.
type Service interface {
	UploadImage(ctx context.Context, actor policy.Actor, file *File) (*Image, error)
	UploadImages(ctx context.Context, actor policy.Actor, files []*File) ([]Image, error)
	DeleteImage(ctx context.Context, actor policy.Actor, publicID string) error
}

type service struct {
	store    objectStore
	logg     *logger.Logger
	maxBytes int64
	maxFiles int
	prefix   string
}

func NewService(store objectStore, cfg config.MediaConfig, logg *logger.Logger) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("object store required")
	}
	if cfg.MaxImageBytes <= 0 {
		return nil, fmt.Errorf("max image bytes must be positive")
	}
	if cfg.MaxImagesPerRequest <= 0 {
		return nil, fmt.Errorf("max images per request must be positive")
	}
	prefix := strings.Trim(strings.TrimSpace(cfg.ObjectPrefix), "/")
	if prefix == "" {
		prefix = "reports"
	}
	return &service{
		store:    store,
		logg:     logg,
		maxBytes: cfg.MaxImageBytes,
		maxFiles: cfg.MaxImagesPerRequest,
		prefix:   prefix,
	}, nil
}

func (s *service) UploadImage(ctx context.Context, actor policy.Actor, file *File) (*Image, error) {
	if file == nil || file.Body == nil {
		return nil, errNoFile()
	}
	if file.Size > s.maxBytes {
		return nil, errFileTooLarge(s.maxBytes)
	}

	data, err := io.ReadAll(io.LimitReader(file.Body, s.maxBytes+1))
	if err != nil {
		return nil, errNoFile()
	}
	if len(data) == 0 {
		return nil, errNoFile()
	}
	if int64(len(data)) > s.maxBytes {
		return nil, errFileTooLarge(s.maxBytes)
	}

	info, ok := sniff(data)
	if !ok {
		return nil, errInvalidFileType()
	}

	name := path.Join(s.prefix, uuid.NewString()+"."+info.format)
	metadata := map[string]string{
		metadataUploadedBy: actor.ID().String(),
		"original_name":    path.Base(strings.ReplaceAll(file.Name, `\`, "/")),
	}

	obj, err := s.store.Upload(ctx, name, info.contentType, metadata, bytes.NewReader(data))
	if err != nil {
		if s.logg != nil {
			s.logg.Error(s.logg.WithField(ctx, "object", name), "media.upload_failed", err)
		}
		return nil, errUploadFailed(err)
	}

	size := int64(len(data))
	if obj != nil && obj.Size > 0 {
		size = obj.Size
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{"object": name, "size": size}), "media.uploaded")
	}

	return &Image{
		URL:      s.store.PublicURL(name),
		PublicID: name,
		Width:    info.width,
		Height:   info.height,
		Format:   info.format,
		Size:     size,
	}, nil
}

// UploadImages stores files in order and stops at the first failure. Objects
// already written stay in place; clients delete them by publicId.
func (s *service) UploadImages(ctx context.Context, actor policy.Actor, files []*File) ([]Image, error) {
	if len(files) == 0 {
		return nil, errNoFile()
	}
	if len(files) > s.maxFiles {
		return nil, errTooManyFiles(s.maxFiles)
	}
	out := make([]Image, 0, len(files))
	for _, f := range files {
		img, err := s.UploadImage(ctx, actor, f)
		if err != nil {
			return nil, err
		}
		out = append(out, *img)
	}
	return out, nil
}

func (s *service) DeleteImage(ctx context.Context, actor policy.Actor, publicID string) error {
	name, ok := s.objectName(publicID)
	if !ok {
		return errImageNotFound()
	}

	obj, err := s.store.Attrs(ctx, name)
	if errors.Is(err, gcs.ErrObjectNotFound) {
		return errImageNotFound()
	}
	if err != nil {
		return errUploadFailed(err)
	}
	if !policy.IsAdministrator(actor) && obj.Metadata[metadataUploadedBy] != actor.ID().String() {
		return errAccessDenied()
	}

	if err := s.store.Delete(ctx, name); err != nil {
		if errors.Is(err, gcs.ErrObjectNotFound) {
			return errImageNotFound()
		}
		return errUploadFailed(err)
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithField(ctx, "object", name), "media.deleted")
	}
	return nil
}

// objectName confines publicID to the upload prefix.
func (s *service) objectName(publicID string) (string, bool) {
	id := strings.Trim(strings.TrimSpace(publicID), "/")
	if id == "" || strings.Contains(id, "..") {
		return "", false
	}
	if !strings.HasPrefix(id, s.prefix+"/") {
		return "", false
	}
	return path.Clean(id), true
}
