package controllers

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/angelmondragon/civicpulse-backend/api/responses"
	"github.com/angelmondragon/civicpulse-backend/internal/media"
	"github.com/angelmondragon/civicpulse-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/civicpulse-backend/pkg/errors"
	"github.com/angelmondragon/civicpulse-backend/pkg/logger"
	"github.com/go-chi/chi/v5"
)

const (
	multipartMemory   = 8 << 20
	multipartOverhead = 1 << 20
)

type imageEnvelope struct {
	Message string       `json:"message"`
	Image   *media.Image `json:"image"`
}

type imagesEnvelope struct {
	Message string        `json:"message"`
	Images  []media.Image `json:"images"`
}

// parseUpload bounds the request body to the configured batch size and parses
// the multipart form.
func parseUpload(w http.ResponseWriter, r *http.Request, cfg config.MediaConfig) error {
	limit := cfg.MaxImageBytes*int64(cfg.MaxImagesPerRequest) + multipartOverhead
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return pkgerrors.New(pkgerrors.CodeValidation, "Upload exceeds the allowed size").WithReason(media.ReasonFileTooLarge)
		}
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "No image file provided").WithReason(media.ReasonNoFile)
	}
	return nil
}

func openPart(header *multipart.FileHeader) (*media.File, multipart.File, error) {
	f, err := header.Open()
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "No image file provided").WithReason(media.ReasonNoFile)
	}
	return &media.File{Name: header.Filename, Size: header.Size, Body: f}, f, nil
}

// UploadImage stores the multipart field "image".
func UploadImage(svc media.Service, cfg config.MediaConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("media"))
			return
		}
		actor, err := currentActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := parseUpload(w, r, cfg); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		defer r.MultipartForm.RemoveAll()

		var file *media.File
		if headers := r.MultipartForm.File["image"]; len(headers) > 0 {
			part, closer, err := openPart(headers[0])
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			defer closer.Close()
			file = part
		}

		image, err := svc.UploadImage(r.Context(), actor, file)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, imageEnvelope{Message: "Image uploaded successfully", Image: image})
	}
}

// UploadImages stores every part of the multipart field "images".
func UploadImages(svc media.Service, cfg config.MediaConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("media"))
			return
		}
		actor, err := currentActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := parseUpload(w, r, cfg); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		defer r.MultipartForm.RemoveAll()

		headers := r.MultipartForm.File["images"]
		files := make([]*media.File, 0, len(headers))
		for _, header := range headers {
			part, closer, err := openPart(header)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			defer closer.Close()
			files = append(files, part)
		}

		images, err := svc.UploadImages(r.Context(), actor, files)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, imagesEnvelope{Message: "Images uploaded successfully", Images: images})
	}
}

// DeleteImage removes an upload. The public id is the route wildcard, so ids
// containing slashes arrive intact.
func DeleteImage(svc media.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("media"))
			return
		}
		actor, err := currentActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteImage(r.Context(), actor, chi.URLParam(r, "*")); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteMessage(w, http.StatusOK, "Image deleted successfully")
	}
}
