package media

import pkgerrors "github.com/angelmondragon/civicpulse-backend/pkg/errors"

const (
	ReasonNoFile          = "NO_FILE"
	ReasonFileTooLarge    = "FILE_TOO_LARGE"
	ReasonTooManyFiles    = "TOO_MANY_FILES"
	ReasonInvalidFileType = "INVALID_FILE_TYPE"
	ReasonImageNotFound   = "IMAGE_NOT_FOUND"
	ReasonAccessDenied    = "ACCESS_DENIED"
	ReasonUploadFailed    = "UPLOAD_FAILED"
)

func errNoFile() error {
	return pkgerrors.New(pkgerrors.CodeValidation, "No image file provided").WithReason(ReasonNoFile)
}

func errFileTooLarge(limit int64) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "Image exceeds the "+humanBytes(limit)+" limit").WithReason(ReasonFileTooLarge)
}

func errTooManyFiles(limit int) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "At most "+itoa(limit)+" images per request").WithReason(ReasonTooManyFiles)
}

func errInvalidFileType() error {
	return pkgerrors.New(pkgerrors.CodeValidation, "Only JPEG, PNG, GIF and WebP images are allowed").WithReason(ReasonInvalidFileType)
}

func errImageNotFound() error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "Image not found").WithReason(ReasonImageNotFound)
}

func errAccessDenied() error {
	return pkgerrors.New(pkgerrors.CodeForbidden, "Access denied").WithReason(ReasonAccessDenied)
}

func errUploadFailed(err error) error {
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "Image storage is unavailable").WithReason(ReasonUploadFailed)
}
