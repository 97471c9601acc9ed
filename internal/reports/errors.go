package reports

import (
	pkgerrors "github.com/angelmondragon/civicpulse-backend/pkg/errors"
	"github.com/angelmondragon/civicpulse-backend/pkg/types"
)

const (
	ReasonReportNotFound    = "REPORT_NOT_FOUND"
	ReasonAccessDenied      = "ACCESS_DENIED"
	ReasonReportLocked      = "REPORT_LOCKED"
	ReasonInvalidAssignee   = "INVALID_ASSIGNEE"
	ReasonAdminRequired     = "ADMIN_REQUIRED"
	ReasonAuthRequired      = "AUTH_REQUIRED"
	ReasonRadiusTooLarge    = "RADIUS_TOO_LARGE"
	ReasonValidationFailure = "VALIDATION_ERROR"
)

func errReportNotFound() error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "Report not found").WithReason(ReasonReportNotFound)
}

func errAccessDenied() error {
	return pkgerrors.New(pkgerrors.CodeForbidden, "Access denied").WithReason(ReasonAccessDenied)
}

func errReportLocked() error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, "Report can only be edited while pending").WithReason(ReasonReportLocked)
}

func errAdminRequired() error {
	return pkgerrors.New(pkgerrors.CodeForbidden, "Administrator access required").WithReason(ReasonAdminRequired)
}

func errAuthRequired() error {
	return pkgerrors.New(pkgerrors.CodeUnauthorized, "Authentication required").WithReason(ReasonAuthRequired)
}

// fieldErrors accumulates per-field validation failures.
type fieldErrors []types.FieldError

func (f *fieldErrors) add(field, message string) {
	*f = append(*f, types.FieldError{Field: field, Message: message})
}

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "Validation failed").WithDetails([]types.FieldError(f))
}
