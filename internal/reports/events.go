package reports

import (
	"github.com/angelmondragon/civicpulse-backend/pkg/enums"
	"github.com/google/uuid"
)

const (
	EventReportCreated       = string(enums.EventReportCreated)
	EventReportStatusChanged = string(enums.EventReportStatusChanged)
	EventReportAssigned      = string(enums.EventReportAssigned)
)

type reportEventData struct {
	ReportID       uuid.UUID            `json:"report_id"`
	Title          string               `json:"title"`
	Category       enums.ReportCategory `json:"category"`
	Priority       enums.ReportPriority `json:"priority"`
	Status         enums.ReportStatus   `json:"status"`
	PreviousStatus *enums.ReportStatus  `json:"previous_status,omitempty"`
	City           string               `json:"city"`
	IsPublic       bool                 `json:"is_public"`
	ReporterID     *uuid.UUID           `json:"reporter_id,omitempty"`
	AssignedTo     *uuid.UUID           `json:"assigned_to,omitempty"`
}
