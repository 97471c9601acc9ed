package enums

import "fmt"

// ReportStatus tracks where a report sits in the triage workflow. Any status
// may move to any other through an administrator action.
type ReportStatus string

const (
	ReportStatusPending    ReportStatus = "pending"
	ReportStatusInProgress ReportStatus = "in_progress"
	ReportStatusResolved   ReportStatus = "resolved"
	ReportStatusRejected   ReportStatus = "rejected"
)

var validReportStatuses = []ReportStatus{
	ReportStatusPending,
	ReportStatusInProgress,
	ReportStatusResolved,
	ReportStatusRejected,
}

// ReportStatuses returns every known status in workflow order.
func ReportStatuses() []ReportStatus {
	return append([]ReportStatus(nil), validReportStatuses...)
}

// String implements fmt.Stringer.
func (s ReportStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ReportStatus.
func (s ReportStatus) IsValid() bool {
	for _, candidate := range validReportStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseReportStatus converts raw input into a ReportStatus.
func ParseReportStatus(value string) (ReportStatus, error) {
	for _, candidate := range validReportStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid report status %q", value)
}
