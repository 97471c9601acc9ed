package enums

import "fmt"

// ReportPriority expresses how urgently a report needs attention.
type ReportPriority string

const (
	ReportPriorityLow    ReportPriority = "low"
	ReportPriorityMedium ReportPriority = "medium"
	ReportPriorityHigh   ReportPriority = "high"
	ReportPriorityUrgent ReportPriority = "urgent"
)

// validReportPriorities is ordered from least to most urgent.
var validReportPriorities = []ReportPriority{
	ReportPriorityLow,
	ReportPriorityMedium,
	ReportPriorityHigh,
	ReportPriorityUrgent,
}

// ReportPriorities returns every priority from least to most urgent.
func ReportPriorities() []ReportPriority {
	return append([]ReportPriority(nil), validReportPriorities...)
}

// String implements fmt.Stringer.
func (p ReportPriority) String() string {
	return string(p)
}

// IsValid reports whether the value is a known ReportPriority.
func (p ReportPriority) IsValid() bool {
	return p.Rank() > 0
}

// Rank returns 1 for low through 4 for urgent, 0 when unknown.
func (p ReportPriority) Rank() int {
	for i, candidate := range validReportPriorities {
		if candidate == p {
			return i + 1
		}
	}
	return 0
}

// ParseReportPriority converts raw input into a ReportPriority.
func ParseReportPriority(value string) (ReportPriority, error) {
	for _, candidate := range validReportPriorities {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid report priority %q", value)
}
