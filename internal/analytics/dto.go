package analytics

import (
	"github.com/angelmondragon/civicpulse-backend/pkg/enums"
	"github.com/google/uuid"
)

// Dashboard is the administrator overview of the report collection.
type Dashboard struct {
	Timeframe    Timeframe       `json:"timeframe"`
	Overview     Overview        `json:"overview"`
	ByStatus     []StatusCount   `json:"byStatus"`
	ByPriority   []PriorityCount `json:"byPriority"`
	ByCategory   []CategoryCount `json:"byCategory"`
	Trends       []TrendPoint    `json:"trends"`
	TopReporters []ReporterStat  `json:"topReporters"`
}

// Overview holds headline counts.
type Overview struct {
	TotalReports          int64   `json:"totalReports"`
	PendingReports        int64   `json:"pendingReports"`
	InProgressReports     int64   `json:"inProgressReports"`
	ResolvedReports       int64   `json:"resolvedReports"`
	RejectedReports       int64   `json:"rejectedReports"`
	RecentReports         int64   `json:"recentReports"`
	AverageResolutionDays float64 `json:"averageResolutionDays"`
}

type StatusCount struct {
	Status enums.ReportStatus `json:"status"`
	Count  int64              `json:"count"`
}

type PriorityCount struct {
	Priority enums.ReportPriority `json:"priority"`
	Count    int64                `json:"count"`
}

type CategoryCount struct {
	Category enums.ReportCategory `json:"category"`
	Count    int64                `json:"count"`
	Pending  int64                `json:"pending"`
	Resolved int64                `json:"resolved"`
}

// TrendPoint is one UTC day with activity.
type TrendPoint struct {
	Date     string `json:"date"`
	Created  int64  `json:"created"`
	Resolved int64  `json:"resolved"`
}

type ReporterStat struct {
	UserID        uuid.UUID `json:"userId"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	ReportCount   int64     `json:"reportCount"`
	ResolvedCount int64     `json:"resolvedCount"`
}
