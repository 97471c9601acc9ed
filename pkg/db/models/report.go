package models

import (
	"time"

	"github.com/angelmondragon/civicpulse-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Report is a civic issue submitted by a citizen.
type Report struct {
	ID          uuid.UUID            `gorm:"type:uuid;primaryKey"`
	Title       string               `gorm:"column:title;not null"`
	Description string               `gorm:"column:description;not null"`
	Category    enums.ReportCategory `gorm:"column:category;not null"`
	Priority    enums.ReportPriority `gorm:"column:priority;not null"`
	Status      enums.ReportStatus   `gorm:"column:status;not null"`
	Tags        pq.StringArray       `gorm:"type:text[];column:tags"`

	Address   string  `gorm:"column:address;not null"`
	City      string  `gorm:"column:city;not null"`
	State     *string `gorm:"column:state"`
	ZipCode   *string `gorm:"column:zip_code"`
	Latitude  float64 `gorm:"column:latitude;not null"`
	Longitude float64 `gorm:"column:longitude;not null"`

	IsPublic    bool       `gorm:"column:is_public;not null"`
	ReporterID  uuid.UUID  `gorm:"type:uuid;column:reporter_id;not null"`
	AssignedTo  *uuid.UUID `gorm:"type:uuid;column:assigned_to"`
	UpvoteCount int        `gorm:"column:upvote_count;not null"`

	ResolvedAt            *time.Time `gorm:"column:resolved_at"`
	EstimatedResolutionAt *time.Time `gorm:"column:estimated_resolution_at"`
	CreatedAt             time.Time  `gorm:"column:created_at;autoCreateTime:false"`
	UpdatedAt             time.Time  `gorm:"column:updated_at;autoUpdateTime:false"`

	Reporter      *User               `gorm:"foreignKey:ReporterID"`
	Assignee      *User               `gorm:"foreignKey:AssignedTo"`
	Images        []ReportImage       `gorm:"foreignKey:ReportID"`
	StatusHistory []ReportStatusEntry `gorm:"foreignKey:ReportID"`
	Comments      []ReportComment     `gorm:"foreignKey:ReportID"`
	Upvotes       []ReportUpvote      `gorm:"foreignKey:ReportID"`
}

// ReportImage references an uploaded object attached to a report.
type ReportImage struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	ReportID uuid.UUID `gorm:"type:uuid;column:report_id;not null"`
	Position int       `gorm:"column:position;not null"`
	URL      string    `gorm:"column:url;not null"`
	PublicID string    `gorm:"column:public_id;not null"`
	Caption  *string   `gorm:"column:caption"`
}

// ReportStatusEntry is one row of the append-only status ledger.
type ReportStatusEntry struct {
	ID        uuid.UUID          `gorm:"type:uuid;primaryKey"`
	ReportID  uuid.UUID          `gorm:"type:uuid;column:report_id;not null"`
	Seq       int                `gorm:"column:seq;not null"`
	Status    enums.ReportStatus `gorm:"column:status;not null"`
	ChangedBy uuid.UUID          `gorm:"type:uuid;column:changed_by;not null"`
	Comment   *string            `gorm:"column:comment"`
	CreatedAt time.Time          `gorm:"column:created_at;autoCreateTime:false"`

	Actor *User `gorm:"foreignKey:ChangedBy"`
}

func (ReportStatusEntry) TableName() string { return "report_status_history" }

// ReportComment is an administrator note, independent of status changes.
type ReportComment struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	ReportID  uuid.UUID `gorm:"type:uuid;column:report_id;not null"`
	AuthorID  uuid.UUID `gorm:"type:uuid;column:author_id;not null"`
	Text      string    `gorm:"column:text;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime:false"`

	Author *User `gorm:"foreignKey:AuthorID"`
}

// ReportUpvote records one user's upvote; (report_id, user_id) is unique.
type ReportUpvote struct {
	ReportID  uuid.UUID `gorm:"type:uuid;column:report_id;primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;column:user_id;primaryKey"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime:false"`
}
