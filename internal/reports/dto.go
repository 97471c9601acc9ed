package reports

import (
	"time"

	"github.com/angelmondragon/civicpulse-backend/internal/users"
	"github.com/angelmondragon/civicpulse-backend/pkg/db/models"
	"github.com/angelmondragon/civicpulse-backend/pkg/enums"
	"github.com/angelmondragon/civicpulse-backend/pkg/pagination"
	"github.com/google/uuid"
)

// LocationInput is where the issue was observed.
type LocationInput struct {
	Address   string
	City      string
	State     *string
	ZipCode   *string
	Latitude  *float64
	Longitude *float64
}

// ImageInput references an already uploaded image.
type ImageInput struct {
	URL      string
	PublicID string
	Caption  *string
}

// CreateInput holds a parsed report submission.
type CreateInput struct {
	Title       string
	Description string
	Category    enums.ReportCategory
	Priority    enums.ReportPriority
	Tags        []string
	Location    LocationInput
	Images      []ImageInput
	IsPublic    *bool
}

// UpdateInput holds optional content changes. Nil fields are left alone.
type UpdateInput struct {
	Title       *string
	Description *string
	Category    *enums.ReportCategory
	Priority    *enums.ReportPriority
	Tags        *[]string
	Location    *LocationInput
	Images      *[]ImageInput
	IsPublic    *bool
}

// StatusInput is an administrator status change.
type StatusInput struct {
	Status                  enums.ReportStatus
	Comment                 *string
	EstimatedResolutionTime *time.Time
}

// AssignInput hands a report to an administrator.
type AssignInput struct {
	AssignedTo uuid.UUID
	Comment    *string
}

// CoordinatesDTO is a latitude/longitude pair.
type CoordinatesDTO struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// LocationDTO is the public shape of a report location.
type LocationDTO struct {
	Address     string         `json:"address"`
	City        string         `json:"city"`
	State       *string        `json:"state,omitempty"`
	ZipCode     *string        `json:"zipCode,omitempty"`
	Coordinates CoordinatesDTO `json:"coordinates"`
}

// ImageDTO is an attached image.
type ImageDTO struct {
	URL      string  `json:"url"`
	PublicID string  `json:"publicId"`
	Caption  *string `json:"caption,omitempty"`
}

// StatusEntryDTO is one status history row.
type StatusEntryDTO struct {
	Status    enums.ReportStatus `json:"status"`
	ChangedBy *users.SummaryDTO  `json:"changedBy,omitempty"`
	Comment   *string            `json:"comment,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}

// CommentDTO is an administrator comment.
type CommentDTO struct {
	ID        uuid.UUID         `json:"id"`
	Text      string            `json:"text"`
	Author    *users.SummaryDTO `json:"author,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}

// ReportDTO is the transport shape of a report. History and comments are only
// filled on single-report reads.
type ReportDTO struct {
	ID                      uuid.UUID            `json:"id"`
	Title                   string               `json:"title"`
	Description             string               `json:"description"`
	Category                enums.ReportCategory `json:"category"`
	Priority                enums.ReportPriority `json:"priority"`
	Status                  enums.ReportStatus   `json:"status"`
	Tags                    []string             `json:"tags"`
	Location                LocationDTO          `json:"location"`
	Images                  []ImageDTO           `json:"images"`
	IsPublic                bool                 `json:"isPublic"`
	Reporter                *users.SummaryDTO    `json:"reportedBy,omitempty"`
	AssignedTo              *users.SummaryDTO    `json:"assignedTo,omitempty"`
	UpvoteCount             int                  `json:"upvoteCount"`
	HasUpvoted              *bool                `json:"hasUpvoted,omitempty"`
	StatusHistory           []StatusEntryDTO     `json:"statusHistory,omitempty"`
	AdminComments           []CommentDTO         `json:"adminComments,omitempty"`
	ResolvedAt              *time.Time           `json:"resolvedAt"`
	EstimatedResolutionTime *time.Time           `json:"estimatedResolutionTime,omitempty"`
	DistanceKm              *float64             `json:"distanceKm,omitempty"`
	CreatedAt               time.Time            `json:"createdAt"`
	UpdatedAt               time.Time            `json:"updatedAt"`
}

// ListResult is one page of reports.
type ListResult struct {
	Reports    []ReportDTO     `json:"reports"`
	Pagination pagination.Page `json:"pagination"`
}

// StatusResult reports whether a status change actually moved the report.
type StatusResult struct {
	Report        *ReportDTO `json:"report"`
	StatusChanged bool       `json:"statusChanged"`
}

// UpvoteResult is the caller's membership after a toggle.
type UpvoteResult struct {
	Upvoted     bool `json:"upvoted"`
	UpvoteCount int  `json:"upvoteCount"`
}

// FromModel maps a report. withContact exposes reporter emails, which only
// owners and administrators see.
func FromModel(r *models.Report, withContact bool) *ReportDTO {
	if r == nil {
		return nil
	}

	tags := []string(r.Tags)
	if tags == nil {
		tags = []string{}
	}

	out := &ReportDTO{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Category:    r.Category,
		Priority:    r.Priority,
		Status:      r.Status,
		Tags:        tags,
		Location: LocationDTO{
			Address: r.Address,
			City:    r.City,
			State:   r.State,
			ZipCode: r.ZipCode,
			Coordinates: CoordinatesDTO{
				Latitude:  r.Latitude,
				Longitude: r.Longitude,
			},
		},
		Images:                  make([]ImageDTO, 0, len(r.Images)),
		IsPublic:                r.IsPublic,
		Reporter:                users.Summary(r.Reporter, withContact),
		AssignedTo:              users.Summary(r.Assignee, true),
		UpvoteCount:             r.UpvoteCount,
		ResolvedAt:              r.ResolvedAt,
		EstimatedResolutionTime: r.EstimatedResolutionAt,
		CreatedAt:               r.CreatedAt,
		UpdatedAt:               r.UpdatedAt,
	}

	for _, img := range r.Images {
		out.Images = append(out.Images, ImageDTO{URL: img.URL, PublicID: img.PublicID, Caption: img.Caption})
	}
	for _, entry := range r.StatusHistory {
		out.StatusHistory = append(out.StatusHistory, StatusEntryDTO{
			Status:    entry.Status,
			ChangedBy: users.Summary(entry.Actor, false),
			Comment:   entry.Comment,
			Timestamp: entry.CreatedAt,
		})
	}
	for i := range r.Comments {
		out.AdminComments = append(out.AdminComments, *commentFromModel(&r.Comments[i]))
	}
	return out
}

func commentFromModel(c *models.ReportComment) *CommentDTO {
	return &CommentDTO{
		ID:        c.ID,
		Text:      c.Text,
		Author:    users.Summary(c.Author, false),
		CreatedAt: c.CreatedAt,
	}
}
