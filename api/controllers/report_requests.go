package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/civicpulse-backend/api/validators"
	"github.com/angelmondragon/civicpulse-backend/internal/reports"
	"github.com/angelmondragon/civicpulse-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/civicpulse-backend/pkg/errors"
	"github.com/angelmondragon/civicpulse-backend/pkg/pagination"
	"github.com/angelmondragon/civicpulse-backend/pkg/types"
	"github.com/google/uuid"
)

// Length and range rules live in the report service; these tags only reject
// structurally missing input.

type coordinatesBody struct {
	Latitude  *float64 `json:"latitude" validate:"required"`
	Longitude *float64 `json:"longitude" validate:"required"`
}

type locationBody struct {
	Address     string          `json:"address" validate:"required,trimmed"`
	City        string          `json:"city" validate:"required,trimmed"`
	State       *string         `json:"state,omitempty" validate:"omitempty,max=100"`
	ZipCode     *string         `json:"zipCode,omitempty" validate:"omitempty,max=20"`
	Coordinates coordinatesBody `json:"coordinates"`
}

func (l locationBody) input() reports.LocationInput {
	return reports.LocationInput{
		Address:   l.Address,
		City:      l.City,
		State:     l.State,
		ZipCode:   l.ZipCode,
		Latitude:  l.Coordinates.Latitude,
		Longitude: l.Coordinates.Longitude,
	}
}

type imageBody struct {
	URL      string  `json:"url" validate:"required,url"`
	PublicID string  `json:"publicId" validate:"required"`
	Caption  *string `json:"caption,omitempty" validate:"omitempty,max=200"`
}

func imageInputs(images []imageBody) []reports.ImageInput {
	out := make([]reports.ImageInput, 0, len(images))
	for _, img := range images {
		out = append(out, reports.ImageInput{URL: img.URL, PublicID: img.PublicID, Caption: img.Caption})
	}
	return out
}

type createReportBody struct {
	Title       string               `json:"title" validate:"required"`
	Description string               `json:"description" validate:"required"`
	Category    enums.ReportCategory `json:"category" validate:"required"`
	Priority    enums.ReportPriority `json:"priority,omitempty"`
	Tags        []string             `json:"tags,omitempty"`
	Location    locationBody         `json:"location"`
	Images      []imageBody          `json:"images,omitempty" validate:"omitempty,dive"`
	IsPublic    *bool                `json:"isPublic,omitempty"`
}

func (b createReportBody) input() reports.CreateInput {
	return reports.CreateInput{
		Title:       b.Title,
		Description: b.Description,
		Category:    b.Category,
		Priority:    b.Priority,
		Tags:        b.Tags,
		Location:    b.Location.input(),
		Images:      imageInputs(b.Images),
		IsPublic:    b.IsPublic,
	}
}

type updateReportBody struct {
	Title       *string               `json:"title,omitempty"`
	Description *string               `json:"description,omitempty"`
	Category    *enums.ReportCategory `json:"category,omitempty"`
	Priority    *enums.ReportPriority `json:"priority,omitempty"`
	Tags        *[]string             `json:"tags,omitempty"`
	Location    *locationBody         `json:"location,omitempty"`
	Images      *[]imageBody          `json:"images,omitempty" validate:"omitempty,dive"`
	IsPublic    *bool                 `json:"isPublic,omitempty"`
}

func (b updateReportBody) input() reports.UpdateInput {
	in := reports.UpdateInput{
		Title:       b.Title,
		Description: b.Description,
		Category:    b.Category,
		Priority:    b.Priority,
		Tags:        b.Tags,
		IsPublic:    b.IsPublic,
	}
	if b.Location != nil {
		loc := b.Location.input()
		in.Location = &loc
	}
	if b.Images != nil {
		images := imageInputs(*b.Images)
		in.Images = &images
	}
	return in
}

type statusBody struct {
	Status                  enums.ReportStatus `json:"status" validate:"required"`
	Comment                 *string            `json:"comment,omitempty"`
	EstimatedResolutionTime *time.Time         `json:"estimatedResolutionTime,omitempty"`
}

type assignBody struct {
	AssignedTo string  `json:"assignedTo" validate:"required,uuid"`
	Comment    *string `json:"comment,omitempty"`
}

func (b assignBody) input() reports.AssignInput {
	return reports.AssignInput{AssignedTo: uuid.MustParse(b.AssignedTo), Comment: b.Comment}
}

type commentBody struct {
	Text string `json:"text" validate:"required,trimmed"`
}

// parseListQuery reads the listing filters, sort and page from the query
// string. The page size is capped by the service, not rejected here.
func parseListQuery(r *http.Request) (reports.ListQuery, error) {
	var (
		query    reports.ListQuery
		problems []types.FieldError
	)
	q := r.URL.Query()

	if raw := strings.TrimSpace(q.Get("status")); raw != "" {
		status, err := enums.ParseReportStatus(raw)
		if err != nil {
			problems = append(problems, types.FieldError{Field: "status", Message: "Invalid status"})
		} else {
			query.Filter.Status = &status
		}
	}
	if raw := strings.TrimSpace(q.Get("category")); raw != "" {
		category, err := enums.ParseReportCategory(raw)
		if err != nil {
			problems = append(problems, types.FieldError{Field: "category", Message: "Invalid category"})
		} else {
			query.Filter.Category = &category
		}
	}
	if raw := strings.TrimSpace(q.Get("priority")); raw != "" {
		priority, err := enums.ParseReportPriority(raw)
		if err != nil {
			problems = append(problems, types.FieldError{Field: "priority", Message: "Invalid priority"})
		} else {
			query.Filter.Priority = &priority
		}
	}
	for _, key := range []string{"assignedTo", "reporter"} {
		raw := strings.TrimSpace(q.Get(key))
		if raw == "" {
			continue
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			problems = append(problems, types.FieldError{Field: key, Message: key + " must be a valid id"})
			continue
		}
		if key == "assignedTo" {
			query.Filter.AssignedTo = &id
		} else {
			query.Filter.ReporterID = &id
		}
	}

	sortBy, err := reports.ParseSortField(q.Get("sortBy"))
	if err != nil {
		problems = append(problems, types.FieldError{Field: "sortBy", Message: "sortBy must be one of createdAt, updatedAt, priority, upvoteCount"})
	}
	query.SortBy = sortBy
	switch strings.ToLower(strings.TrimSpace(q.Get("sortOrder"))) {
	case "", "desc":
	case "asc":
		query.Ascending = true
	default:
		problems = append(problems, types.FieldError{Field: "sortOrder", Message: "sortOrder must be asc or desc"})
	}

	if len(problems) > 0 {
		return query, pkgerrors.New(pkgerrors.CodeValidation, "Validation failed").WithDetails(problems)
	}

	if query.Filter.DateFrom, err = validators.ParseQueryTime(r, "dateFrom", false); err != nil {
		return query, err
	}
	if query.Filter.DateTo, err = validators.ParseQueryTime(r, "dateTo", true); err != nil {
		return query, err
	}
	if query.Page.Page, err = validators.ParseQueryInt(r, "page", 1, 1, 1_000_000); err != nil {
		return query, err
	}
	if query.Page.Limit, err = validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, 1_000); err != nil {
		return query, err
	}

	query.Filter.City = q.Get("city")
	query.Filter.Search = validators.SearchTerm(q.Get("search"), maxSearchRunes)
	query.Filter.Tags = validators.ParseQueryList(r, "tags")
	return query, nil
}

const maxSearchRunes = 200

func parseNearby(r *http.Request) (reports.NearbyInput, error) {
	var (
		in       reports.NearbyInput
		problems []types.FieldError
	)
	lat, err := validators.ParseQueryFloat(r, "lat")
	if err != nil {
		return in, err
	}
	lng, err := validators.ParseQueryFloat(r, "lng")
	if err != nil {
		return in, err
	}
	if lat == nil {
		problems = append(problems, types.FieldError{Field: "lat", Message: "lat is required"})
	}
	if lng == nil {
		problems = append(problems, types.FieldError{Field: "lng", Message: "lng is required"})
	}
	if len(problems) > 0 {
		return in, pkgerrors.New(pkgerrors.CodeValidation, "Validation failed").WithDetails(problems)
	}
	in.Latitude, in.Longitude = *lat, *lng

	radius, err := validators.ParseQueryFloat(r, "radius")
	if err != nil {
		return in, err
	}
	if radius != nil {
		in.RadiusKm = *radius
	}
	if in.Limit, err = validators.ParseQueryInt(r, "limit", 0, 1, 1_000); err != nil {
		return in, err
	}
	return in, nil
}
