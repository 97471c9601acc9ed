package reports

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/angelmondragon/civicpulse-backend/pkg/db/models"
	"github.com/angelmondragon/civicpulse-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

const (
	titleMin       = 5
	titleMax       = 100
	descriptionMin = 20
	descriptionMax = 1000
	maxTags        = 10
	maxTagLength   = 30
	maxImages      = 5
	commentMax     = 500

	autoProgressComment = "Automatically moved to in progress on assignment"
)

// newReport builds a pending report owned by ownerID, with its history seeded
// by a single pending entry.
func newReport(ownerID uuid.UUID, in CreateInput, now time.Time) (*models.Report, error) {
	var problems fieldErrors
	title := strings.TrimSpace(in.Title)
	description := strings.TrimSpace(in.Description)
	checkTitle(&problems, title)
	checkDescription(&problems, description)
	if !in.Category.IsValid() {
		problems.add("category", "Invalid category")
	}
	priority := in.Priority
	if priority == "" {
		priority = enums.ReportPriorityMedium
	}
	if !priority.IsValid() {
		problems.add("priority", "Invalid priority")
	}
	tags := normalizeTags(&problems, in.Tags)
	checkLocation(&problems, in.Location)
	checkImages(&problems, in.Images)
	if err := problems.err(); err != nil {
		return nil, err
	}

	isPublic := true
	if in.IsPublic != nil {
		isPublic = *in.IsPublic
	}

	r := &models.Report{
		ID:          uuid.New(),
		Title:       title,
		Description: description,
		Category:    in.Category,
		Priority:    priority,
		Status:      enums.ReportStatusPending,
		Tags:        pq.StringArray(tags),
		IsPublic:    isPublic,
		ReporterID:  ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	setLocation(r, in.Location)
	r.Images = buildImages(r.ID, in.Images)
	r.StatusHistory = []models.ReportStatusEntry{{
		ID:        uuid.New(),
		ReportID:  r.ID,
		Seq:       1,
		Status:    enums.ReportStatusPending,
		ChangedBy: ownerID,
		CreatedAt: now,
	}}
	return r, nil
}

// transition moves r to status to. A same-status call changes nothing and
// returns changed=false. Otherwise exactly one history entry is appended to
// r.StatusHistory and returned. resolved_at tracks the resolved state: it is
// stamped on entering resolved and cleared on leaving it.
func transition(r *models.Report, to enums.ReportStatus, actorID uuid.UUID, comment *string, now time.Time) (models.ReportStatusEntry, bool) {
	if r.Status == to {
		return models.ReportStatusEntry{}, false
	}

	switch {
	case to == enums.ReportStatusResolved:
		stamped := now
		r.ResolvedAt = &stamped
	case r.Status == enums.ReportStatusResolved:
		r.ResolvedAt = nil
	}

	entry := models.ReportStatusEntry{
		ID:        uuid.New(),
		ReportID:  r.ID,
		Seq:       nextSeq(r),
		Status:    to,
		ChangedBy: actorID,
		Comment:   comment,
		CreatedAt: now,
	}
	r.Status = to
	r.UpdatedAt = now
	r.StatusHistory = append(r.StatusHistory, entry)
	return entry, true
}

func nextSeq(r *models.Report) int {
	last := 0
	for _, entry := range r.StatusHistory {
		if entry.Seq > last {
			last = entry.Seq
		}
	}
	return last + 1
}

// applyPatch changes content fields only; status, ownership and history are
// never touched here. It reports whether the image list was replaced.
func applyPatch(r *models.Report, patch UpdateInput, now time.Time) (bool, error) {
	var problems fieldErrors

	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		checkTitle(&problems, title)
		r.Title = title
	}
	if patch.Description != nil {
		description := strings.TrimSpace(*patch.Description)
		checkDescription(&problems, description)
		r.Description = description
	}
	if patch.Category != nil {
		if !patch.Category.IsValid() {
			problems.add("category", "Invalid category")
		}
		r.Category = *patch.Category
	}
	if patch.Priority != nil {
		if !patch.Priority.IsValid() {
			problems.add("priority", "Invalid priority")
		}
		r.Priority = *patch.Priority
	}
	if patch.Tags != nil {
		r.Tags = pq.StringArray(normalizeTags(&problems, *patch.Tags))
	}
	if patch.Location != nil {
		checkLocation(&problems, *patch.Location)
		setLocation(r, *patch.Location)
	}
	replaced := false
	if patch.Images != nil {
		checkImages(&problems, *patch.Images)
		r.Images = buildImages(r.ID, *patch.Images)
		replaced = true
	}
	if patch.IsPublic != nil {
		r.IsPublic = *patch.IsPublic
	}

	if err := problems.err(); err != nil {
		return false, err
	}
	r.UpdatedAt = now
	return replaced, nil
}

func newComment(reportID, authorID uuid.UUID, text string, now time.Time) (models.ReportComment, error) {
	text = strings.TrimSpace(text)
	var problems fieldErrors
	checkComment(&problems, "text", text)
	if err := problems.err(); err != nil {
		return models.ReportComment{}, err
	}
	return models.ReportComment{
		ID:        uuid.New(),
		ReportID:  reportID,
		AuthorID:  authorID,
		Text:      text,
		CreatedAt: now,
	}, nil
}

func assignmentNote(assigneeName string, comment *string) string {
	note := fmt.Sprintf("Assigned to %s", assigneeName)
	if comment != nil {
		if extra := strings.TrimSpace(*comment); extra != "" {
			note += ": " + extra
		}
	}
	if utf8.RuneCountInString(note) > commentMax {
		note = string([]rune(note)[:commentMax])
	}
	return note
}

func checkTitle(problems *fieldErrors, title string) {
	if n := utf8.RuneCountInString(title); n < titleMin || n > titleMax {
		problems.add("title", fmt.Sprintf("Title must be between %d and %d characters", titleMin, titleMax))
	}
}

func checkDescription(problems *fieldErrors, description string) {
	if n := utf8.RuneCountInString(description); n < descriptionMin || n > descriptionMax {
		problems.add("description", fmt.Sprintf("Description must be between %d and %d characters", descriptionMin, descriptionMax))
	}
}

func checkComment(problems *fieldErrors, field, text string) {
	if n := utf8.RuneCountInString(text); n < 1 || n > commentMax {
		problems.add(field, fmt.Sprintf("Comment must be between 1 and %d characters", commentMax))
	}
}

func checkLocation(problems *fieldErrors, loc LocationInput) {
	if strings.TrimSpace(loc.Address) == "" {
		problems.add("location.address", "Address is required")
	}
	if strings.TrimSpace(loc.City) == "" {
		problems.add("location.city", "City is required")
	}
	if loc.Latitude == nil || *loc.Latitude < -90 || *loc.Latitude > 90 {
		problems.add("location.coordinates.latitude", "Latitude must be between -90 and 90")
	}
	if loc.Longitude == nil || *loc.Longitude < -180 || *loc.Longitude > 180 {
		problems.add("location.coordinates.longitude", "Longitude must be between -180 and 180")
	}
}

func checkImages(problems *fieldErrors, images []ImageInput) {
	if len(images) > maxImages {
		problems.add("images", fmt.Sprintf("At most %d images are allowed", maxImages))
		return
	}
	for i, img := range images {
		if strings.TrimSpace(img.URL) == "" || strings.TrimSpace(img.PublicID) == "" {
			problems.add(fmt.Sprintf("images[%d]", i), "Image url and publicId are required")
		}
	}
}

// normalizeTags lower-cases, trims and de-duplicates tags, keeping first-seen order.
func normalizeTags(problems *fieldErrors, raw []string) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, tag := range raw {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if utf8.RuneCountInString(tag) > maxTagLength {
			problems.add("tags", fmt.Sprintf("Tags must be at most %d characters", maxTagLength))
			return out
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	if len(out) > maxTags {
		problems.add("tags", fmt.Sprintf("At most %d tags are allowed", maxTags))
	}
	return out
}

func setLocation(r *models.Report, loc LocationInput) {
	r.Address = strings.TrimSpace(loc.Address)
	r.City = strings.TrimSpace(loc.City)
	r.State = trimmedPtr(loc.State)
	r.ZipCode = trimmedPtr(loc.ZipCode)
	if loc.Latitude != nil {
		r.Latitude = *loc.Latitude
	}
	if loc.Longitude != nil {
		r.Longitude = *loc.Longitude
	}
}

func buildImages(reportID uuid.UUID, images []ImageInput) []models.ReportImage {
	out := make([]models.ReportImage, 0, len(images))
	for i, img := range images {
		out = append(out, models.ReportImage{
			ID:       uuid.New(),
			ReportID: reportID,
			Position: i,
			URL:      strings.TrimSpace(img.URL),
			PublicID: strings.TrimSpace(img.PublicID),
			Caption:  trimmedPtr(img.Caption),
		})
	}
	return out
}

func trimmedPtr(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}
