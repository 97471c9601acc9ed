package reports

import (
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/civicpulse-backend/pkg/enums"
	"github.com/angelmondragon/civicpulse-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// SortField names a sortable report attribute.
type SortField string

const (
	SortCreatedAt   SortField = "createdAt"
	SortUpdatedAt   SortField = "updatedAt"
	SortPriority    SortField = "priority"
	SortUpvoteCount SortField = "upvoteCount"
)

// ParseSortField accepts the wire names; empty input means createdAt.
func ParseSortField(value string) (SortField, error) {
	switch SortField(strings.TrimSpace(value)) {
	case "", SortCreatedAt:
		return SortCreatedAt, nil
	case SortUpdatedAt:
		return SortUpdatedAt, nil
	case SortPriority:
		return SortPriority, nil
	case SortUpvoteCount:
		return SortUpvoteCount, nil
	}
	return "", fmt.Errorf("invalid sort field %q", value)
}

// Filter narrows a listing. All set predicates must hold.
type Filter struct {
	Status     *enums.ReportStatus
	Category   *enums.ReportCategory
	Priority   *enums.ReportPriority
	City       string
	AssignedTo *uuid.UUID
	ReporterID *uuid.UUID
	DateFrom   *time.Time
	DateTo     *time.Time
	Search     string
	Tags       []string

	// set by the service from the caller, never from request input
	publicOnly bool
	areaCity   string
	ownerID    *uuid.UUID
}

// ListQuery is a filtered, sorted page request.
type ListQuery struct {
	Filter    Filter
	SortBy    SortField
	Ascending bool
	Page      pagination.Params
}

// NearbyInput is a radius search around a point.
type NearbyInput struct {
	Latitude  float64
	Longitude float64
	RadiusKm  float64
	Limit     int
}

func applyFilter(q *gorm.DB, f Filter) *gorm.DB {
	if f.publicOnly {
		q = q.Where("is_public = ?", true)
	}
	if f.ownerID != nil {
		q = q.Where("reporter_id = ?", *f.ownerID)
	}
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}
	if f.Category != nil {
		q = q.Where("category = ?", *f.Category)
	}
	if f.Priority != nil {
		q = q.Where("priority = ?", *f.Priority)
	}
	if city := strings.TrimSpace(f.City); city != "" {
		q = q.Where("LOWER(city) LIKE ? ESCAPE '\\'", containsPattern(city))
	}
	if f.areaCity != "" {
		q = q.Where("LOWER(city) LIKE ? ESCAPE '\\'", containsPattern(f.areaCity))
	}
	if f.AssignedTo != nil {
		q = q.Where("assigned_to = ?", *f.AssignedTo)
	}
	if f.ReporterID != nil {
		q = q.Where("reporter_id = ?", *f.ReporterID)
	}
	if f.DateFrom != nil {
		q = q.Where("created_at >= ?", f.DateFrom.UTC())
	}
	if f.DateTo != nil {
		q = q.Where("created_at <= ?", f.DateTo.UTC())
	}
	if term := strings.TrimSpace(f.Search); term != "" {
		pattern := containsPattern(term)
		q = q.Where(
			"(LOWER(title) LIKE ? ESCAPE '\\' OR LOWER(description) LIKE ? ESCAPE '\\' OR LOWER(address) LIKE ? ESCAPE '\\')",
			pattern, pattern, pattern,
		)
	}
	if tags := cleanTags(f.Tags); len(tags) > 0 {
		q = applyTagFilter(q, tags)
	}
	return q
}

// applyTagFilter matches reports carrying any of tags. Postgres uses the
// array overlap operator; elsewhere the column holds the quoted array literal.
func applyTagFilter(q *gorm.DB, tags []string) *gorm.DB {
	if q.Dialector != nil && q.Dialector.Name() == "postgres" {
		return q.Where("tags && ?::text[]", pq.StringArray(tags))
	}
	clauses := make([]string, 0, len(tags))
	args := make([]any, 0, len(tags))
	for _, tag := range tags {
		clauses = append(clauses, "tags LIKE ? ESCAPE '\\'")
		args = append(args, "%\""+likeEscaper.Replace(tag)+"\"%")
	}
	return q.Where("("+strings.Join(clauses, " OR ")+")", args...)
}

func orderClause(sort SortField, ascending bool) string {
	dir := "DESC"
	if ascending {
		dir = "ASC"
	}

	var column string
	switch sort {
	case SortUpdatedAt:
		column = "updated_at"
	case SortPriority:
		column = priorityRankExpr()
	case SortUpvoteCount:
		column = "upvote_count"
	default:
		column = "created_at"
	}
	// id keeps pages disjoint when the primary key ties
	return fmt.Sprintf("%s %s, id %s", column, dir, dir)
}

func priorityRankExpr() string {
	var b strings.Builder
	b.WriteString("CASE priority")
	for _, p := range enums.ReportPriorities() {
		fmt.Fprintf(&b, " WHEN '%s' THEN %d", p, p.Rank())
	}
	b.WriteString(" ELSE 0 END")
	return b.String()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func containsPattern(term string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"
}

func cleanTags(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, tag := range raw {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag != "" && !strings.ContainsAny(tag, "{},\"") {
			out = append(out, tag)
		}
	}
	return out
}
