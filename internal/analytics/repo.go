package analytics

import (
	"context"
	"strings"
	"time"

	"github.com/angelmondragon/civicpulse-backend/internal/repo"
	"github.com/angelmondragon/civicpulse-backend/pkg/db/models"
	"github.com/angelmondragon/civicpulse-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const topReporterLimit = 10

// Repository runs the dashboard aggregates. area, when non-empty, limits every
// query to reports whose city contains it, case-insensitively.
type Repository struct {
	repo.Base
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

type groupCount struct {
	Bucket string
	Count  int64
}

type categoryRow struct {
	Category string
	Count    int64
	Pending  int64
	Resolved int64
}

type reporterRow struct {
	ReporterID    uuid.UUID
	Name          string
	Email         string
	ReportCount   int64
	ResolvedCount int64
}

type resolutionRow struct {
	CreatedAt  time.Time
	ResolvedAt time.Time
}

func (r *Repository) scoped(ctx context.Context, area string) *gorm.DB {
	q := r.DB(ctx).Model(&models.Report{})
	if area = strings.TrimSpace(area); area != "" {
		q = q.Where("LOWER(reports.city) LIKE ? ESCAPE '\\'", "%"+likeEscaper.Replace(strings.ToLower(area))+"%")
	}
	return q
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// CountByStatus groups every report by status.
func (r *Repository) CountByStatus(ctx context.Context, area string) ([]groupCount, error) {
	var rows []groupCount
	err := r.scoped(ctx, area).
		Select("status AS bucket, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	return rows, err
}

// CountByPriority groups every report by priority.
func (r *Repository) CountByPriority(ctx context.Context, area string) ([]groupCount, error) {
	var rows []groupCount
	err := r.scoped(ctx, area).
		Select("priority AS bucket, COUNT(*) AS count").
		Group("priority").
		Scan(&rows).Error
	return rows, err
}

// CountByCategory groups by category with pending and resolved breakdowns,
// largest first.
func (r *Repository) CountByCategory(ctx context.Context, area string) ([]categoryRow, error) {
	var rows []categoryRow
	err := r.scoped(ctx, area).
		Select(
			"category, COUNT(*) AS count, "+
				"SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) AS pending, "+
				"SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) AS resolved",
			enums.ReportStatusPending, enums.ReportStatusResolved,
		).
		Group("category").
		Order("count DESC, category ASC").
		Scan(&rows).Error
	return rows, err
}

// CountCreatedSince counts reports created at or after since.
func (r *Repository) CountCreatedSince(ctx context.Context, area string, since time.Time) (int64, error) {
	var n int64
	err := r.scoped(ctx, area).Where("created_at >= ?", since).Count(&n).Error
	return n, err
}

// CreatedSince returns creation times at or after since.
func (r *Repository) CreatedSince(ctx context.Context, area string, since time.Time) ([]time.Time, error) {
	var out []time.Time
	err := r.scoped(ctx, area).Where("created_at >= ?", since).Pluck("created_at", &out).Error
	return out, err
}

// ResolvedSince returns resolution times at or after since.
func (r *Repository) ResolvedSince(ctx context.Context, area string, since time.Time) ([]time.Time, error) {
	var out []time.Time
	err := r.scoped(ctx, area).
		Where("status = ? AND resolved_at IS NOT NULL AND resolved_at >= ?", enums.ReportStatusResolved, since).
		Pluck("resolved_at", &out).Error
	return out, err
}

// ResolutionSpans returns created/resolved pairs for resolved reports.
func (r *Repository) ResolutionSpans(ctx context.Context, area string) ([]resolutionRow, error) {
	var rows []resolutionRow
	err := r.scoped(ctx, area).
		Select("created_at, resolved_at").
		Where("status = ? AND resolved_at IS NOT NULL", enums.ReportStatusResolved).
		Scan(&rows).Error
	return rows, err
}

// TopReporters ranks reporters by report count.
func (r *Repository) TopReporters(ctx context.Context, area string) ([]reporterRow, error) {
	var rows []reporterRow
	err := r.scoped(ctx, area).
		Select(
			"reports.reporter_id AS reporter_id, users.name AS name, users.email AS email, "+
				"COUNT(*) AS report_count, "+
				"SUM(CASE WHEN reports.status = ? THEN 1 ELSE 0 END) AS resolved_count",
			enums.ReportStatusResolved,
		).
		Joins("JOIN users ON users.id = reports.reporter_id").
		Group("reports.reporter_id, users.name, users.email").
		Order("report_count DESC, resolved_count DESC, users.name ASC").
		Limit(topReporterLimit).
		Scan(&rows).Error
	return rows, err
}
