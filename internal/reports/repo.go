package reports

import (
	"context"
	"time"

	"github.com/angelmondragon/civicpulse-backend/internal/repo"
	"github.com/angelmondragon/civicpulse-backend/pkg/db/models"
	"github.com/angelmondragon/civicpulse-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persists reports and their child rows.
type Repository struct {
	repo.Base
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(tx)}
}

// Create inserts the report with its images and status history.
func (r *Repository) Create(ctx context.Context, report *models.Report) error {
	db := r.DB(ctx)
	if err := db.Omit(clause.Associations).Create(report).Error; err != nil {
		return err
	}
	if len(report.Images) > 0 {
		if err := db.Create(&report.Images).Error; err != nil {
			return err
		}
	}
	if len(report.StatusHistory) > 0 {
		if err := db.Omit(clause.Associations).Create(&report.StatusHistory).Error; err != nil {
			return err
		}
	}
	return nil
}

// FindByID loads the report without associations.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	var report models.Report
	if err := r.DB(ctx).Where("id = ?", id).First(&report).Error; err != nil {
		return nil, err
	}
	return &report, nil
}

// FindDetail loads the report with people, images, history and comments.
func (r *Repository) FindDetail(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	var report models.Report
	err := withSummaries(r.DB(ctx)).
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB { return db.Order("seq ASC") }).
		Preload("StatusHistory.Actor").
		Preload("Comments", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		Preload("Comments.Author").
		Where("id = ?", id).
		First(&report).Error
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// UpdateContent writes the editable columns.
func (r *Repository) UpdateContent(ctx context.Context, report *models.Report) error {
	return r.DB(ctx).Model(&models.Report{}).Where("id = ?", report.ID).Updates(map[string]any{
		"title":       report.Title,
		"description": report.Description,
		"category":    report.Category,
		"priority":    report.Priority,
		"tags":        report.Tags,
		"address":     report.Address,
		"city":        report.City,
		"state":       report.State,
		"zip_code":    report.ZipCode,
		"latitude":    report.Latitude,
		"longitude":   report.Longitude,
		"is_public":   report.IsPublic,
		"updated_at":  report.UpdatedAt,
	}).Error
}

// UpdateWorkflow writes status, assignment and resolution columns.
func (r *Repository) UpdateWorkflow(ctx context.Context, report *models.Report) error {
	return r.DB(ctx).Model(&models.Report{}).Where("id = ?", report.ID).Updates(map[string]any{
		"status":                  report.Status,
		"assigned_to":             report.AssignedTo,
		"resolved_at":             report.ResolvedAt,
		"estimated_resolution_at": report.EstimatedResolutionAt,
		"updated_at":              report.UpdatedAt,
	}).Error
}

// ReplaceImages swaps the full image list of a report.
func (r *Repository) ReplaceImages(ctx context.Context, reportID uuid.UUID, images []models.ReportImage) error {
	db := r.DB(ctx)
	if err := db.Where("report_id = ?", reportID).Delete(&models.ReportImage{}).Error; err != nil {
		return err
	}
	if len(images) == 0 {
		return nil
	}
	return db.Create(&images).Error
}

// ReferencedImages returns the subset of publicIDs attached to some report.
func (r *Repository) ReferencedImages(ctx context.Context, publicIDs []string) (map[string]struct{}, error) {
	out := make(map[string]struct{}, len(publicIDs))
	if len(publicIDs) == 0 {
		return out, nil
	}
	var found []string
	if err := r.DB(ctx).Model(&models.ReportImage{}).
		Where("public_id IN ?", publicIDs).
		Distinct().
		Pluck("public_id", &found).Error; err != nil {
		return nil, err
	}
	for _, id := range found {
		out[id] = struct{}{}
	}
	return out, nil
}

// AppendStatus adds one history entry.
func (r *Repository) AppendStatus(ctx context.Context, entry *models.ReportStatusEntry) error {
	return r.DB(ctx).Omit(clause.Associations).Create(entry).Error
}

// AddComment adds one administrator comment.
func (r *Repository) AddComment(ctx context.Context, comment *models.ReportComment) error {
	return r.DB(ctx).Omit(clause.Associations).Create(comment).Error
}

// Delete removes the report and its child rows.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	db := r.DB(ctx)
	for _, child := range []any{&models.ReportImage{}, &models.ReportStatusEntry{}, &models.ReportComment{}, &models.ReportUpvote{}} {
		if err := db.Where("report_id = ?", id).Delete(child).Error; err != nil {
			return err
		}
	}
	res := db.Where("id = ?", id).Delete(&models.Report{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ToggleUpvote removes userID's upvote if present, otherwise adds it, then
// recounts. Run it inside a transaction.
func (r *Repository) ToggleUpvote(ctx context.Context, reportID, userID uuid.UUID, now time.Time) (bool, int, error) {
	db := r.DB(ctx)

	res := db.Where("report_id = ? AND user_id = ?", reportID, userID).Delete(&models.ReportUpvote{})
	if res.Error != nil {
		return false, 0, res.Error
	}
	upvoted := res.RowsAffected == 0
	if upvoted {
		vote := models.ReportUpvote{ReportID: reportID, UserID: userID, CreatedAt: now}
		if err := db.Create(&vote).Error; err != nil {
			return false, 0, err
		}
	}

	var count int64
	if err := db.Model(&models.ReportUpvote{}).Where("report_id = ?", reportID).Count(&count).Error; err != nil {
		return false, 0, err
	}
	if err := db.Model(&models.Report{}).Where("id = ?", reportID).Update("upvote_count", count).Error; err != nil {
		return false, 0, err
	}
	return upvoted, int(count), nil
}

// HasUpvoted reports whether userID currently upvotes reportID.
func (r *Repository) HasUpvoted(ctx context.Context, reportID, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.DB(ctx).Model(&models.ReportUpvote{}).
		Where("report_id = ? AND user_id = ?", reportID, userID).
		Count(&count).Error
	return count > 0, err
}

// List returns one page of matching reports plus the total match count.
func (r *Repository) List(ctx context.Context, f Filter, sort SortField, ascending bool, page pagination.Params) ([]models.Report, int64, error) {
	var total int64
	if err := applyFilter(r.DB(ctx).Model(&models.Report{}), f).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	rows := []models.Report{}
	if total == 0 {
		return rows, 0, nil
	}
	err := applyFilter(withSummaries(r.DB(ctx)), f).
		Order(orderClause(sort, ascending)).
		Scopes(repo.Paginate(page)).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// WithinBox returns public reports inside the box, nearest-first ordering is
// left to the caller.
func (r *Repository) WithinBox(ctx context.Context, box boundingBox, limit int) ([]models.Report, error) {
	rows := []models.Report{}
	db := r.DB(ctx)
	lng := db.Session(&gorm.Session{NewDB: true})
	for i, span := range box.lng {
		if i == 0 {
			lng = lng.Where("longitude BETWEEN ? AND ?", span.min, span.max)
			continue
		}
		lng = lng.Or("longitude BETWEEN ? AND ?", span.min, span.max)
	}
	err := withSummaries(db).
		Where("is_public = ?", true).
		Where("latitude BETWEEN ? AND ?", box.minLat, box.maxLat).
		Where(lng).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func withSummaries(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Reporter").
		Preload("Assignee").
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") })
}
