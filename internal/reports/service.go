package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/civicpulse-backend/internal/policy"
	"github.com/angelmondragon/civicpulse-backend/pkg/db"
	"github.com/angelmondragon/civicpulse-backend/pkg/db/models"
	"github.com/angelmondragon/civicpulse-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/civicpulse-backend/pkg/errors"
	"github.com/angelmondragon/civicpulse-backend/pkg/logger"
	"github.com/angelmondragon/civicpulse-backend/pkg/outbox"
	"github.com/angelmondragon/civicpulse-backend/pkg/pagination"
	"github.com/angelmondragon/civicpulse-backend/pkg/pubsub"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service exposes the report lifecycle and listings.
type Service interface {
	Create(ctx context.Context, actor policy.Actor, input CreateInput) (*ReportDTO, error)
	Get(ctx context.Context, actor policy.Actor, id uuid.UUID) (*ReportDTO, error)
	Update(ctx context.Context, actor policy.Actor, id uuid.UUID, input UpdateInput) (*ReportDTO, error)
	Delete(ctx context.Context, actor policy.Actor, id uuid.UUID) error
	List(ctx context.Context, actor policy.Actor, query ListQuery) (*ListResult, error)
	ListMine(ctx context.Context, actor policy.Actor, query ListQuery) (*ListResult, error)
	ListAdmin(ctx context.Context, actor policy.Actor, query ListQuery) (*ListResult, error)
	Nearby(ctx context.Context, actor policy.Actor, input NearbyInput) ([]ReportDTO, error)
	ChangeStatus(ctx context.Context, actor policy.Actor, id uuid.UUID, input StatusInput) (*StatusResult, error)
	Assign(ctx context.Context, actor policy.Actor, id uuid.UUID, input AssignInput) (*ReportDTO, error)
	AddComment(ctx context.Context, actor policy.Actor, id uuid.UUID, text string) (*CommentDTO, error)
	ToggleUpvote(ctx context.Context, actor policy.Actor, id uuid.UUID) (*UpvoteResult, error)
}

type userLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type lifecycleRecorder interface {
	ReportCreated(category string)
	StatusChanged(from, to string)
	UpvoteToggled(upvoted bool)
}

type eventOutbox interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type noopRecorder struct{}

func (noopRecorder) ReportCreated(string)         {}
func (noopRecorder) StatusChanged(string, string) {}
func (noopRecorder) UpvoteToggled(bool)           {}

// ServiceParams bundles the dependencies of the report service.
type ServiceParams struct {
	Repo   *Repository
	DB     *db.Client
	Users  userLookup
	Events pubsub.EventPublisher
	// Outbox, when set, records events inside the report transaction and
	// Events is not used.
	Outbox  eventOutbox
	Metrics lifecycleRecorder
	Logger  *logger.Logger
	Clock   func() time.Time
}

type service struct {
	repo    *Repository
	db      *db.Client
	users   userLookup
	events  pubsub.EventPublisher
	outbox  eventOutbox
	metrics lifecycleRecorder
	logg    *logger.Logger
	now     func() time.Time
}

// NewService constructs the report service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("report repository required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db client required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user lookup required")
	}
	s := &service{
		repo:    params.Repo,
		db:      params.DB,
		users:   params.Users,
		events:  params.Events,
		outbox:  params.Outbox,
		metrics: params.Metrics,
		logg:    params.Logger,
		now:     params.Clock,
	}
	if s.events == nil {
		s.events = pubsub.NoopPublisher{}
	}
	if s.metrics == nil {
		s.metrics = noopRecorder{}
	}
	if s.now == nil {
		s.now = db.UTCNow
	}
	return s, nil
}

func (s *service) Create(ctx context.Context, actor policy.Actor, input CreateInput) (*ReportDTO, error) {
	if actor == nil {
		return nil, errAuthRequired()
	}

	report, err := newReport(actor.ID(), input, s.now())
	if err != nil {
		return nil, err
	}

	event := reportEvent(actor, enums.EventReportCreated, reportEventData{
		ReportID: report.ID,
		Title:    report.Title,
		Category: report.Category,
		Priority: report.Priority,
		Status:   report.Status,
		City:     report.City,
		IsPublic: report.IsPublic,
	})
	if err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, report); err != nil {
			return err
		}
		return s.emit(ctx, tx, event)
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create report")
	}

	s.metrics.ReportCreated(report.Category.String())
	s.publish(ctx, event)

	return s.detail(ctx, actor, report.ID)
}

func (s *service) Get(ctx context.Context, actor policy.Actor, id uuid.UUID) (*ReportDTO, error) {
	return s.detail(ctx, actor, id)
}

func (s *service) Update(ctx context.Context, actor policy.Actor, id uuid.UUID, input UpdateInput) (*ReportDTO, error) {
	if actor == nil {
		return nil, errAuthRequired()
	}

	report, err := s.loadDetail(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanManage(actor, report.ReporterID) {
		return nil, errAccessDenied()
	}
	if !policy.IsAdministrator(actor) && report.Status != enums.ReportStatusPending {
		return nil, errReportLocked()
	}

	imagesReplaced, err := applyPatch(report, input, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := txRepo.UpdateContent(ctx, report); err != nil {
			return err
		}
		if imagesReplaced {
			return txRepo.ReplaceImages(ctx, report.ID, report.Images)
		}
		return nil
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update report")
	}

	return s.detail(ctx, actor, id)
}

func (s *service) Delete(ctx context.Context, actor policy.Actor, id uuid.UUID) error {
	if actor == nil {
		return errAuthRequired()
	}

	report, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !policy.CanView(actor, report.IsPublic, report.ReporterID) {
		return errReportNotFound()
	}
	if !policy.CanManage(actor, report.ReporterID) {
		return errAccessDenied()
	}

	if err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).Delete(ctx, id)
	}); err != nil {
		if db.IsNotFound(err) {
			return errReportNotFound()
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete report")
	}
	return nil
}

func (s *service) List(ctx context.Context, actor policy.Actor, query ListQuery) (*ListResult, error) {
	query.Filter.ownerID = nil
	if policy.IsAdministrator(actor) {
		query.Filter.publicOnly = false
		query.Filter.areaCity, _ = policy.AreaScope(actor)
	} else {
		query.Filter.publicOnly = true
		query.Filter.areaCity = ""
	}
	return s.list(ctx, actor, query, pagination.PublicMaxLimit)
}

func (s *service) ListMine(ctx context.Context, actor policy.Actor, query ListQuery) (*ListResult, error) {
	if actor == nil {
		return nil, errAuthRequired()
	}
	owner := actor.ID()
	query.Filter.ownerID = &owner
	query.Filter.publicOnly = false
	query.Filter.areaCity = ""
	return s.list(ctx, actor, query, pagination.PublicMaxLimit)
}

func (s *service) ListAdmin(ctx context.Context, actor policy.Actor, query ListQuery) (*ListResult, error) {
	if !policy.IsAdministrator(actor) {
		return nil, errAdminRequired()
	}
	query.Filter.ownerID = nil
	query.Filter.publicOnly = false
	query.Filter.areaCity, _ = policy.AreaScope(actor)
	return s.list(ctx, actor, query, pagination.AdminMaxLimit)
}

func (s *service) list(ctx context.Context, actor policy.Actor, query ListQuery, maxLimit int) (*ListResult, error) {
	page := query.Page.Normalize(maxLimit)

	rows, total, err := s.repo.List(ctx, query.Filter, query.SortBy, query.Ascending, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list reports")
	}

	out := make([]ReportDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i], canSeeContact(actor, &rows[i])))
	}
	return &ListResult{Reports: out, Pagination: pagination.NewPage(page, total)}, nil
}

func (s *service) Nearby(ctx context.Context, actor policy.Actor, input NearbyInput) ([]ReportDTO, error) {
	var problems fieldErrors
	if input.Latitude < -90 || input.Latitude > 90 {
		problems.add("lat", "Latitude must be between -90 and 90")
	}
	if input.Longitude < -180 || input.Longitude > 180 {
		problems.add("lng", "Longitude must be between -180 and 180")
	}
	if input.RadiusKm < 0 {
		problems.add("radius", "Radius must be positive")
	}
	if err := problems.err(); err != nil {
		return nil, err
	}
	radius := input.RadiusKm
	if radius == 0 {
		radius = defaultRadiusKm
	}
	if radius > maxRadiusKm {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("Radius cannot exceed %.0f km", maxRadiusKm)).WithReason(ReasonRadiusTooLarge)
	}
	limit := input.Limit
	if limit <= 0 {
		limit = defaultNearby
	}
	if limit > maxNearby {
		limit = maxNearby
	}

	candidates, err := s.repo.WithinBox(ctx, boxAround(input.Latitude, input.Longitude, radius), nearbyCandidates)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "nearby reports")
	}

	ranked := nearest(candidates, input.Latitude, input.Longitude, radius, limit)
	out := make([]ReportDTO, 0, len(ranked))
	for i := range ranked {
		dto := FromModel(&ranked[i].report, canSeeContact(actor, &ranked[i].report))
		distance := roundKm(ranked[i].distance)
		dto.DistanceKm = &distance
		out = append(out, *dto)
	}
	return out, nil
}

func (s *service) ChangeStatus(ctx context.Context, actor policy.Actor, id uuid.UUID, input StatusInput) (*StatusResult, error) {
	if !policy.IsAdministrator(actor) {
		return nil, errAdminRequired()
	}
	var problems fieldErrors
	if !input.Status.IsValid() {
		problems.add("status", "Status must be one of pending, in_progress, resolved, rejected")
	}
	comment := trimmedPtr(input.Comment)
	if comment != nil {
		checkComment(&problems, "comment", *comment)
	}
	if err := problems.err(); err != nil {
		return nil, err
	}

	report, err := s.loadDetail(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := policy.RequireAreaAccess(actor, report.City); err != nil {
		return nil, err
	}

	now := s.now()
	from := report.Status
	entry, changed := transition(report, input.Status, actor.ID(), comment, now)
	etaChanged := input.EstimatedResolutionTime != nil
	if etaChanged {
		eta := input.EstimatedResolutionTime.UTC()
		report.EstimatedResolutionAt = &eta
		report.UpdatedAt = now
	}

	var note *models.ReportComment
	if !changed && comment != nil {
		c, err := newComment(report.ID, actor.ID(), *comment, now)
		if err != nil {
			return nil, err
		}
		note = &c
	}

	event := reportEvent(actor, enums.EventReportStatusChanged, reportEventData{
		ReportID:       report.ID,
		Title:          report.Title,
		Category:       report.Category,
		Priority:       report.Priority,
		Status:         report.Status,
		PreviousStatus: &from,
		City:           report.City,
		IsPublic:       report.IsPublic,
		ReporterID:     &report.ReporterID,
	})
	if changed || etaChanged || note != nil {
		if err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
			txRepo := s.repo.WithTx(tx)
			if changed || etaChanged {
				if err := txRepo.UpdateWorkflow(ctx, report); err != nil {
					return err
				}
			}
			if changed {
				if err := txRepo.AppendStatus(ctx, &entry); err != nil {
					return err
				}
				if err := s.emit(ctx, tx, event); err != nil {
					return err
				}
			}
			if note != nil {
				return txRepo.AddComment(ctx, note)
			}
			return nil
		}); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "change report status")
		}
	}

	if changed {
		s.metrics.StatusChanged(from.String(), report.Status.String())
		s.publish(ctx, event)
	}

	dto, err := s.detail(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return &StatusResult{Report: dto, StatusChanged: changed}, nil
}

func (s *service) Assign(ctx context.Context, actor policy.Actor, id uuid.UUID, input AssignInput) (*ReportDTO, error) {
	if !policy.IsAdministrator(actor) {
		return nil, errAdminRequired()
	}
	if comment := trimmedPtr(input.Comment); comment != nil {
		var problems fieldErrors
		checkComment(&problems, "comment", *comment)
		if err := problems.err(); err != nil {
			return nil, err
		}
	}

	report, err := s.loadDetail(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := policy.RequireAreaAccess(actor, report.City); err != nil {
		return nil, err
	}

	assignee, err := s.users.FindByID(ctx, input.AssignedTo)
	if err != nil && !db.IsNotFound(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load assignee")
	}
	if assignee == nil || assignee.Role != enums.UserRoleAdministrator || !assignee.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Assignee must be an active administrator").WithReason(ReasonInvalidAssignee)
	}

	now := s.now()
	from := report.Status
	report.AssignedTo = &assignee.ID
	report.UpdatedAt = now

	note, err := newComment(report.ID, actor.ID(), assignmentNote(assignee.Name, input.Comment), now)
	if err != nil {
		return nil, err
	}

	var (
		entry models.ReportStatusEntry
		moved bool
	)
	if report.Status == enums.ReportStatusPending {
		auto := autoProgressComment
		entry, moved = transition(report, enums.ReportStatusInProgress, actor.ID(), &auto, now)
	}

	event := reportEvent(actor, enums.EventReportAssigned, reportEventData{
		ReportID:       report.ID,
		Title:          report.Title,
		Category:       report.Category,
		Priority:       report.Priority,
		Status:         report.Status,
		PreviousStatus: &from,
		City:           report.City,
		IsPublic:       report.IsPublic,
		ReporterID:     &report.ReporterID,
		AssignedTo:     &assignee.ID,
	})
	if err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := txRepo.UpdateWorkflow(ctx, report); err != nil {
			return err
		}
		if err := txRepo.AddComment(ctx, &note); err != nil {
			return err
		}
		if moved {
			if err := txRepo.AppendStatus(ctx, &entry); err != nil {
				return err
			}
		}
		return s.emit(ctx, tx, event)
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "assign report")
	}

	if moved {
		s.metrics.StatusChanged(from.String(), report.Status.String())
	}
	s.publish(ctx, event)

	return s.detail(ctx, actor, id)
}

func (s *service) AddComment(ctx context.Context, actor policy.Actor, id uuid.UUID, text string) (*CommentDTO, error) {
	if !policy.IsAdministrator(actor) {
		return nil, errAdminRequired()
	}

	comment, err := newComment(id, actor.ID(), text, s.now())
	if err != nil {
		return nil, err
	}

	report, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.RequireAreaAccess(actor, report.City); err != nil {
		return nil, err
	}

	if err := s.repo.AddComment(ctx, &comment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "add comment")
	}

	if author, err := s.users.FindByID(ctx, actor.ID()); err == nil {
		comment.Author = author
	}
	return commentFromModel(&comment), nil
}

func (s *service) ToggleUpvote(ctx context.Context, actor policy.Actor, id uuid.UUID) (*UpvoteResult, error) {
	if actor == nil {
		return nil, errAuthRequired()
	}

	report, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanView(actor, report.IsPublic, report.ReporterID) {
		return nil, errReportNotFound()
	}

	var result UpvoteResult
	if err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		upvoted, count, err := s.repo.WithTx(tx).ToggleUpvote(ctx, id, actor.ID(), s.now())
		if err != nil {
			return err
		}
		result = UpvoteResult{Upvoted: upvoted, UpvoteCount: count}
		return nil
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "toggle upvote")
	}

	s.metrics.UpvoteToggled(result.Upvoted)
	return &result, nil
}

// load fetches the bare report, mapping a miss to REPORT_NOT_FOUND.
func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	report, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, errReportNotFound()
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load report")
	}
	return report, nil
}

// loadDetail fetches the full report. Reports the actor cannot view are
// reported as missing so their existence does not leak.
func (s *service) loadDetail(ctx context.Context, actor policy.Actor, id uuid.UUID) (*models.Report, error) {
	report, err := s.repo.FindDetail(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, errReportNotFound()
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load report")
	}
	if !policy.CanView(actor, report.IsPublic, report.ReporterID) {
		return nil, errReportNotFound()
	}
	return report, nil
}

func (s *service) detail(ctx context.Context, actor policy.Actor, id uuid.UUID) (*ReportDTO, error) {
	report, err := s.loadDetail(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	dto := FromModel(report, canSeeContact(actor, report))
	if actor != nil {
		upvoted, err := s.repo.HasUpvoted(ctx, id, actor.ID())
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load upvote state")
		}
		dto.HasUpvoted = &upvoted
	}
	return dto, nil
}

func reportEvent(actor policy.Actor, eventType enums.OutboxEventType, data reportEventData) outbox.DomainEvent {
	event := outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateReport,
		AggregateID:   data.ReportID,
		Data:          data,
	}
	if actor != nil {
		event.Actor = &pubsub.ActorRef{UserID: actor.ID(), Role: actor.Role().String()}
	}
	return event
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if s.outbox == nil {
		return nil
	}
	return s.outbox.Emit(ctx, tx, event)
}

// publish sends the event directly once the transaction has committed.
// Failures are logged and never undo the change.
func (s *service) publish(ctx context.Context, event outbox.DomainEvent) {
	if s.outbox != nil {
		return
	}
	if err := s.events.Publish(ctx, event.Event()); err != nil && s.logg != nil {
		warnCtx := s.logg.WithReportID(ctx, event.AggregateID.String())
		warnCtx = s.logg.WithFields(warnCtx, map[string]any{"event_type": event.EventType, "error": err.Error()})
		s.logg.Warn(warnCtx, "report.event_publish_failed")
	}
}

func canSeeContact(actor policy.Actor, report *models.Report) bool {
	return actor != nil && policy.CanManage(actor, report.ReporterID)
}

func roundKm(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
