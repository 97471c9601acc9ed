package controllers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/angelmondragon/civicpulse-backend/internal/policy"
	"github.com/angelmondragon/civicpulse-backend/internal/reports"
	"github.com/angelmondragon/civicpulse-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/civicpulse-backend/pkg/errors"
	"github.com/angelmondragon/civicpulse-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubReports records the last call and returns canned results.
type stubReports struct {
	actor   policy.Actor
	query   reports.ListQuery
	nearby  reports.NearbyInput
	create  reports.CreateInput
	update  reports.UpdateInput
	status  reports.StatusInput
	assign  reports.AssignInput
	comment string
	id      uuid.UUID
	calls   int

	report   *reports.ReportDTO
	upvote   *reports.UpvoteResult
	changed  bool
	listErr  error
	writeErr error
}

func (s *stubReports) page() *reports.ListResult {
	return &reports.ListResult{
		Reports:    []reports.ReportDTO{{ID: uuid.New(), Title: "Broken light"}},
		Pagination: pagination.NewPage(s.query.Page.Normalize(pagination.PublicMaxLimit), 1),
	}
}

func (s *stubReports) Create(_ context.Context, actor policy.Actor, in reports.CreateInput) (*reports.ReportDTO, error) {
	s.calls++
	s.actor, s.create = actor, in
	return s.report, s.writeErr
}

func (s *stubReports) Get(_ context.Context, actor policy.Actor, id uuid.UUID) (*reports.ReportDTO, error) {
	s.calls++
	s.actor, s.id = actor, id
	return s.report, s.writeErr
}

func (s *stubReports) Update(_ context.Context, actor policy.Actor, id uuid.UUID, in reports.UpdateInput) (*reports.ReportDTO, error) {
	s.calls++
	s.actor, s.id, s.update = actor, id, in
	return s.report, s.writeErr
}

func (s *stubReports) Delete(_ context.Context, actor policy.Actor, id uuid.UUID) error {
	s.calls++
	s.actor, s.id = actor, id
	return s.writeErr
}

func (s *stubReports) List(_ context.Context, actor policy.Actor, q reports.ListQuery) (*reports.ListResult, error) {
	s.calls++
	s.actor, s.query = actor, q
	return s.page(), s.listErr
}

func (s *stubReports) ListMine(_ context.Context, actor policy.Actor, q reports.ListQuery) (*reports.ListResult, error) {
	return s.List(context.Background(), actor, q)
}

func (s *stubReports) ListAdmin(_ context.Context, actor policy.Actor, q reports.ListQuery) (*reports.ListResult, error) {
	return s.List(context.Background(), actor, q)
}

func (s *stubReports) Nearby(_ context.Context, actor policy.Actor, in reports.NearbyInput) ([]reports.ReportDTO, error) {
	s.calls++
	s.actor, s.nearby = actor, in
	return []reports.ReportDTO{}, s.listErr
}

func (s *stubReports) ChangeStatus(_ context.Context, actor policy.Actor, id uuid.UUID, in reports.StatusInput) (*reports.StatusResult, error) {
	s.calls++
	s.actor, s.id, s.status = actor, id, in
	if s.writeErr != nil {
		return nil, s.writeErr
	}
	return &reports.StatusResult{Report: s.report, StatusChanged: s.changed}, nil
}

func (s *stubReports) Assign(_ context.Context, actor policy.Actor, id uuid.UUID, in reports.AssignInput) (*reports.ReportDTO, error) {
	s.calls++
	s.actor, s.id, s.assign = actor, id, in
	return s.report, s.writeErr
}

func (s *stubReports) AddComment(_ context.Context, actor policy.Actor, id uuid.UUID, text string) (*reports.CommentDTO, error) {
	s.calls++
	s.actor, s.id, s.comment = actor, id, text
	if s.writeErr != nil {
		return nil, s.writeErr
	}
	return &reports.CommentDTO{ID: uuid.New(), Text: text}, nil
}

func (s *stubReports) ToggleUpvote(_ context.Context, actor policy.Actor, id uuid.UUID) (*reports.UpvoteResult, error) {
	s.calls++
	s.actor, s.id = actor, id
	return s.upvote, s.writeErr
}

func TestReportsListParsesQuery(t *testing.T) {
	svc := &stubReports{}
	assignee := uuid.New()
	target := "/api/reports?status=in_progress&category=road&priority=high&city=Spring" +
		"&assignedTo=" + assignee.String() +
		"&dateFrom=2026-05-01&dateTo=2026-05-10&search=lamp&tags=water,%20Light&tags=park" +
		"&sortBy=upvoteCount&sortOrder=asc&page=2&limit=500"

	rec := serve(ReportsList(svc, nil), jsonRequest(http.MethodGet, target, ""))
	require.Equal(t, http.StatusOK, rec.Code)

	f := svc.query.Filter
	require.NotNil(t, f.Status)
	assert.Equal(t, enums.ReportStatusInProgress, *f.Status)
	require.NotNil(t, f.Category)
	assert.Equal(t, enums.ReportCategoryRoad, *f.Category)
	require.NotNil(t, f.Priority)
	assert.Equal(t, enums.ReportPriorityHigh, *f.Priority)
	require.NotNil(t, f.AssignedTo)
	assert.Equal(t, assignee, *f.AssignedTo)
	assert.Equal(t, "Spring", f.City)
	assert.Equal(t, "lamp", f.Search)
	assert.Equal(t, []string{"water", "Light", "park"}, f.Tags)
	require.NotNil(t, f.DateFrom)
	assert.Equal(t, time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), *f.DateFrom)
	require.NotNil(t, f.DateTo)
	assert.Equal(t, time.Date(2026, 5, 10, 23, 59, 59, 999999999, time.UTC), *f.DateTo)

	assert.Equal(t, reports.SortUpvoteCount, svc.query.SortBy)
	assert.True(t, svc.query.Ascending)
	assert.Equal(t, 2, svc.query.Page.Page)
	assert.Equal(t, 500, svc.query.Page.Limit, "the service caps the page size")
	assert.Nil(t, svc.actor, "anonymous listing")
}

func TestReportsListDefaults(t *testing.T) {
	svc := &stubReports{}
	rec := serve(ReportsList(svc, nil), asActor(jsonRequest(http.MethodGet, "/api/reports", ""), citizen))
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, reports.SortCreatedAt, svc.query.SortBy)
	assert.False(t, svc.query.Ascending)
	assert.Equal(t, 1, svc.query.Page.Page)
	assert.Equal(t, pagination.DefaultLimit, svc.query.Page.Limit)
	assert.Equal(t, citizen, svc.actor)

	var body reports.ListResult
	decodeBody(t, rec, &body)
	assert.Len(t, body.Reports, 1)
	assert.Equal(t, 1, body.Pagination.CurrentPage)
}

func TestReportsListRejectsBadQuery(t *testing.T) {
	svc := &stubReports{}
	rec := serve(ReportsList(svc, nil), jsonRequest(http.MethodGet, "/api/reports?status=open&sortBy=title&sortOrder=sideways&reporter=x", ""))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	env := decodeError(t, rec)
	fields := map[string]bool{}
	for _, fe := range env.Errors {
		fields[fe.Field] = true
	}
	assert.True(t, fields["status"])
	assert.True(t, fields["sortBy"])
	assert.True(t, fields["sortOrder"])
	assert.True(t, fields["reporter"])
	assert.Zero(t, svc.calls)

	rec = serve(ReportsList(svc, nil), jsonRequest(http.MethodGet, "/api/reports?page=0", ""))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = serve(ReportsList(svc, nil), jsonRequest(http.MethodGet, "/api/reports?dateTo=yesterday", ""))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReportsMineRequiresActor(t *testing.T) {
	svc := &stubReports{}
	rec := serve(ReportsMine(svc, nil), jsonRequest(http.MethodGet, "/api/reports/my", ""))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(ReportsMine(svc, nil), asActor(jsonRequest(http.MethodGet, "/api/reports/my", ""), citizen))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, citizen, svc.actor)
}

func TestReportsNearby(t *testing.T) {
	svc := &stubReports{}
	rec := serve(ReportsNearby(svc, nil), jsonRequest(http.MethodGet, "/api/reports/nearby?lat=40.7&lng=-74&radius=2.5&limit=5", ""))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.InDelta(t, 40.7, svc.nearby.Latitude, 1e-9)
	assert.InDelta(t, -74.0, svc.nearby.Longitude, 1e-9)
	assert.InDelta(t, 2.5, svc.nearby.RadiusKm, 1e-9)
	assert.Equal(t, 5, svc.nearby.Limit)

	var body map[string]any
	decodeBody(t, rec, &body)
	assert.Contains(t, body, "reports")

	rec = serve(ReportsNearby(svc, nil), jsonRequest(http.MethodGet, "/api/reports/nearby?lng=-74", ""))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeError(t, rec)
	require.Len(t, env.Errors, 1)
	assert.Equal(t, "lat", env.Errors[0].Field)
}

func TestReportGet(t *testing.T) {
	id := uuid.New()
	svc := &stubReports{report: &reports.ReportDTO{ID: id, Title: "Broken light"}}

	req := withURLParam(jsonRequest(http.MethodGet, "/api/reports/"+id.String(), ""), "id", id.String())
	rec := serve(ReportGet(svc, nil), req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, id, svc.id)

	var body struct {
		Report reports.ReportDTO `json:"report"`
	}
	decodeBody(t, rec, &body)
	assert.Equal(t, "Broken light", body.Report.Title)

	req = withURLParam(jsonRequest(http.MethodGet, "/api/reports/nope", ""), "id", "nope")
	rec = serve(ReportGet(svc, nil), req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	svc.writeErr = pkgerrors.New(pkgerrors.CodeNotFound, "Report not found").WithReason(reports.ReasonReportNotFound)
	req = withURLParam(jsonRequest(http.MethodGet, "/api/reports/"+id.String(), ""), "id", id.String())
	rec = serve(ReportGet(svc, nil), req)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, reports.ReasonReportNotFound, decodeError(t, rec).Error)
}

func TestReportCreate(t *testing.T) {
	svc := &stubReports{report: &reports.ReportDTO{ID: uuid.New(), Title: "Deep pothole on Main"}}
	body := `{
		"title": "Deep pothole on Main",
		"description": "A deep pothole has opened in the right lane.",
		"category": "road",
		"tags": ["road", "Main"],
		"location": {"address": "1 Main St", "city": "Springfield", "coordinates": {"latitude": 39.78, "longitude": -89.65}},
		"images": [{"url": "https://cdn.example.com/reports/a.png", "publicId": "reports/a.png"}],
		"isPublic": false
	}`

	rec := serve(ReportCreate(svc, nil), asActor(jsonRequest(http.MethodPost, "/api/reports", body), citizen))
	require.Equal(t, http.StatusCreated, rec.Code)

	in := svc.create
	assert.Equal(t, "Deep pothole on Main", in.Title)
	assert.Equal(t, enums.ReportCategoryRoad, in.Category)
	assert.Equal(t, []string{"road", "Main"}, in.Tags)
	assert.Equal(t, "Springfield", in.Location.City)
	require.NotNil(t, in.Location.Latitude)
	assert.InDelta(t, 39.78, *in.Location.Latitude, 1e-9)
	require.Len(t, in.Images, 1)
	assert.Equal(t, "reports/a.png", in.Images[0].PublicID)
	require.NotNil(t, in.IsPublic)
	assert.False(t, *in.IsPublic)

	var resp map[string]any
	decodeBody(t, rec, &resp)
	assert.Equal(t, "Report created successfully", resp["message"])
	assert.Contains(t, resp, "report")
}

func TestReportCreateMissingLocation(t *testing.T) {
	svc := &stubReports{}
	body := `{"title":"Deep pothole","description":"A deep pothole has opened.","category":"road","location":{"address":"1 Main St"}}`

	rec := serve(ReportCreate(svc, nil), asActor(jsonRequest(http.MethodPost, "/api/reports", body), citizen))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	fields := map[string]bool{}
	for _, fe := range decodeError(t, rec).Errors {
		fields[fe.Field] = true
	}
	assert.True(t, fields["location.city"])
	assert.True(t, fields["location.coordinates.latitude"])
	assert.Zero(t, svc.calls)
}

func TestReportUpdatePassesOnlyProvidedFields(t *testing.T) {
	id := uuid.New()
	svc := &stubReports{report: &reports.ReportDTO{ID: id}}

	req := withURLParam(jsonRequest(http.MethodPut, "/api/reports/"+id.String(), `{"title":"New title here","tags":[]}`), "id", id.String())
	rec := serve(ReportUpdate(svc, nil), asActor(req, citizen))
	require.Equal(t, http.StatusOK, rec.Code)

	require.NotNil(t, svc.update.Title)
	assert.Equal(t, "New title here", *svc.update.Title)
	require.NotNil(t, svc.update.Tags)
	assert.Empty(t, *svc.update.Tags)
	assert.Nil(t, svc.update.Description)
	assert.Nil(t, svc.update.Location)
	assert.Nil(t, svc.update.Images)
}

func TestReportDeleteForbidden(t *testing.T) {
	id := uuid.New()
	svc := &stubReports{writeErr: pkgerrors.New(pkgerrors.CodeForbidden, "Access denied").WithReason(reports.ReasonAccessDenied)}

	req := withURLParam(jsonRequest(http.MethodDelete, "/api/reports/"+id.String(), ""), "id", id.String())
	rec := serve(ReportDelete(svc, nil), asActor(req, citizen))
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, reports.ReasonAccessDenied, decodeError(t, rec).Error)

	svc.writeErr = nil
	req = withURLParam(jsonRequest(http.MethodDelete, "/api/reports/"+id.String(), ""), "id", id.String())
	rec = serve(ReportDelete(svc, nil), asActor(req, citizen))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestReportUpvote(t *testing.T) {
	id := uuid.New()
	svc := &stubReports{upvote: &reports.UpvoteResult{Upvoted: true, UpvoteCount: 3}}

	req := withURLParam(jsonRequest(http.MethodPost, "/api/reports/"+id.String()+"/upvote", ""), "id", id.String())
	rec := serve(ReportUpvote(svc, nil), asActor(req, citizen))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Message     string `json:"message"`
		Upvoted     bool   `json:"upvoted"`
		UpvoteCount int    `json:"upvoteCount"`
	}
	decodeBody(t, rec, &body)
	assert.Equal(t, "Report upvoted", body.Message)
	assert.True(t, body.Upvoted)
	assert.Equal(t, 3, body.UpvoteCount)
}
