package controllers

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/angelmondragon/civicpulse-backend/internal/analytics"
	"github.com/angelmondragon/civicpulse-backend/internal/policy"
	"github.com/angelmondragon/civicpulse-backend/internal/reports"
	"github.com/angelmondragon/civicpulse-backend/pkg/db/models"
	"github.com/angelmondragon/civicpulse-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDashboard struct {
	timeframe analytics.Timeframe
	calls     int
}

func (s *stubDashboard) Dashboard(_ context.Context, _ policy.Actor, tf analytics.Timeframe) (*analytics.Dashboard, error) {
	s.calls++
	s.timeframe = tf
	return &analytics.Dashboard{}, nil
}

type stubAdministrators struct {
	rows []models.User
	err  error
}

func (s stubAdministrators) ListAdministrators(context.Context) ([]models.User, error) {
	return s.rows, s.err
}

func TestAdminReportStatus(t *testing.T) {
	id := uuid.New()
	svc := &stubReports{report: &reports.ReportDTO{ID: id, Status: enums.ReportStatusResolved}, changed: true}
	body := `{"status":"resolved","comment":"Patched","estimatedResolutionTime":"2026-06-01T12:00:00Z"}`

	req := withURLParam(jsonRequest(http.MethodPut, "/api/admin/reports/"+id.String()+"/status", body), "id", id.String())
	rec := serve(AdminReportStatus(svc, nil), asActor(req, admin))
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, enums.ReportStatusResolved, svc.status.Status)
	require.NotNil(t, svc.status.Comment)
	assert.Equal(t, "Patched", *svc.status.Comment)
	require.NotNil(t, svc.status.EstimatedResolutionTime)
	assert.True(t, svc.status.EstimatedResolutionTime.Equal(time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)))

	var resp struct {
		Message       string             `json:"message"`
		Report        *reports.ReportDTO `json:"report"`
		StatusChanged bool               `json:"statusChanged"`
	}
	decodeBody(t, rec, &resp)
	assert.True(t, resp.StatusChanged)
	assert.Equal(t, "Report status updated successfully", resp.Message)
	require.NotNil(t, resp.Report)

	svc.changed = false
	req = withURLParam(jsonRequest(http.MethodPut, "/api/admin/reports/"+id.String()+"/status", `{"status":"resolved"}`), "id", id.String())
	rec = serve(AdminReportStatus(svc, nil), asActor(req, admin))
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &resp)
	assert.False(t, resp.StatusChanged)
	assert.Equal(t, "Report status unchanged", resp.Message)
}

func TestAdminReportStatusRequiresStatus(t *testing.T) {
	id := uuid.New()
	svc := &stubReports{}
	req := withURLParam(jsonRequest(http.MethodPut, "/api/admin/reports/"+id.String()+"/status", `{"comment":"x"}`), "id", id.String())
	rec := serve(AdminReportStatus(svc, nil), asActor(req, admin))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, svc.calls)
}

func TestAdminReportAssign(t *testing.T) {
	id, assignee := uuid.New(), uuid.New()
	svc := &stubReports{report: &reports.ReportDTO{ID: id}}

	req := withURLParam(jsonRequest(http.MethodPut, "/api/admin/reports/"+id.String()+"/assign",
		`{"assignedTo":"`+assignee.String()+`","comment":"Crew B"}`), "id", id.String())
	rec := serve(AdminReportAssign(svc, nil), asActor(req, admin))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, assignee, svc.assign.AssignedTo)
	require.NotNil(t, svc.assign.Comment)
	assert.Equal(t, "Crew B", *svc.assign.Comment)

	svc.calls = 0
	req = withURLParam(jsonRequest(http.MethodPut, "/api/admin/reports/"+id.String()+"/assign", `{"assignedTo":"someone"}`), "id", id.String())
	rec = serve(AdminReportAssign(svc, nil), asActor(req, admin))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeError(t, rec)
	require.Len(t, env.Errors, 1)
	assert.Equal(t, "assignedTo", env.Errors[0].Field)
	assert.Zero(t, svc.calls)
}

func TestAdminReportComment(t *testing.T) {
	id := uuid.New()
	svc := &stubReports{}

	req := withURLParam(jsonRequest(http.MethodPost, "/api/admin/reports/"+id.String()+"/comments", `{"text":"Crew dispatched"}`), "id", id.String())
	rec := serve(AdminReportComment(svc, nil), asActor(req, admin))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Crew dispatched", svc.comment)

	var resp struct {
		Message string              `json:"message"`
		Comment *reports.CommentDTO `json:"comment"`
	}
	decodeBody(t, rec, &resp)
	require.NotNil(t, resp.Comment)
	assert.Equal(t, "Crew dispatched", resp.Comment.Text)
}

func TestAdminDashboardTimeframe(t *testing.T) {
	svc := &stubDashboard{}

	rec := serve(AdminDashboard(svc, nil), asActor(jsonRequest(http.MethodGet, "/api/admin/dashboard", ""), admin))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, analytics.Timeframe30d, svc.timeframe)

	rec = serve(AdminDashboard(svc, nil), asActor(jsonRequest(http.MethodGet, "/api/admin/dashboard?timeframe=7d", ""), admin))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, analytics.Timeframe7d, svc.timeframe)

	rec = serve(AdminDashboard(svc, nil), asActor(jsonRequest(http.MethodGet, "/api/admin/dashboard?timeframe=2w", ""), admin))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, analytics.ReasonInvalidTimeframe, decodeError(t, rec).Error)
	assert.Equal(t, 2, svc.calls)
}

func TestAdminAdministrators(t *testing.T) {
	area := "Springfield"
	repo := stubAdministrators{rows: []models.User{
		{ID: uuid.New(), Name: "Marge", Email: "marge@example.com", Role: enums.UserRoleAdministrator, AdminArea: &area, IsActive: true},
	}}

	rec := serve(AdminAdministrators(repo, nil), asActor(jsonRequest(http.MethodGet, "/api/admin/administrators", ""), admin))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Administrators []map[string]any `json:"administrators"`
	}
	decodeBody(t, rec, &resp)
	require.Len(t, resp.Administrators, 1)
	assert.Equal(t, "Marge", resp.Administrators[0]["name"])
	assert.Equal(t, "Springfield", resp.Administrators[0]["adminArea"])
	assert.NotContains(t, resp.Administrators[0], "passwordHash")

	rec = serve(AdminAdministrators(stubAdministrators{err: errors.New("db down")}, nil), jsonRequest(http.MethodGet, "/api/admin/administrators", ""))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
