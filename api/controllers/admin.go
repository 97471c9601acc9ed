package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/civicpulse-backend/api/responses"
	"github.com/angelmondragon/civicpulse-backend/api/validators"
	"github.com/angelmondragon/civicpulse-backend/internal/analytics"
	"github.com/angelmondragon/civicpulse-backend/internal/reports"
	"github.com/angelmondragon/civicpulse-backend/internal/users"
	"github.com/angelmondragon/civicpulse-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/civicpulse-backend/pkg/errors"
	"github.com/angelmondragon/civicpulse-backend/pkg/logger"
)

// AdministratorLister returns every active administrator account.
type AdministratorLister interface {
	ListAdministrators(ctx context.Context) ([]models.User, error)
}

type statusEnvelope struct {
	Message string `json:"message"`
	*reports.StatusResult
}

type commentEnvelope struct {
	Message string              `json:"message"`
	Comment *reports.CommentDTO `json:"comment"`
}

type administratorsEnvelope struct {
	Administrators []*users.UserDTO `json:"administrators"`
}

// AdminReportsList is the administrator listing. Private reports are included
// and the page size cap is higher than on the public listing.
func AdminReportsList(svc reports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("report"))
			return
		}
		actor, err := currentActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		query, err := parseListQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListAdmin(r.Context(), actor, query)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func AdminReportStatus(svc reports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("report"))
			return
		}
		actor, err := currentActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := pathUUID(r, "id", "report")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body statusBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ChangeStatus(r.Context(), actor, id, reports.StatusInput{
			Status:                  body.Status,
			Comment:                 body.Comment,
			EstimatedResolutionTime: body.EstimatedResolutionTime,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		message := "Report status updated successfully"
		if !result.StatusChanged {
			message = "Report status unchanged"
		}
		responses.WriteSuccess(w, statusEnvelope{Message: message, StatusResult: result})
	}
}

func AdminReportAssign(svc reports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("report"))
			return
		}
		actor, err := currentActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := pathUUID(r, "id", "report")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body assignBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		report, err := svc.Assign(r.Context(), actor, id, body.input())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, reportEnvelope{Message: "Report assigned successfully", Report: report})
	}
}

func AdminReportComment(svc reports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("report"))
			return
		}
		actor, err := currentActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := pathUUID(r, "id", "report")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body commentBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		comment, err := svc.AddComment(r.Context(), actor, id, body.Text)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, commentEnvelope{
			Message: "Comment added successfully",
			Comment: comment,
		})
	}
}

// AdminDashboard serves the aggregate statistics for ?timeframe=7d|30d|90d|1y.
func AdminDashboard(svc analytics.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("analytics"))
			return
		}
		actor, err := currentActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		timeframe, err := analytics.ParseTimeframe(r.URL.Query().Get("timeframe"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dashboard, err := svc.Dashboard(r.Context(), actor, timeframe)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dashboard)
	}
}

func AdminAdministrators(repo AdministratorLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("user"))
			return
		}

		rows, err := repo.ListAdministrators(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list administrators"))
			return
		}
		out := make([]*users.UserDTO, 0, len(rows))
		for i := range rows {
			out = append(out, users.FromModel(&rows[i]))
		}
		responses.WriteSuccess(w, administratorsEnvelope{Administrators: out})
	}
}
