package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/civicpulse-backend/api/middleware"
	"github.com/angelmondragon/civicpulse-backend/internal/policy"
	pkgerrors "github.com/angelmondragon/civicpulse-backend/pkg/errors"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const reasonAuthRequired = "AUTH_REQUIRED"

// currentActor returns the caller or an unauthorized error. Routes behind
// RequireAuth always carry an actor, so the error only fires on misrouting.
func currentActor(r *http.Request) (policy.Actor, error) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "Authentication required").WithReason(reasonAuthRequired)
	}
	return actor, nil
}

// optionalActor returns nil for anonymous callers.
func optionalActor(r *http.Request) policy.Actor {
	actor, _ := middleware.ActorFromContext(r.Context())
	return actor
}

func pathUUID(r *http.Request, key, label string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, key))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, label+" id is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+label+" id")
	}
	return id, nil
}

func unavailable(name string) error {
	return pkgerrors.New(pkgerrors.CodeInternal, name+" service unavailable")
}
