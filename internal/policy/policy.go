// Package policy decides who may see and change reports.
//
// An Actor is either a Citizen or an Administrator; anonymous callers are a nil
// Actor. Administrators may carry an area label that scopes list and aggregate
// queries by city, and that is re-checked on administrator-only mutations of a
// single report (status, assignment, comments).
package policy

import (
	"strings"

	"github.com/angelmondragon/civicpulse-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/civicpulse-backend/pkg/errors"
	"github.com/google/uuid"
)

// Actor is the authenticated caller.
type Actor interface {
	ID() uuid.UUID
	Role() enums.UserRole
	isActor()
}

// Citizen is a regular account.
type Citizen struct {
	UserID uuid.UUID
}

func (c Citizen) ID() uuid.UUID      { return c.UserID }
func (Citizen) Role() enums.UserRole { return enums.UserRoleCitizen }
func (Citizen) isActor()             {}

// Administrator may triage any report. Area, when set, limits which cities the
// administrator sees in listings and may triage.
type Administrator struct {
	UserID uuid.UUID
	Area   string
}

func (a Administrator) ID() uuid.UUID      { return a.UserID }
func (Administrator) Role() enums.UserRole { return enums.UserRoleAdministrator }
func (Administrator) isActor()             {}

// NewActor builds the variant matching role.
func NewActor(userID uuid.UUID, role enums.UserRole, area *string) Actor {
	if role == enums.UserRoleAdministrator {
		admin := Administrator{UserID: userID}
		if area != nil {
			admin.Area = strings.TrimSpace(*area)
		}
		return admin
	}
	return Citizen{UserID: userID}
}

// IsAdministrator reports whether actor is an Administrator.
func IsAdministrator(actor Actor) bool {
	_, ok := actor.(Administrator)
	return ok
}

// CanManage holds iff actor is an administrator or owns the report.
func CanManage(actor Actor, ownerID uuid.UUID) bool {
	switch a := actor.(type) {
	case Administrator:
		return true
	case Citizen:
		return a.UserID == ownerID
	default:
		return false
	}
}

// CanView holds iff the report is public or actor can manage it.
func CanView(actor Actor, isPublic bool, ownerID uuid.UUID) bool {
	return isPublic || CanManage(actor, ownerID)
}

// AreaScope returns the administrator's area when one is set.
func AreaScope(actor Actor) (string, bool) {
	admin, ok := actor.(Administrator)
	if !ok || admin.Area == "" {
		return "", false
	}
	return admin.Area, true
}

// InArea reports whether city falls inside actor's area: a case-insensitive
// substring match. Administrators without an area cover every city.
func InArea(actor Actor, city string) bool {
	if !IsAdministrator(actor) {
		return false
	}
	area, scoped := AreaScope(actor)
	if !scoped {
		return true
	}
	return strings.Contains(strings.ToLower(city), strings.ToLower(area))
}

// RequireAreaAccess guards administrator-only mutations of a single report.
func RequireAreaAccess(actor Actor, city string) error {
	if !IsAdministrator(actor) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "Administrator access required").WithReason("ADMIN_REQUIRED")
	}
	if !InArea(actor, city) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "Report is outside your administrative area").WithReason("OUTSIDE_ADMIN_AREA")
	}
	return nil
}
