package auth

import (
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/apperr"
	"storefront/internal/models"
)

// Session is the per-request identity. It is rebuilt from the stored user on
// every request and never reused across requests.
type Session struct {
	UserID primitive.ObjectID
	Email  string
	Name   string
	Role   models.Role
}

// NewSession builds a session from the persisted user record.
func NewSession(u *models.User) *Session {
	return &Session{
		UserID: u.ID,
		Email:  u.Email,
		Name:   u.Name,
		Role:   u.Role,
	}
}

var (
	ErrInsufficientRole = apperr.Forbidden("insufficient permissions")
	ErrSelfModification = apperr.Forbidden("cannot modify own account")
	ErrPeerMasterAdmin  = apperr.Forbidden("cannot modify other master admin")
)

// RequireRole permits s when its role is at least min. A nil session is
// unauthenticated; a weaker role is forbidden without saying what was missing.
func RequireRole(s *Session, min models.Role) error {
	if s == nil {
		return apperr.Unauthenticated("authentication required")
	}
	if !AtLeast(s.Role, min) {
		return ErrInsufficientRole
	}
	return nil
}

func RequireAdmin(s *Session) error {
	return RequireRole(s, models.RoleAdmin)
}

func RequireMasterAdmin(s *Session) error {
	return RequireRole(s, models.RoleMasterAdmin)
}

// GuardTarget rejects mutations aimed at the actor's own account or at another
// master admin. It must run before any write.
func GuardTarget(actor *Session, target *models.User) error {
	if actor == nil {
		return apperr.Unauthenticated("authentication required")
	}
	if target.ID == actor.UserID {
		return ErrSelfModification
	}
	if target.Role == models.RoleMasterAdmin {
		return ErrPeerMasterAdmin
	}
	return nil
}
