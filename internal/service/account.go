package service

import (
	"context"

	"storefront/internal/apperr"
	"storefront/internal/audit"
	"storefront/internal/auth"
	"storefront/internal/models"
	"storefront/internal/repository"
)

const minSelfPasswordLen = 8

type AccountService struct {
	users    repository.UserRepository
	hasher   auth.Hasher
	recorder audit.Recorder
}

func NewAccountService(users repository.UserRepository, hasher auth.Hasher, recorder audit.Recorder) *AccountService {
	return &AccountService{users: users, hasher: hasher, recorder: recorder}
}

// ChangeOwnPassword lets any signed-in user replace their password. The
// current password must verify. Admin-level accounts leave an audit entry.
func (s *AccountService) ChangeOwnPassword(ctx context.Context, session *auth.Session, current, next string) error {
	if err := auth.RequireRole(session, models.RoleUser); err != nil {
		return err
	}
	if current == "" || next == "" {
		return apperr.Validation("currentPassword and newPassword are required")
	}
	if len(next) < minSelfPasswordLen {
		return apperr.Validation("new password must be at least 8 characters")
	}

	u, err := s.users.FindByID(ctx, session.UserID)
	if err != nil {
		return writeErr(err)
	}
	if !s.hasher.Check(current, u.PasswordHash) {
		return apperr.ErrInvalidCredentials
	}
	if next == current {
		return apperr.Validation("new password must differ from current password")
	}

	hash, err := s.hasher.Hash(next)
	if err != nil {
		return apperr.Internal(err)
	}
	if err := s.users.UpdatePassword(ctx, u.ID, hash); err != nil {
		return writeErr(err)
	}

	if auth.IsAdminLevel(u.Role) {
		s.recorder.Record(ctx, audit.NewEntry(session, models.ActionPasswordChangedSelf, u, "Changed own password"))
	}
	return nil
}
