package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/apperr"
	"storefront/internal/audit"
	"storefront/internal/auth"
	"storefront/internal/logger"
	"storefront/internal/models"
	"storefront/internal/repository"
)

const minAdminPasswordLen = 6

// AdminLimits caps the number of privileged accounts.
type AdminLimits struct {
	MaxMasterAdmins int
	MaxAdmins       int
}

// AdminService implements the privileged account mutations. Every method runs
// authorize, load target, target guards, input checks, write, audit in that
// order and returns before the write when any step fails.
type AdminService struct {
	users    repository.UserRepository
	hasher   auth.Hasher
	recorder audit.Recorder
	limits   AdminLimits
	log      logger.Logger
}

func NewAdminService(users repository.UserRepository, hasher auth.Hasher, recorder audit.Recorder, limits AdminLimits, log logger.Logger) *AdminService {
	return &AdminService{
		users:    users,
		hasher:   hasher,
		recorder: recorder,
		limits:   limits,
		log:      log,
	}
}

// ResetPassword sets a new password on another admin or user.
func (s *AdminService) ResetPassword(ctx context.Context, actor *auth.Session, targetID primitive.ObjectID, password string) error {
	if err := auth.RequireMasterAdmin(actor); err != nil {
		return err
	}
	target, err := loadUser(ctx, s.users, targetID)
	if err != nil {
		return err
	}
	if err := auth.GuardTarget(actor, target); err != nil {
		return err
	}
	if len(password) < minAdminPasswordLen {
		return apperr.Validation("password must be at least 6 characters")
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return apperr.Internal(err)
	}
	if err := s.users.UpdatePassword(ctx, target.ID, hash); err != nil {
		return writeErr(err)
	}

	s.recorder.Record(ctx, audit.NewEntry(actor, models.ActionPasswordChanged, target,
		fmt.Sprintf("Password reset for %s", target.Email)))
	return nil
}

// ChangeRole moves a user between user and admin.
func (s *AdminService) ChangeRole(ctx context.Context, actor *auth.Session, targetID primitive.ObjectID, role string) (*models.User, error) {
	if err := auth.RequireMasterAdmin(actor); err != nil {
		return nil, err
	}
	target, err := loadUser(ctx, s.users, targetID)
	if err != nil {
		return nil, err
	}
	if err := auth.GuardTarget(actor, target); err != nil {
		return nil, err
	}
	newRole, ok := auth.ParseRole(role)
	if !ok || newRole == models.RoleMasterAdmin {
		return nil, apperr.Validation("role must be user or admin")
	}
	if newRole == models.RoleAdmin && !auth.IsAdminLevel(target.Role) {
		if err := s.checkAdminCap(ctx); err != nil {
			return nil, err
		}
	}

	if err := s.users.UpdateRole(ctx, target.ID, newRole); err != nil {
		return nil, writeErr(err)
	}

	action := models.ActionAdminDemoted
	if newRole == models.RoleAdmin {
		action = models.ActionAdminPromoted
	}
	s.recorder.Record(ctx, audit.NewEntry(actor, action, target,
		fmt.Sprintf("Role changed from %s to %s", target.Role, newRole)))

	previous := target.Role
	target.Role = newRole
	s.log.Info("role changed",
		logger.String("actor", actor.Email),
		logger.String("target", target.Email),
		logger.String("from", string(previous)),
		logger.String("to", string(newRole)),
	)
	return target, nil
}

// Promote elevates a user to admin or master_admin. It is the only path that
// can produce a master_admin.
func (s *AdminService) Promote(ctx context.Context, actor *auth.Session, targetID primitive.ObjectID, role string) (*models.User, error) {
	if err := auth.RequireMasterAdmin(actor); err != nil {
		return nil, err
	}
	target, err := loadUser(ctx, s.users, targetID)
	if err != nil {
		return nil, err
	}
	if err := auth.GuardTarget(actor, target); err != nil {
		return nil, err
	}
	newRole, ok := auth.ParseRole(role)
	if !ok || newRole == models.RoleUser {
		return nil, apperr.Validation("role must be admin or master_admin")
	}
	if newRole == target.Role {
		return nil, apperr.Validation("already " + string(newRole))
	}
	if newRole == models.RoleMasterAdmin {
		masters, err := s.users.CountByRoles(ctx, models.RoleMasterAdmin)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		if masters >= int64(s.limits.MaxMasterAdmins) {
			return nil, apperr.Validation(fmt.Sprintf("maximum of %d master admins reached", s.limits.MaxMasterAdmins))
		}
	}
	if !auth.IsAdminLevel(target.Role) {
		if err := s.checkAdminCap(ctx); err != nil {
			return nil, err
		}
	}

	if err := s.users.UpdateRole(ctx, target.ID, newRole); err != nil {
		return nil, writeErr(err)
	}

	action := models.ActionAdminPromoted
	if newRole == models.RoleMasterAdmin {
		action = models.ActionMasterAdminPromoted
	}
	s.recorder.Record(ctx, audit.NewEntry(actor, action, target,
		fmt.Sprintf("Promoted from %s to %s", target.Role, newRole)))

	target.Role = newRole
	return target, nil
}

// CreateAdminInput is the payload for CreateAdmin.
type CreateAdminInput struct {
	Email    string
	Password string
	Name     string
}

// CreateAdmin creates a new admin, or upgrades an existing non-admin account
// with the same email in place.
func (s *AdminService) CreateAdmin(ctx context.Context, actor *auth.Session, in CreateAdminInput) (*models.User, error) {
	if err := auth.RequireMasterAdmin(actor); err != nil {
		return nil, err
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	name := strings.TrimSpace(in.Name)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if len(in.Password) < minAdminPasswordLen {
		return nil, apperr.Validation("password must be at least 6 characters")
	}

	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.Internal(err)
	}
	if existing != nil && auth.IsAdminLevel(existing.Role) {
		return nil, apperr.Conflict("an admin with this email already exists")
	}
	if err := s.checkAdminCap(ctx); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	var created *models.User
	details := "Created admin account"
	if existing != nil {
		if err := s.users.UpgradeToAdmin(ctx, existing.ID, models.RoleAdmin, hash, name); err != nil {
			return nil, writeErr(err)
		}
		created, err = loadUser(ctx, s.users, existing.ID)
		if err != nil {
			return nil, err
		}
		details = "Upgraded existing user to admin"
	} else {
		created = &models.User{
			Email:        email,
			PasswordHash: hash,
			Name:         name,
			Provider:     models.ProviderCredentials,
			Role:         models.RoleAdmin,
		}
		if err := s.users.Create(ctx, created); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return nil, apperr.Conflict("email already registered")
			}
			return nil, apperr.Internal(err)
		}
	}

	s.recorder.Record(ctx, audit.NewEntry(actor, models.ActionAdminCreated, created, details))
	return created, nil
}

// DeleteAdmin hard deletes an admin account.
func (s *AdminService) DeleteAdmin(ctx context.Context, actor *auth.Session, targetID primitive.ObjectID) error {
	if err := auth.RequireMasterAdmin(actor); err != nil {
		return err
	}
	target, err := loadUser(ctx, s.users, targetID)
	if err != nil {
		return err
	}
	if err := auth.GuardTarget(actor, target); err != nil {
		return err
	}
	if target.Role != models.RoleAdmin {
		return apperr.Validation("target is not an admin")
	}

	if err := s.users.Delete(ctx, target.ID); err != nil {
		return writeErr(err)
	}

	s.recorder.Record(ctx, audit.NewEntry(actor, models.ActionAdminDeleted, target,
		fmt.Sprintf("Deleted account with role %s", target.Role)))
	return nil
}

// UpdateUserInput holds the editable profile fields. Nil means unchanged.
type UpdateUserInput struct {
	Name         *string
	IsSubscribed *bool
}

// UpdateUser edits profile fields of another account. Admins may use it.
func (s *AdminService) UpdateUser(ctx context.Context, actor *auth.Session, targetID primitive.ObjectID, in UpdateUserInput) (*models.User, error) {
	if err := auth.RequireAdmin(actor); err != nil {
		return nil, err
	}
	target, err := loadUser(ctx, s.users, targetID)
	if err != nil {
		return nil, err
	}
	if err := auth.GuardTarget(actor, target); err != nil {
		return nil, err
	}
	if in.Name == nil && in.IsSubscribed == nil {
		return nil, apperr.Validation("nothing to update")
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return nil, apperr.Validation("name cannot be empty")
	}

	if err := s.users.UpdateProfile(ctx, target.ID, repository.ProfileUpdate{
		Name:         in.Name,
		IsSubscribed: in.IsSubscribed,
	}); err != nil {
		return nil, writeErr(err)
	}

	changed := make([]string, 0, 2)
	if in.Name != nil {
		changed = append(changed, "name")
	}
	if in.IsSubscribed != nil {
		changed = append(changed, "isSubscribed")
	}
	s.recorder.Record(ctx, audit.NewEntry(actor, models.ActionUserUpdated, target,
		"Updated fields: "+strings.Join(changed, ", ")))

	return loadUser(ctx, s.users, target.ID)
}

// ListAdmins returns every admin and master admin.
func (s *AdminService) ListAdmins(ctx context.Context, actor *auth.Session) ([]models.User, error) {
	if err := auth.RequireMasterAdmin(actor); err != nil {
		return nil, err
	}
	admins, _, err := s.users.List(ctx, repository.UserFilter{
		Roles: []models.Role{models.RoleAdmin, models.RoleMasterAdmin},
	}, 1, s.limits.MaxAdmins)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return admins, nil
}

func (s *AdminService) ListUsers(ctx context.Context, actor *auth.Session, filter repository.UserFilter, page, limit int) ([]models.User, int64, error) {
	if err := auth.RequireAdmin(actor); err != nil {
		return nil, 0, err
	}
	users, total, err := s.users.List(ctx, filter, page, limit)
	if err != nil {
		return nil, 0, apperr.Internal(err)
	}
	return users, total, nil
}

func (s *AdminService) checkAdminCap(ctx context.Context) error {
	total, err := s.users.CountByRoles(ctx, models.RoleAdmin, models.RoleMasterAdmin)
	if err != nil {
		return apperr.Internal(err)
	}
	if total >= int64(s.limits.MaxAdmins) {
		return apperr.Validation(fmt.Sprintf("maximum of %d admins reached", s.limits.MaxAdmins))
	}
	return nil
}

func loadUser(ctx context.Context, users repository.UserRepository, id primitive.ObjectID) (*models.User, error) {
	u, err := users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, apperr.Internal(err)
	}
	return u, nil
}

// writeErr maps a repository write failure. A vanished target is NotFound.
func writeErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("user not found")
	}
	return apperr.Internal(err)
}
