package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/apperr"
	"storefront/internal/auth"
	"storefront/internal/logger"
	"storefront/internal/models"
	"storefront/internal/repository"
)

const minRegisterPasswordLen = 8

// SessionService turns credentials into users and users into sessions.
type SessionService struct {
	users  repository.UserRepository
	hasher auth.Hasher
	log    logger.Logger
}

func NewSessionService(users repository.UserRepository, hasher auth.Hasher, log logger.Logger) *SessionService {
	return &SessionService{users: users, hasher: hasher, log: log}
}

// Authenticate verifies an email and password pair. Unknown emails, accounts
// without a password and wrong passwords all yield ErrInvalidCredentials.
func (s *SessionService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.ErrInvalidCredentials
		}
		return nil, apperr.Internal(err)
	}
	if !u.HasPassword() || !s.hasher.Check(password, u.PasswordHash) {
		return nil, apperr.ErrInvalidCredentials
	}
	return u, nil
}

// FederatedLogin returns the user for an asserted identity, creating a plain
// user on first sight. Concurrent first logins converge on one record.
func (s *SessionService) FederatedLogin(ctx context.Context, id auth.Identity) (*models.User, error) {
	u, err := s.users.FindByEmail(ctx, id.Email)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.Internal(err)
	}

	u = &models.User{
		Email:    id.Email,
		Name:     id.Name,
		Image:    id.Picture,
		Provider: id.Provider,
		Role:     models.RoleUser,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return s.reload(ctx, id.Email)
		}
		return nil, apperr.Internal(err)
	}
	s.log.Info("federated user created",
		logger.String("email", u.Email),
		logger.String("provider", u.Provider),
	)
	return u, nil
}

func (s *SessionService) reload(ctx context.Context, email string) (*models.User, error) {
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return u, nil
}

// Materialize re-reads the user on every request. The role in the session is
// always the stored one.
func (s *SessionService) Materialize(ctx context.Context, userID primitive.ObjectID) (*auth.Session, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.Unauthenticated("session user no longer exists")
		}
		return nil, apperr.Internal(err)
	}
	return auth.NewSession(u), nil
}

// Register creates a credentials user with role user.
func (s *SessionService) Register(ctx context.Context, email, password, name string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, apperr.Validation("name is required")
	}
	if len(password) < minRegisterPasswordLen {
		return nil, apperr.Validation("password must be at least 8 characters")
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	u := &models.User{
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		Provider:     models.ProviderCredentials,
		Role:         models.RoleUser,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Conflict("email already registered")
		}
		return nil, apperr.Internal(err)
	}
	return u, nil
}

func validateEmail(email string) error {
	if email == "" {
		return apperr.Validation("email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return apperr.Validation("email is invalid")
	}
	return nil
}
