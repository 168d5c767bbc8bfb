package memstore

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/models"
	"storefront/internal/repository"
)

type RefreshTokens struct {
	mu     sync.Mutex
	tokens map[primitive.ObjectID]models.RefreshToken
}

func NewRefreshTokens() *RefreshTokens {
	return &RefreshTokens{tokens: make(map[primitive.ObjectID]models.RefreshToken)}
}

func (s *RefreshTokens) Create(_ context.Context, t *models.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID.IsZero() {
		t.ID = primitive.NewObjectID()
	}
	s.tokens[t.ID] = *t
	return nil
}

func (s *RefreshTokens) FindActiveByHash(_ context.Context, hash string) (*models.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tokens {
		if t.TokenHash == hash && !t.Revoked {
			t := t
			return &t, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *RefreshTokens) Revoke(_ context.Context, id primitive.ObjectID, replacedBy *primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[id]
	if !ok || t.Revoked {
		return repository.ErrNotFound
	}
	t.Revoked = true
	t.ReplacedByToken = replacedBy
	s.tokens[id] = t
	return nil
}

func (s *RefreshTokens) RevokeByHash(_ context.Context, hash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.tokens {
		if t.TokenHash == hash && !t.Revoked {
			t.Revoked = true
			s.tokens[id] = t
			return true, nil
		}
	}
	return false, nil
}
