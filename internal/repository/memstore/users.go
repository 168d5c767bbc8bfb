// Package memstore provides in-memory repositories for tests and local runs
// without MongoDB.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/models"
	"storefront/internal/repository"
)

type Users struct {
	mu    sync.RWMutex
	byID  map[primitive.ObjectID]models.User
	order []primitive.ObjectID
}

func NewUsers() *Users {
	return &Users{byID: make(map[primitive.ObjectID]models.User)}
}

func (s *Users) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneUser(u), nil
}

func (s *Users) FindByEmail(_ context.Context, email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.byID {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *Users) Create(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	for _, existing := range s.byID {
		if existing.Email == u.Email {
			return repository.ErrDuplicate
		}
	}
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	s.byID[u.ID] = *cloneUser(*u)
	s.order = append(s.order, u.ID)
	return nil
}

func (s *Users) UpdateRole(_ context.Context, id primitive.ObjectID, role models.Role) error {
	return s.mutate(id, func(u *models.User) { u.Role = role })
}

func (s *Users) UpdatePassword(_ context.Context, id primitive.ObjectID, hash string) error {
	return s.mutate(id, func(u *models.User) { u.PasswordHash = hash })
}

func (s *Users) UpgradeToAdmin(_ context.Context, id primitive.ObjectID, role models.Role, hash, name string) error {
	return s.mutate(id, func(u *models.User) {
		u.Role = role
		u.PasswordHash = hash
		u.Provider = models.ProviderCredentials
		if u.Name == "" {
			u.Name = name
		}
	})
}

func (s *Users) UpdateProfile(_ context.Context, id primitive.ObjectID, upd repository.ProfileUpdate) error {
	return s.mutate(id, func(u *models.User) {
		if upd.Name != nil {
			u.Name = strings.TrimSpace(*upd.Name)
		}
		if upd.IsSubscribed != nil {
			u.IsSubscribed = *upd.IsSubscribed
		}
	})
}

func (s *Users) Delete(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.byID, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *Users) CountByRoles(_ context.Context, roles ...models.Role) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, u := range s.byID {
		if hasRole(roles, u.Role) {
			n++
		}
	}
	return n, nil
}

func (s *Users) List(_ context.Context, filter repository.UserFilter, page, limit int) ([]models.User, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	matched := []models.User{}
	for i := len(s.order) - 1; i >= 0; i-- {
		u := s.byID[s.order[i]]
		if len(filter.Roles) > 0 && !hasRole(filter.Roles, u.Role) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(u.Email), search) &&
			!strings.Contains(strings.ToLower(u.Name), search) {
			continue
		}
		u.PasswordHash = ""
		matched = append(matched, u)
	}
	return paginate(matched, page, limit), int64(len(matched)), nil
}

func (s *Users) IncrementOrderStats(_ context.Context, id primitive.ObjectID, amount float64, at time.Time) error {
	return s.mutate(id, func(u *models.User) {
		u.Stats.TotalOrders++
		u.Stats.TotalSpent += amount
		u.Stats.LastOrderAt = &at
	})
}

func (s *Users) AddToSet(_ context.Context, id primitive.ObjectID, field string, productID primitive.ObjectID) error {
	return s.mutate(id, func(u *models.User) {
		set := productSet(u, field)
		for _, p := range *set {
			if p == productID {
				return
			}
		}
		*set = append(*set, productID)
	})
}

func (s *Users) Pull(_ context.Context, id primitive.ObjectID, field string, productID primitive.ObjectID) error {
	return s.mutate(id, func(u *models.User) {
		set := productSet(u, field)
		out := (*set)[:0]
		for _, p := range *set {
			if p != productID {
				out = append(out, p)
			}
		}
		*set = out
	})
}

func (s *Users) mutate(id primitive.ObjectID, fn func(u *models.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	c := cloneUser(u)
	fn(c)
	c.UpdatedAt = time.Now()
	s.byID[id] = *c
	return nil
}

func productSet(u *models.User, field string) *[]primitive.ObjectID {
	if field == repository.FieldLiked {
		return &u.Liked
	}
	return &u.Wishlist
}

func cloneUser(u models.User) *models.User {
	u.Wishlist = append([]primitive.ObjectID(nil), u.Wishlist...)
	u.Liked = append([]primitive.ObjectID(nil), u.Liked...)
	return &u
}

func hasRole(roles []models.Role, r models.Role) bool {
	for _, role := range roles {
		if role == r {
			return true
		}
	}
	return false
}

func paginate[T any](items []T, page, limit int) []T {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		return items
	}
	start := (page - 1) * limit
	if start >= len(items) {
		return []T{}
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

// sortNewestFirst orders logs by creation time descending.
func sortNewestFirst(logs []models.AdminLog) {
	sort.SliceStable(logs, func(i, j int) bool {
		return logs[i].CreatedAt.After(logs[j].CreatedAt)
	})
}
