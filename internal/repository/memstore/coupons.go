package memstore

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/models"
	"storefront/internal/repository"
)

type Coupons struct {
	mu    sync.RWMutex
	items []models.Coupon
}

func NewCoupons() *Coupons {
	return &Coupons{}
}

func (s *Coupons) FindActiveByCode(_ context.Context, code string) (*models.Coupon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.items {
		if c.Code == code && c.IsActive {
			c := c
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *Coupons) FindByID(_ context.Context, id primitive.ObjectID) (*models.Coupon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.index(id); i >= 0 {
		c := s.items[i]
		return &c, nil
	}
	return nil, repository.ErrNotFound
}

func (s *Coupons) Create(_ context.Context, c *models.Coupon) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.items {
		if existing.Code == c.Code {
			return repository.ErrDuplicate
		}
	}
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now
	s.items = append(s.items, *c)
	return nil
}

func (s *Coupons) Update(_ context.Context, id primitive.ObjectID, upd repository.CouponUpdate) (*models.Coupon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(id)
	if i < 0 {
		return nil, repository.ErrNotFound
	}
	c := &s.items[i]
	if upd.Discount != nil {
		c.Discount = *upd.Discount
	}
	if upd.DiscountType != nil {
		c.DiscountType = *upd.DiscountType
	}
	if upd.MinCartValue != nil {
		c.MinCartValue = *upd.MinCartValue
	}
	if upd.IsActive != nil {
		c.IsActive = *upd.IsActive
	}
	if upd.Image != nil {
		c.Image = *upd.Image
	}
	c.UpdatedAt = time.Now()
	out := *c
	return &out, nil
}

func (s *Coupons) Delete(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(id)
	if i < 0 {
		return repository.ErrNotFound
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	return nil
}

func (s *Coupons) List(_ context.Context) ([]models.Coupon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Coupon, 0, len(s.items))
	for i := len(s.items) - 1; i >= 0; i-- {
		out = append(out, s.items[i])
	}
	return out, nil
}

func (s *Coupons) index(id primitive.ObjectID) int {
	for i, c := range s.items {
		if c.ID == id {
			return i
		}
	}
	return -1
}
