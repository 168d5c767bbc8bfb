package memstore

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/models"
	"storefront/internal/repository"
)

type AdminLogs struct {
	mu      sync.Mutex
	entries []models.AdminLog
}

func NewAdminLogs() *AdminLogs {
	return &AdminLogs{}
}

func (s *AdminLogs) Insert(_ context.Context, entry *models.AdminLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	s.entries = append(s.entries, *entry)
	return nil
}

func (s *AdminLogs) List(_ context.Context, filter repository.AdminLogFilter, page, limit int) ([]models.AdminLog, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := []models.AdminLog{}
	for _, e := range s.entries {
		if filter.Action != "" && e.Action != filter.Action {
			continue
		}
		if filter.AdminID != nil && e.AdminID != *filter.AdminID {
			continue
		}
		if filter.From != nil && e.CreatedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && e.CreatedAt.After(*filter.To) {
			continue
		}
		matched = append(matched, e)
	}
	sortNewestFirst(matched)
	return paginate(matched, page, limit), int64(len(matched)), nil
}

// All returns a copy of every stored entry in insertion order.
func (s *AdminLogs) All() []models.AdminLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.AdminLog(nil), s.entries...)
}
