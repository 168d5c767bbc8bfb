// Package audit records privileged admin mutations. Recording is fire and
// forget: the caller never sees a write failure.
package audit

import (
	"context"
	"sync"
	"time"

	"storefront/internal/auth"
	"storefront/internal/logger"
	"storefront/internal/metrics"
	"storefront/internal/models"
	"storefront/internal/repository"
)

// Recorder accepts audit entries without reporting failures.
type Recorder interface {
	Record(ctx context.Context, entry models.AdminLog)
}

type ctxKey struct{}

// WithClientIP attaches the origin address used for entries recorded under ctx.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ctxKey{}, ip)
}

func clientIP(ctx context.Context) string {
	ip, _ := ctx.Value(ctxKey{}).(string)
	return ip
}

// NewEntry builds an entry for actor acting on target. target may be nil.
func NewEntry(actor *auth.Session, action models.AdminAction, target *models.User, details string) models.AdminLog {
	entry := models.AdminLog{
		AdminID:    actor.UserID,
		AdminEmail: actor.Email,
		Action:     action,
		Details:    details,
	}
	if target != nil {
		id := target.ID
		entry.TargetUserID = &id
		entry.TargetEmail = target.Email
	}
	return entry
}

const writeTimeout = 5 * time.Second

// AsyncRecorder queues entries in a bounded channel drained by one worker.
type AsyncRecorder struct {
	repo    repository.AdminLogRepository
	log     logger.Logger
	metrics *metrics.Metrics

	mu     sync.RWMutex
	closed bool
	queue  chan models.AdminLog
	done   chan struct{}
	now    func() time.Time
}

func NewAsyncRecorder(repo repository.AdminLogRepository, log logger.Logger, m *metrics.Metrics, size int) *AsyncRecorder {
	if size <= 0 {
		size = 1
	}
	r := &AsyncRecorder{
		repo:    repo,
		log:     log,
		metrics: m,
		queue:   make(chan models.AdminLog, size),
		done:    make(chan struct{}),
		now:     time.Now,
	}
	go r.run()
	return r
}

// Record enqueues entry. A full queue, a closed recorder or an action outside
// the audited set drops the entry with a log line.
func (r *AsyncRecorder) Record(ctx context.Context, entry models.AdminLog) {
	if !entry.Action.Valid() {
		r.log.Error("audit entry rejected",
			logger.String("action", string(entry.Action)),
			logger.String("admin_email", entry.AdminEmail),
		)
		r.count("rejected")
		return
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = r.now()
	}
	if entry.IPAddress == "" {
		entry.IPAddress = clientIP(ctx)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.drop(entry, "recorder closed")
		return
	}
	select {
	case r.queue <- entry:
		r.gauge(1)
	default:
		r.drop(entry, "queue full")
	}
}

func (r *AsyncRecorder) run() {
	defer close(r.done)
	for entry := range r.queue {
		r.gauge(-1)
		r.write(entry)
	}
}

func (r *AsyncRecorder) write(entry models.AdminLog) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := r.repo.Insert(ctx, &entry); err != nil {
		r.log.Error("audit write failed",
			logger.String("action", string(entry.Action)),
			logger.String("admin_id", entry.AdminID.Hex()),
			logger.String("target_email", entry.TargetEmail),
			logger.Error(err),
		)
		r.count("failed")
		return
	}
	r.count("written")
}

// Close stops accepting entries and waits for the queue to drain or ctx to end.
func (r *AsyncRecorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()

	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *AsyncRecorder) drop(entry models.AdminLog, reason string) {
	r.log.Warn("audit entry dropped",
		logger.String("reason", reason),
		logger.String("action", string(entry.Action)),
		logger.String("admin_id", entry.AdminID.Hex()),
	)
	r.count("dropped")
}

func (r *AsyncRecorder) count(outcome string) {
	if r.metrics != nil {
		r.metrics.AuditRecorded.WithLabelValues(outcome).Inc()
	}
}

func (r *AsyncRecorder) gauge(delta float64) {
	if r.metrics != nil {
		r.metrics.AuditQueue.Add(delta)
	}
}
