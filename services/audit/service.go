package audit

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/govoffice/docdesk/models"
	"github.com/govoffice/docdesk/repositories"
	"go.uber.org/zap"
)

var (
	// ErrNotStarted is returned when events are logged before Start or after Stop.
	ErrNotStarted = errors.New("audit service not started")
	// ErrBufferFull is returned by LogEvent when the queue cannot take more events.
	ErrBufferFull = errors.New("audit event buffer full")
)

// insertTimeout bounds a single repository write.
const insertTimeout = 5 * time.Second

// Actor identifies who performed an audited action.
type Actor struct {
	UserID   *uuid.UUID
	Username string
}

// RequestMeta carries the request fields copied into every audit row.
type RequestMeta struct {
	RequestID string
	IPAddress string
	UserAgent string
}

// AuditService writes audit logs asynchronously through a pool of workers.
type AuditService struct {
	auditRepo   repositories.AuditRepository
	logger      *zap.Logger
	events      chan *models.AuditLog
	workerCount int
	bufferSize  int
	wg          sync.WaitGroup
	mu          sync.RWMutex
	started     bool
	stopped     bool
}

// Config holds configuration for the AuditService
type Config struct {
	BufferSize  int
	WorkerCount int
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		BufferSize:  1000,
		WorkerCount: 2,
	}
}

// NewAuditService creates a new AuditService instance
func NewAuditService(auditRepo repositories.AuditRepository, logger *zap.Logger, config Config) *AuditService {
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultConfig().BufferSize
	}
	if config.WorkerCount <= 0 {
		config.WorkerCount = DefaultConfig().WorkerCount
	}

	return &AuditService{
		auditRepo:   auditRepo,
		logger:      logger,
		events:      make(chan *models.AuditLog, config.BufferSize),
		workerCount: config.WorkerCount,
		bufferSize:  config.BufferSize,
	}
}

// Start launches the background workers. A stopped service cannot be restarted.
func (s *AuditService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return errors.New("audit service already started")
	}
	if s.stopped {
		return errors.New("audit service already stopped")
	}

	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.started = true
	s.logger.Info("started audit service",
		zap.Int("worker_count", s.workerCount),
		zap.Int("buffer_size", s.bufferSize))

	return nil
}

// Stop closes the queue and waits up to timeout for pending events to be written.
func (s *AuditService) Stop(timeout time.Duration) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return ErrNotStarted
	}
	s.started = false
	s.stopped = true
	pending := len(s.events)
	close(s.events)
	s.mu.Unlock()

	s.logger.Info("stopping audit service", zap.Int("pending_events", pending))

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("audit service stopped gracefully")
		return nil
	case <-time.After(timeout):
		return errors.New("audit service stop timed out")
	}
}

// LogEvent queues an audit log without blocking. When the buffer is full the
// event is dropped and ErrBufferFull returned.
func (s *AuditService) LogEvent(log *models.AuditLog) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return ErrNotStarted
	}

	select {
	case s.events <- log:
		return nil
	default:
		s.logger.Warn("audit event channel full, dropping event",
			zap.String("action", string(log.Action)),
			zap.String("request_id", log.RequestID))
		return ErrBufferFull
	}
}

func (s *AuditService) worker(id int) {
	defer s.wg.Done()

	for log := range s.events {
		if err := s.write(log); err != nil {
			s.logger.Error("failed to write audit log",
				zap.Int("worker_id", id),
				zap.String("action", string(log.Action)),
				zap.Error(err))
		}
	}
}

func (s *AuditService) write(log *models.AuditLog) error {
	ctx, cancel := context.WithTimeout(context.Background(), insertTimeout)
	defer cancel()
	return s.auditRepo.Insert(ctx, log)
}

// Stats reports queue occupancy.
type Stats struct {
	BufferSize    int
	PendingEvents int
	WorkerCount   int
	Started       bool
}

// GetStats returns statistics about the audit service
func (s *AuditService) GetStats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Stats{
		BufferSize:    s.bufferSize,
		PendingEvents: len(s.events),
		WorkerCount:   s.workerCount,
		Started:       s.started,
	}
}

func newEntry(action models.AuditAction, resourceType string, actor Actor, meta RequestMeta) *models.AuditLog {
	log := models.NewAuditLog(action, resourceType)
	log.UserID = actor.UserID
	log.Username = actor.Username
	return log.WithRequest(meta.RequestID, meta.IPAddress, meta.UserAgent)
}

// LogAccessDenied records a gate denial. outcome is the gate outcome name.
func (s *AuditService) LogAccessDenied(actor Actor, meta RequestMeta, path, outcome string) error {
	log := newEntry(models.AuditActionAccessDenied, "route", actor, meta)
	log.WithDetails(map[string]string{
		"path":    path,
		"outcome": outcome,
	})
	return s.LogEvent(log)
}

// LogLoginSucceeded records a successful sign-in.
func (s *AuditService) LogLoginSucceeded(user *models.User, meta RequestMeta) error {
	log := newEntry(models.AuditActionLoginSucceeded, "session", Actor{UserID: &user.ID, Username: user.Username}, meta)
	log.WithResource(user.ID)
	return s.LogEvent(log)
}

// LogLoginFailed records a rejected sign-in attempt. The password is never recorded.
func (s *AuditService) LogLoginFailed(username, reason string, meta RequestMeta) error {
	log := newEntry(models.AuditActionLoginFailed, "session", Actor{Username: username}, meta)
	log.WithDetails(map[string]string{"reason": reason})
	return s.LogEvent(log)
}

// LogLogout records a sign-out.
func (s *AuditService) LogLogout(actor Actor, meta RequestMeta) error {
	return s.LogEvent(newEntry(models.AuditActionLogout, "session", actor, meta))
}

// LogUserChange records a user administration action.
func (s *AuditService) LogUserChange(action models.AuditAction, target *models.User, actor Actor, meta RequestMeta, changes map[string]interface{}) error {
	log := newEntry(action, "user", actor, meta)
	log.WithResource(target.ID)

	details := map[string]interface{}{
		"username": target.Username,
		"role":     target.Role,
	}
	if len(changes) > 0 {
		details["changes"] = changes
	}
	log.WithDetails(details)

	return s.LogEvent(log)
}

// LogDocumentChange records a register action on a document.
func (s *AuditService) LogDocumentChange(action models.AuditAction, doc *models.Document, actor Actor, meta RequestMeta) error {
	log := newEntry(action, "document", actor, meta)
	log.WithResource(doc.ID)
	log.WithDetails(map[string]string{
		"reference": doc.Reference,
		"direction": string(doc.Direction),
		"status":    string(doc.Status),
	})
	return s.LogEvent(log)
}
