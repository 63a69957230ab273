package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/govoffice/docdesk/models"
)

// TransactionManager opens database transactions. Repositories join one
// through their WithTx method; services.WithTransaction drives commit and rollback.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// Transaction represents a database transaction
type Transaction interface {
	Commit() error
	Rollback() error
}

// UserRepository handles user data operations
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *models.User) error

	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)

	// GetByUsername retrieves a user by login name
	GetByUsername(ctx context.Context, username string) (*models.User, error)

	// List retrieves users ordered by username with pagination
	List(ctx context.Context, limit, offset int) ([]*models.User, error)

	// Update updates profile, role, explicit permissions and active flag
	Update(ctx context.Context, user *models.User) error

	// TouchLastLogin records a successful sign-in
	TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error

	// Delete deletes a user
	Delete(ctx context.Context, id uuid.UUID) error

	// WithTx returns a new repository instance bound to the transaction
	WithTx(tx Transaction) UserRepository
}

// DocumentFilter narrows document listings. Zero fields are ignored.
type DocumentFilter struct {
	Direction  models.DocumentDirection
	Status     models.DocumentStatus
	AssignedTo *uuid.UUID
	Limit      int
	Offset     int
}

// DocumentRepository handles correspondence register operations
type DocumentRepository interface {
	// Create creates a new document
	Create(ctx context.Context, doc *models.Document) error

	// GetByID retrieves a document by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.Document, error)

	// List retrieves documents matching the filter, newest first
	List(ctx context.Context, filter DocumentFilter) ([]*models.Document, error)

	// Update updates a document
	Update(ctx context.Context, doc *models.Document) error

	// Delete deletes a document
	Delete(ctx context.Context, id uuid.UUID) error

	// WithTx returns a new repository instance bound to the transaction
	WithTx(tx Transaction) DocumentRepository
}

// AuditFilter narrows audit log listings. Zero fields are ignored.
type AuditFilter struct {
	Action models.AuditAction
	UserID *uuid.UUID
	Start  *time.Time
	End    *time.Time
	Limit  int
	Offset int
}

// AuditRepository handles audit log data operations
type AuditRepository interface {
	// Insert inserts a new audit log entry
	Insert(ctx context.Context, log *models.AuditLog) error

	// GetByID retrieves an audit log by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.AuditLog, error)

	// List retrieves audit logs matching the filter, newest first
	List(ctx context.Context, filter AuditFilter) ([]*models.AuditLog, error)

	// GetByRequestID retrieves audit logs by request ID
	GetByRequestID(ctx context.Context, requestID string) ([]*models.AuditLog, error)

	// WithTx returns a new repository instance bound to the transaction
	WithTx(tx Transaction) AuditRepository
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Users     UserRepository
	Documents DocumentRepository
	AuditLogs AuditRepository
}
