package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/govoffice/docdesk/models"
	"github.com/govoffice/docdesk/repositories"
	"github.com/govoffice/docdesk/services"
	"go.uber.org/zap"
)

const documentColumns = `id, reference, direction, subject, counterparty, status, assigned_to, due_date, created_by, created_at, updated_at`

// DocumentRepository implements the repositories.DocumentRepository interface
type DocumentRepository struct {
	db     *DB
	tx     *Transaction
	logger *zap.Logger
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(db *DB, logger *zap.Logger) repositories.DocumentRepository {
	return &DocumentRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new document
func (r *DocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	query := `
		INSERT INTO documents (` + documentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	executor := executorFor(r.db, r.tx)
	_, err := executor.ExecContext(ctx, query,
		doc.ID,
		doc.Reference,
		doc.Direction,
		doc.Subject,
		doc.Counterparty,
		doc.Status,
		doc.AssignedTo,
		doc.DueDate,
		doc.CreatedBy,
		doc.CreatedAt,
		doc.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create document: %w", translateDocumentError(err))
	}

	r.logger.Debug("document created", zap.String("id", doc.ID.String()), zap.String("reference", doc.Reference))
	return nil
}

// GetByID retrieves a document by ID
func (r *DocumentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`

	executor := executorFor(r.db, r.tx)
	doc, err := scanDocument(executor.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("document %s: %w", id, services.ErrDocumentNotFound)
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	return doc, nil
}

// List retrieves documents matching the filter, newest first
func (r *DocumentRepository) List(ctx context.Context, filter repositories.DocumentFilter) ([]*models.Document, error) {
	var (
		conditions []string
		args       []interface{}
	)
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}

	if filter.Direction != "" {
		add("direction = $%d", filter.Direction)
	}
	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}
	if filter.AssignedTo != nil {
		add("assigned_to = $%d", *filter.AssignedTo)
	}

	query := `SELECT ` + documentColumns + ` FROM documents`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	args = append(args, filter.Limit, filter.Offset)
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	executor := executorFor(r.db, r.tx)
	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	docs := []*models.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating document rows: %w", err)
	}

	return docs, nil
}

// Update updates a document
func (r *DocumentRepository) Update(ctx context.Context, doc *models.Document) error {
	query := `
		UPDATE documents
		SET subject = $2,
		    counterparty = $3,
		    status = $4,
		    assigned_to = $5,
		    due_date = $6,
		    updated_at = $7
		WHERE id = $1
	`

	executor := executorFor(r.db, r.tx)
	result, err := executor.ExecContext(ctx, query,
		doc.ID,
		doc.Subject,
		doc.Counterparty,
		doc.Status,
		doc.AssignedTo,
		doc.DueDate,
		doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update document: %w", translateDocumentError(err))
	}

	if err := expectOneRow(result, doc.ID, services.ErrDocumentNotFound); err != nil {
		return err
	}

	r.logger.Debug("document updated", zap.String("id", doc.ID.String()))
	return nil
}

// Delete deletes a document
func (r *DocumentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM documents WHERE id = $1`

	executor := executorFor(r.db, r.tx)
	result, err := executor.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	if err := expectOneRow(result, id, services.ErrDocumentNotFound); err != nil {
		return err
	}

	r.logger.Debug("document deleted", zap.String("id", id.String()))
	return nil
}

// WithTx returns a new repository instance bound to the transaction
func (r *DocumentRepository) WithTx(tx repositories.Transaction) repositories.DocumentRepository {
	return &DocumentRepository{
		db:     r.db,
		tx:     boundTx(tx),
		logger: r.logger,
	}
}

func scanDocument(row rowScanner) (*models.Document, error) {
	doc := &models.Document{}
	err := row.Scan(
		&doc.ID,
		&doc.Reference,
		&doc.Direction,
		&doc.Subject,
		&doc.Counterparty,
		&doc.Status,
		&doc.AssignedTo,
		&doc.DueDate,
		&doc.CreatedBy,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// translateDocumentError maps constraint violations to domain errors.
// assigned_to is the only foreign key on documents.
func translateDocumentError(err error) error {
	if _, ok := uniqueConstraint(err); ok {
		return services.ErrDuplicateReference
	}
	if _, ok := foreignKeyConstraint(err); ok {
		return services.ErrUnknownAssignee.WithDetail("field", "assigned_to")
	}
	return err
}
