package models

import (
	"time"

	"github.com/google/uuid"
)

// DocumentDirection tells whether a document was received or sent by the office.
type DocumentDirection string

const (
	DirectionIncoming DocumentDirection = "incoming"
	DirectionOutgoing DocumentDirection = "outgoing"
)

// IsValid reports whether d is a known direction.
func (d DocumentDirection) IsValid() bool {
	return d == DirectionIncoming || d == DirectionOutgoing
}

// DocumentStatus tracks a document through intake and dispatch.
type DocumentStatus string

const (
	DocumentStatusRegistered DocumentStatus = "registered"
	DocumentStatusInProgress DocumentStatus = "in_progress"
	DocumentStatusDispatched DocumentStatus = "dispatched"
	DocumentStatusArchived   DocumentStatus = "archived"
)

// IsValid reports whether s is a known status.
func (s DocumentStatus) IsValid() bool {
	switch s {
	case DocumentStatusRegistered, DocumentStatusInProgress, DocumentStatusDispatched, DocumentStatusArchived:
		return true
	}
	return false
}

// Document is an entry in the office correspondence register.
type Document struct {
	ID           uuid.UUID         `json:"id" db:"id"`
	Reference    string            `json:"reference" db:"reference"` // office registry number, unique
	Direction    DocumentDirection `json:"direction" db:"direction"`
	Subject      string            `json:"subject" db:"subject"`
	Counterparty string            `json:"counterparty" db:"counterparty"` // sender for incoming, recipient for outgoing
	Status       DocumentStatus    `json:"status" db:"status"`
	AssignedTo   *uuid.UUID        `json:"assigned_to,omitempty" db:"assigned_to"`
	DueDate      *time.Time        `json:"due_date,omitempty" db:"due_date"`
	CreatedBy    uuid.UUID         `json:"created_by" db:"created_by"`
	CreatedAt    time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the Document model
func (Document) TableName() string {
	return "documents"
}

// NewDocument creates a registered document.
func NewDocument(reference string, direction DocumentDirection, subject, counterparty string, createdBy uuid.UUID) *Document {
	now := time.Now()
	return &Document{
		ID:           uuid.New(),
		Reference:    reference,
		Direction:    direction,
		Subject:      subject,
		Counterparty: counterparty,
		Status:       DocumentStatusRegistered,
		CreatedBy:    createdBy,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Assign sets the staff member handling the document and moves it in progress.
func (d *Document) Assign(userID uuid.UUID) {
	d.AssignedTo = &userID
	if d.Status == DocumentStatusRegistered {
		d.Status = DocumentStatusInProgress
	}
	d.UpdatedAt = time.Now()
}
