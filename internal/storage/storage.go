// Package storage defines the persistence interface for source documents,
// canonical records, review entries, and dead letters.
package storage

import (
	"context"
	"time"

	"github.com/draftwerk/cvpipe/internal/models"
)

// ReviewEntry is a quality-failed result awaiting human correction.
type ReviewEntry struct {
	ID         int64                   `json:"id"`
	DocumentID string                  `json:"document_id"`
	Record     models.CanonicalRecord  `json:"record"`
	Report     models.ValidationReport `json:"report"`
	CreatedAt  time.Time               `json:"created_at"`
	Resolved   bool                    `json:"resolved"`
}

// Storage defines persistence operations for the pipeline.
type Storage interface {
	// Document operations
	SaveDocument(ctx context.Context, doc *models.SourceDocument) error
	GetDocument(ctx context.Context, id string) (*models.SourceDocument, error)
	ListDocuments(ctx context.Context, offset, limit int) ([]*models.SourceDocument, error)
	DeleteDocument(ctx context.Context, id string) error

	// Canonical record operations
	SaveRecord(ctx context.Context, record *models.CanonicalRecord, report *models.ValidationReport) error
	GetRecord(ctx context.Context, documentID string) (*models.CanonicalRecord, *models.ValidationReport, error)

	// Review queue
	SaveReview(ctx context.Context, entry *ReviewEntry) error
	ListReviews(ctx context.Context, includeResolved bool) ([]*ReviewEntry, error)
	ResolveReview(ctx context.Context, id int64) error

	// Dead letters
	SaveDeadLetter(ctx context.Context, item *models.WorkItem) error
	ListDeadLetters(ctx context.Context) ([]*models.WorkItem, error)

	// Stats
	CountDocuments(ctx context.Context) (int64, error)
	CountRecords(ctx context.Context) (int64, error)

	Close() error
}
