// Package storage provides the SQLite implementation of the Storage interface.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/draftwerk/cvpipe/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		source_path TEXT,
		raw_text TEXT NOT NULL,
		language TEXT,
		byte_size INTEGER NOT NULL DEFAULT 0,
		source_type TEXT,
		page_count INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents(created_at);

	CREATE TABLE IF NOT EXISTS records (
		document_id TEXT PRIMARY KEY,
		record_json TEXT NOT NULL,
		report_json TEXT NOT NULL,
		score REAL NOT NULL,
		passed INTEGER NOT NULL,
		quality TEXT NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (document_id) REFERENCES documents(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS reviews (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		document_id TEXT NOT NULL,
		record_json TEXT NOT NULL,
		report_json TEXT NOT NULL,
		resolved INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_reviews_resolved ON reviews(resolved);

	CREATE TABLE IF NOT EXISTS dead_letters (
		id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL,
		item_json TEXT NOT NULL,
		attempt_count INTEGER NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := db.Exec(schema)
	return err
}

// SaveDocument upserts a source document; reprocessing the same file keeps a
// single row.
func (s *SQLiteStorage) SaveDocument(ctx context.Context, doc *models.SourceDocument) error {
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (id, source_path, raw_text, language, byte_size, source_type, page_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			source_path = excluded.source_path,
			raw_text = excluded.raw_text,
			language = excluded.language,
			byte_size = excluded.byte_size,
			source_type = excluded.source_type,
			page_count = excluded.page_count`,
		doc.ID, doc.SourcePath, doc.RawText, string(doc.Language), doc.ByteSize,
		doc.SourceType, doc.PageCount, doc.CreatedAt,
	)
	return err
}

// GetDocument returns a source document by ID.
func (s *SQLiteStorage) GetDocument(ctx context.Context, id string) (*models.SourceDocument, error) {
	var doc models.SourceDocument
	var language string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, source_path, raw_text, language, byte_size, source_type, page_count, created_at
		 FROM documents WHERE id = ?`, id,
	).Scan(&doc.ID, &doc.SourcePath, &doc.RawText, &language, &doc.ByteSize,
		&doc.SourceType, &doc.PageCount, &doc.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("document not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	doc.Language = models.Language(language)
	return &doc, nil
}

// ListDocuments returns documents with offset and limit, newest first.
func (s *SQLiteStorage) ListDocuments(ctx context.Context, offset, limit int) ([]*models.SourceDocument, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source_path, raw_text, language, byte_size, source_type, page_count, created_at
		 FROM documents ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*models.SourceDocument
	for rows.Next() {
		var doc models.SourceDocument
		var language string
		if err := rows.Scan(&doc.ID, &doc.SourcePath, &doc.RawText, &language, &doc.ByteSize,
			&doc.SourceType, &doc.PageCount, &doc.CreatedAt); err != nil {
			return nil, err
		}
		doc.Language = models.Language(language)
		docs = append(docs, &doc)
	}
	return docs, rows.Err()
}

// DeleteDocument removes a document and its canonical record.
func (s *SQLiteStorage) DeleteDocument(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE document_id = ?`, id); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	return err
}

// SaveRecord upserts the canonical record and validation report for a document.
func (s *SQLiteStorage) SaveRecord(ctx context.Context, record *models.CanonicalRecord, report *models.ValidationReport) error {
	recordJSON, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO records (document_id, record_json, report_json, score, passed, quality, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(document_id) DO UPDATE SET
			record_json = excluded.record_json,
			report_json = excluded.report_json,
			score = excluded.score,
			passed = excluded.passed,
			quality = excluded.quality,
			updated_at = excluded.updated_at`,
		record.DocumentID, string(recordJSON), string(reportJSON),
		report.OverallScore, report.Passed, string(report.Quality), time.Now(),
	)
	return err
}

// GetRecord returns the canonical record and report for a document.
func (s *SQLiteStorage) GetRecord(ctx context.Context, documentID string) (*models.CanonicalRecord, *models.ValidationReport, error) {
	var recordJSON, reportJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT record_json, report_json FROM records WHERE document_id = ?`, documentID,
	).Scan(&recordJSON, &reportJSON)

	if err == sql.ErrNoRows {
		return nil, nil, fmt.Errorf("record not found: %s", documentID)
	}
	if err != nil {
		return nil, nil, err
	}

	var record models.CanonicalRecord
	if err := json.Unmarshal([]byte(recordJSON), &record); err != nil {
		return nil, nil, fmt.Errorf("failed to unmarshal record: %w", err)
	}
	var report models.ValidationReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	return &record, &report, nil
}

// SaveReview stores a quality-failed result for human correction.
func (s *SQLiteStorage) SaveReview(ctx context.Context, entry *ReviewEntry) error {
	recordJSON, err := json.Marshal(entry.Record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	reportJSON, err := json.Marshal(entry.Report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO reviews (document_id, record_json, report_json, resolved, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		entry.DocumentID, string(recordJSON), string(reportJSON), entry.Resolved, entry.CreatedAt,
	)
	if err != nil {
		return err
	}
	entry.ID, _ = result.LastInsertId()
	return nil
}

// ListReviews returns review entries, oldest first. Resolved entries are
// included only when includeResolved is set.
func (s *SQLiteStorage) ListReviews(ctx context.Context, includeResolved bool) ([]*ReviewEntry, error) {
	query := `SELECT id, document_id, record_json, report_json, resolved, created_at
		 FROM reviews`
	if !includeResolved {
		query += ` WHERE resolved = 0`
	}
	query += ` ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*ReviewEntry
	for rows.Next() {
		var entry ReviewEntry
		var recordJSON, reportJSON string
		if err := rows.Scan(&entry.ID, &entry.DocumentID, &recordJSON, &reportJSON,
			&entry.Resolved, &entry.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(recordJSON), &entry.Record); err != nil {
			return nil, fmt.Errorf("failed to unmarshal record: %w", err)
		}
		if err := json.Unmarshal([]byte(reportJSON), &entry.Report); err != nil {
			return nil, fmt.Errorf("failed to unmarshal report: %w", err)
		}
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}

// ResolveReview marks a review entry as handled.
func (s *SQLiteStorage) ResolveReview(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `UPDATE reviews SET resolved = 1 WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("review not found: %d", id)
	}
	return nil
}

// SaveDeadLetter stores a dead-lettered work item with its attempt history.
func (s *SQLiteStorage) SaveDeadLetter(ctx context.Context, item *models.WorkItem) error {
	itemJSON, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal work item: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO dead_letters (id, document_id, item_json, attempt_count, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			item_json = excluded.item_json,
			attempt_count = excluded.attempt_count`,
		item.ID, item.Document.ID, string(itemJSON), item.AttemptCount, time.Now(),
	)
	return err
}

// ListDeadLetters returns all dead-lettered work items, newest first.
func (s *SQLiteStorage) ListDeadLetters(ctx context.Context) ([]*models.WorkItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT item_json FROM dead_letters ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*models.WorkItem
	for rows.Next() {
		var itemJSON string
		if err := rows.Scan(&itemJSON); err != nil {
			return nil, err
		}
		var item models.WorkItem
		if err := json.Unmarshal([]byte(itemJSON), &item); err != nil {
			return nil, fmt.Errorf("failed to unmarshal work item: %w", err)
		}
		items = append(items, &item)
	}
	return items, rows.Err()
}

// CountDocuments returns the total number of source documents.
func (s *SQLiteStorage) CountDocuments(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&count)
	return count, err
}

// CountRecords returns the total number of canonical records.
func (s *SQLiteStorage) CountRecords(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
