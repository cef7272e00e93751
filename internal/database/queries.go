package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang/snappy"

	"github.com/zombar/textinsight/internal/models"
)

// CreateAnalysis inserts a pending analysis. CreatedAt and UpdatedAt are
// set to now when zero.
func (db *DB) CreateAnalysis(ctx context.Context, analysis *models.Analysis) error {
	now := time.Now().UTC()
	if analysis.CreatedAt.IsZero() {
		analysis.CreatedAt = now
	}
	if analysis.UpdatedAt.IsZero() {
		analysis.UpdatedAt = analysis.CreatedAt
	}
	if analysis.Status == "" {
		analysis.Status = models.StatusPending
	}

	optionsJSON, err := json.Marshal(analysis.Request)
	if err != nil {
		return fmt.Errorf("failed to marshal options: %w", err)
	}
	report, err := encodeReport(analysis.Report)
	if err != nil {
		return err
	}

	_, err = db.conn.ExecContext(ctx, db.rebind(`
		INSERT INTO analyses (id, status, document_count, options, report, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`), analysis.ID, analysis.Status, analysis.DocumentCount, string(optionsJSON), report, analysis.Error,
		analysis.CreatedAt.UnixNano(), analysis.UpdatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to insert analysis: %w", err)
	}
	return nil
}

// CompleteAnalysis stores the report and marks the analysis completed
func (db *DB) CompleteAnalysis(ctx context.Context, id string, report *models.CorpusReport) error {
	data, err := encodeReport(report)
	if err != nil {
		return err
	}
	return db.update(ctx, `
		UPDATE analyses SET status = ?, report = ?, error = '', updated_at = ?
		WHERE id = ?
	`, models.StatusCompleted, data, time.Now().UTC().UnixNano(), id)
}

// FailAnalysis records message and marks the analysis failed
func (db *DB) FailAnalysis(ctx context.Context, id, message string) error {
	return db.update(ctx, `
		UPDATE analyses SET status = ?, error = ?, updated_at = ?
		WHERE id = ?
	`, models.StatusFailed, message, time.Now().UTC().UnixNano(), id)
}

func (db *DB) update(ctx context.Context, query string, args ...any) error {
	result, err := db.conn.ExecContext(ctx, db.rebind(query), args...)
	if err != nil {
		return fmt.Errorf("failed to update analysis: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// GetAnalysis retrieves an analysis, including its report, by ID
func (db *DB) GetAnalysis(ctx context.Context, id string) (*models.Analysis, error) {
	row := db.conn.QueryRowContext(ctx, db.rebind(`
		SELECT id, status, document_count, options, report, error, created_at, updated_at
		FROM analyses
		WHERE id = ?
	`), id)

	analysis, err := scanAnalysis(row, true)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get analysis: %w", err)
	}
	return analysis, nil
}

// ListAnalyses retrieves analyses newest first with pagination. Reports are
// not loaded; fetch one with GetAnalysis.
func (db *DB) ListAnalyses(ctx context.Context, limit, offset int) ([]*models.Analysis, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := db.conn.QueryContext(ctx, db.rebind(`
		SELECT id, status, document_count, options, NULL, error, created_at, updated_at
		FROM analyses
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?
	`), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query analyses: %w", err)
	}
	defer rows.Close()

	analyses := []*models.Analysis{}
	for rows.Next() {
		analysis, err := scanAnalysis(rows, false)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		analyses = append(analyses, analysis)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return analyses, nil
}

// CountAnalyses returns the number of analyses with status, or all of them
// when status is empty.
func (db *DB) CountAnalyses(ctx context.Context, status string) (int, error) {
	var count int
	var err error
	if status == "" {
		err = db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM analyses").Scan(&count)
	} else {
		err = db.conn.QueryRowContext(ctx, db.rebind("SELECT COUNT(*) FROM analyses WHERE status = ?"), status).Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to count analyses: %w", err)
	}
	return count, nil
}

// DeleteAnalysis deletes an analysis by ID
func (db *DB) DeleteAnalysis(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx, db.rebind("DELETE FROM analyses WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("failed to delete analysis: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(s scanner, withReport bool) (*models.Analysis, error) {
	var (
		a           models.Analysis
		optionsJSON string
		report      []byte
		createdAt   int64
		updatedAt   int64
	)
	if err := s.Scan(&a.ID, &a.Status, &a.DocumentCount, &optionsJSON, &report, &a.Error, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(optionsJSON), &a.Request); err != nil {
		return nil, fmt.Errorf("failed to unmarshal options: %w", err)
	}
	if withReport && len(report) > 0 {
		decoded, err := decodeReport(report)
		if err != nil {
			return nil, err
		}
		a.Report = decoded
	}
	a.CreatedAt = time.Unix(0, createdAt).UTC()
	a.UpdatedAt = time.Unix(0, updatedAt).UTC()
	return &a, nil
}

// encodeReport returns the snappy compressed report JSON, or nil for a nil
// report.
func encodeReport(report *models.CorpusReport) ([]byte, error) {
	if report == nil {
		return nil, nil
	}
	data, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}
	return snappy.Encode(nil, data), nil
}

func decodeReport(data []byte) (*models.CorpusReport, error) {
	raw, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress report: %w", err)
	}
	var report models.CorpusReport
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	return &report, nil
}
