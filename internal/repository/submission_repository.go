package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/basel-ax/watermark-builder/internal/domain"
)

// SubmissionRepository defines the interface for submission history access
type SubmissionRepository interface {
	RecordSubmission(ctx context.Context, rec domain.SubmissionRecord) error
	UpdateStatus(ctx context.Context, sessionID string, seq uint64, state domain.RequestState, message string) error
	ListBySession(ctx context.Context, sessionID string, limit int) ([]domain.SubmissionRecord, error)
	LatestSeq(ctx context.Context, sessionID string) (uint64, error)
	PruneBefore(ctx context.Context, before time.Time) (int64, error)
}

// PostgresSubmissionRepository implements SubmissionRepository for PostgreSQL
type PostgresSubmissionRepository struct {
	db *sql.DB
}

// NewPostgresSubmissionRepository creates a new PostgreSQL submission repository
func NewPostgresSubmissionRepository(db *sql.DB) *PostgresSubmissionRepository {
	return &PostgresSubmissionRepository{db: db}
}

// RecordSubmission stores a newly issued submission
func (r *PostgresSubmissionRepository) RecordSubmission(ctx context.Context, rec domain.SubmissionRecord) error {
	query := `
		INSERT INTO watermark_submissions (session_id, seq, mode, status, message, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (session_id, seq) DO NOTHING
	`

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, query, rec.SessionID, int64(rec.Seq), rec.Mode.String(), rec.State.String(), rec.Message, createdAt)
	return err
}

// UpdateStatus updates the final status of a submission
func (r *PostgresSubmissionRepository) UpdateStatus(ctx context.Context, sessionID string, seq uint64, state domain.RequestState, message string) error {
	query := `
		UPDATE watermark_submissions
		SET status = $1, message = $2, updated_at = $3
		WHERE session_id = $4 AND seq = $5
	`

	_, err := r.db.ExecContext(ctx, query, state.String(), message, time.Now(), sessionID, int64(seq))
	return err
}

// ListBySession returns the latest submissions of a session, newest first
func (r *PostgresSubmissionRepository) ListBySession(ctx context.Context, sessionID string, limit int) ([]domain.SubmissionRecord, error) {
	query := `
		SELECT id, session_id, seq, mode, status, message, created_at, updated_at
		FROM watermark_submissions
		WHERE session_id = $1
		ORDER BY seq DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query submissions: %w", err)
	}
	defer rows.Close()

	var records []domain.SubmissionRecord
	for rows.Next() {
		var (
			rec    domain.SubmissionRecord
			seq    int64
			mode   string
			status string
		)
		if err := rows.Scan(&rec.ID, &rec.SessionID, &seq, &mode, &status, &rec.Message, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		rec.Seq = uint64(seq)
		if rec.Mode, err = domain.ParseMode(mode); err != nil {
			return nil, err
		}
		if st, ok := domain.ParseRequestState(status); ok {
			rec.State = st
		} else {
			return nil, fmt.Errorf("unknown submission status %q", status)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// LatestSeq returns the highest recorded sequence number of a session, 0 when it has none
func (r *PostgresSubmissionRepository) LatestSeq(ctx context.Context, sessionID string) (uint64, error) {
	query := `
		SELECT COALESCE(MAX(seq), 0)
		FROM watermark_submissions
		WHERE session_id = $1
	`

	var seq int64
	if err := r.db.QueryRowContext(ctx, query, sessionID).Scan(&seq); err != nil {
		return 0, fmt.Errorf("failed to query latest seq: %w", err)
	}
	return uint64(seq), nil
}

// PruneBefore deletes submissions created before the given time
func (r *PostgresSubmissionRepository) PruneBefore(ctx context.Context, before time.Time) (int64, error) {
	query := `
		DELETE FROM watermark_submissions
		WHERE created_at < $1
	`

	res, err := r.db.ExecContext(ctx, query, before)
	if err != nil {
		return 0, fmt.Errorf("failed to prune submissions: %w", err)
	}
	return res.RowsAffected()
}
