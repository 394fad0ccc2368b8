package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	domainErrors "github.com/jbctechsolutions/clawsync/internal/domain/errors"
	syncdomain "github.com/jbctechsolutions/clawsync/internal/domain/sync"
)

// Attempt is one recorded sync attempt.
type Attempt struct {
	ID        string            `json:"id"`
	Channel   string            `json:"channel"`
	StartedAt time.Time         `json:"startedAt"`
	Duration  time.Duration     `json:"duration"`
	Result    syncdomain.Result `json:"result"`
}

// HistoryRepository persists sync attempts in SQLite.
type HistoryRepository struct {
	db   *sql.DB
	keep int
}

// NewHistoryRepository creates a history repository. keep bounds the number
// of attempts retained; older rows are pruned on save.
func NewHistoryRepository(db *sql.DB, keep int) *HistoryRepository {
	if keep <= 0 {
		keep = 500
	}
	return &HistoryRepository{db: db, keep: keep}
}

// SaveAttempt records one sync attempt and prunes rows beyond the retention
// bound.
func (r *HistoryRepository) SaveAttempt(ctx context.Context, a Attempt) error {
	if a.ID == "" {
		return domainErrors.NewError(domainErrors.CodeValidation, "attempt ID is required", nil)
	}
	if a.Channel == "" {
		return domainErrors.NewError(domainErrors.CodeValidation, "attempt channel is required", nil)
	}

	success := 0
	if a.Result.Success {
		success = 1
	}

	var lastSync sql.NullString
	if a.Result.LastSync != nil {
		lastSync = sql.NullString{String: a.Result.LastSync.UTC().Format(time.RFC3339), Valid: true}
	}

	query := `
		INSERT INTO sync_attempts (id, channel, success, kind, error, details, last_sync, duration_ns, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		a.ID,
		a.Channel,
		success,
		a.Result.Kind.String(),
		a.Result.Error,
		a.Result.Details,
		lastSync,
		a.Duration.Nanoseconds(),
		a.StartedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save sync attempt: %w", err)
	}

	return r.prune(ctx)
}

// Latest returns the most recent attempt, or nil when none exist.
func (r *HistoryRepository) Latest(ctx context.Context) (*Attempt, error) {
	query := `
		SELECT id, channel, success, kind, error, details, last_sync, duration_ns, started_at
		FROM sync_attempts
		ORDER BY started_at DESC, rowid DESC
		LIMIT 1
	`
	row := r.db.QueryRowContext(ctx, query)
	a, err := scanAttempt(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load latest sync attempt: %w", err)
	}
	return a, nil
}

// Recent returns up to limit attempts, newest first.
func (r *HistoryRepository) Recent(ctx context.Context, limit int) ([]Attempt, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, channel, success, kind, error, details, last_sync, duration_ns, started_at
		FROM sync_attempts
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync attempts: %w", err)
	}
	defer rows.Close()

	var attempts []Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sync attempt: %w", err)
		}
		attempts = append(attempts, *a)
	}
	return attempts, rows.Err()
}

// prune deletes rows beyond the retention bound, oldest first.
func (r *HistoryRepository) prune(ctx context.Context) error {
	query := `
		DELETE FROM sync_attempts
		WHERE rowid NOT IN (
			SELECT rowid FROM sync_attempts
			ORDER BY started_at DESC, rowid DESC
			LIMIT ?
		)
	`
	if _, err := r.db.ExecContext(ctx, query, r.keep); err != nil {
		return fmt.Errorf("failed to prune sync attempts: %w", err)
	}
	return nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanAttempt(s scanner) (*Attempt, error) {
	var (
		a          Attempt
		success    int
		kind       string
		lastSync   sql.NullString
		durationNs int64
		startedAt  string
	)

	err := s.Scan(&a.ID, &a.Channel, &success, &kind, &a.Result.Error, &a.Result.Details, &lastSync, &durationNs, &startedAt)
	if err != nil {
		return nil, err
	}

	a.Result.Success = success == 1
	a.Result.Kind = parseKind(kind)
	a.Duration = time.Duration(durationNs)

	if t, err := time.Parse(time.RFC3339, startedAt); err == nil {
		a.StartedAt = t
	}
	if lastSync.Valid {
		if t, err := time.Parse(time.RFC3339, lastSync.String); err == nil {
			a.Result.LastSync = &t
		}
	}

	return &a, nil
}

func parseKind(s string) syncdomain.FailureKind {
	kinds := []syncdomain.FailureKind{
		syncdomain.KindNone,
		syncdomain.KindConfigMissing,
		syncdomain.KindUnconfigured,
		syncdomain.KindTransport,
		syncdomain.KindPayloadCorrupt,
		syncdomain.KindTimeout,
		syncdomain.KindMountFailure,
		syncdomain.KindValidation,
	}
	for _, k := range kinds {
		if k.String() == s {
			return k
		}
	}
	return syncdomain.KindNone
}
