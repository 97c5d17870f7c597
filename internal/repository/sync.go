package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"daebot/internal/domain"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

// SyncRepository records one row per archive pass so operators can see
// when data last flowed and why a pass failed.
type SyncRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewSyncRepository(db *sql.DB, logger zerolog.Logger) *SyncRepository {
	return &SyncRepository{db: db, logger: logger}
}

func (r *SyncRepository) Record(ctx context.Context, rec domain.SyncRecord) error {
	id := rec.ID
	if id == "" {
		var err error
		id, err = gonanoid.New()
		if err != nil {
			return fmt.Errorf("failed to generate nanoid: %w", err)
		}
	}

	ts := rec.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sync_history
			(id, timestamp, sync_type, runs_added, characters_processed, duration_ms, success, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, ts, rec.SyncType, rec.RunsAdded, rec.CharactersProcessed, rec.DurationMs,
		boolToInt(rec.Success), rec.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("failed to record sync: %w", err)
	}
	return nil
}

// LastSuccessful returns the timestamp of the most recent successful sync,
// or nil when none exists.
func (r *SyncRepository) LastSuccessful(ctx context.Context) (*time.Time, error) {
	var ts time.Time
	err := r.db.QueryRowContext(ctx, `
		SELECT timestamp FROM sync_history WHERE success = 1 ORDER BY timestamp DESC LIMIT 1`).Scan(&ts)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query last sync: %w", err)
	}
	return &ts, nil
}

// History returns the most recent sync records, newest first.
func (r *SyncRepository) History(ctx context.Context, limit int) ([]domain.SyncRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, timestamp, sync_type, runs_added, characters_processed, duration_ms, success, error_message
		FROM sync_history ORDER BY timestamp DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync history: %w", err)
	}
	defer rows.Close()

	var records []domain.SyncRecord
	for rows.Next() {
		var rec domain.SyncRecord
		var success int
		var durationMs sql.NullInt64
		var errMsg sql.NullString
		if err := rows.Scan(&rec.ID, &rec.Timestamp, &rec.SyncType, &rec.RunsAdded,
			&rec.CharactersProcessed, &durationMs, &success, &errMsg); err != nil {
			return nil, fmt.Errorf("failed to scan sync record: %w", err)
		}
		rec.Success = success != 0
		rec.DurationMs = durationMs.Int64
		rec.ErrorMessage = errMsg.String
		records = append(records, rec)
	}
	return records, rows.Err()
}
