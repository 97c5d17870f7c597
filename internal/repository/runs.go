package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"daebot/internal/domain"

	"github.com/rs/zerolog"
)

// RunRepository is the append-only Mythic+ run archive. Inserts are
// idempotent over the run signature (character, dungeon, level, date).
type RunRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewRunRepository(db *sql.DB, logger zerolog.Logger) *RunRepository {
	return &RunRepository{db: db, logger: logger}
}

// InsertRuns archives runs for one character and returns how many were new.
func (r *RunRepository) InsertRuns(ctx context.Context, characterName, season string, runs []domain.Run) (int, error) {
	if len(runs) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO mythic_runs
			(character_name, dungeon, mythic_level, score, completed_at, completed_date,
			 duration_ms, keystone_upgrades, timed, spec_name, season, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	added := 0
	now := time.Now().UTC()
	for _, run := range runs {
		res, err := stmt.ExecContext(ctx,
			characterName,
			run.DungeonName,
			run.MythicLevel,
			run.Score,
			run.CompletedAt.UTC(),
			run.CompletedAt.UTC().Format("2006-01-02"),
			run.DurationMs,
			run.KeystoneUpgrades,
			boolToInt(run.Timed()),
			run.SpecName,
			season,
			now,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert run for %s: %w", characterName, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			added += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit runs: %w", err)
	}

	r.logger.Debug().Str("character", characterName).Int("added", added).Int("offered", len(runs)).Msg("runs archived")
	return added, nil
}

// ListByCharacter returns a character's archived runs, newest first.
func (r *RunRepository) ListByCharacter(ctx context.Context, characterName, season string) ([]domain.Run, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT dungeon, mythic_level, score, completed_at, duration_ms, keystone_upgrades, spec_name
		FROM mythic_runs
		WHERE character_name = ? AND (? = '' OR season = ?)
		ORDER BY completed_at DESC`,
		characterName, season, season)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.Run
	for rows.Next() {
		var run domain.Run
		if err := rows.Scan(
			&run.DungeonName,
			&run.MythicLevel,
			&run.Score,
			&run.CompletedAt,
			&run.DurationMs,
			&run.KeystoneUpgrades,
			&run.SpecName,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Count returns the total number of archived runs.
func (r *RunRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM mythic_runs`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count runs: %w", err)
	}
	return count, nil
}

// Seasons returns the distinct seasons present in the archive, newest first.
func (r *RunRepository) Seasons(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT season FROM mythic_runs WHERE season != '' ORDER BY season DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query seasons: %w", err)
	}
	defer rows.Close()

	var seasons []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan season: %w", err)
		}
		seasons = append(seasons, s)
	}
	return seasons, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
