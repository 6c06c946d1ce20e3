package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/arena/internal/storage"
)

// ReportRepository persists finished battles and derives the leaderboard.
type ReportRepository struct {
	db *pgxpool.Pool
}

var _ storage.ReportStore = (*ReportRepository)(nil)

// NewReportRepository creates a ReportRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewReportRepository(db *pgxpool.Pool) *ReportRepository {
	return &ReportRepository{db: db}
}

const reportColumns = `id, session_id, owner, hero, encounter, victory, elapsed_ticks,
	enemies_defeated, enemy_count, damage_dealt, damage_taken, healing_done,
	critical_hits, timed_out, fled, rating, created_at`

// Save inserts r.
//
// Postcondition: Returns r with ID and CreatedAt assigned by the database.
func (r *ReportRepository) Save(ctx context.Context, rep storage.Report) (storage.Report, error) {
	row := r.db.QueryRow(ctx,
		`INSERT INTO battle_reports (session_id, owner, hero, encounter, victory, elapsed_ticks,
			enemies_defeated, enemy_count, damage_dealt, damage_taken, healing_done,
			critical_hits, timed_out, fled, rating)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		 RETURNING `+reportColumns,
		rep.SessionID, rep.Owner, rep.Hero, rep.Encounter, rep.Victory, rep.ElapsedTicks,
		rep.EnemiesDefeated, rep.EnemyCount, rep.DamageDealt, rep.DamageTaken, rep.HealingDone,
		rep.CriticalHits, rep.TimedOut, rep.Fled, rep.Rating,
	)
	saved, err := scanReport(row)
	if err != nil {
		return storage.Report{}, fmt.Errorf("inserting battle report: %w", err)
	}
	return saved, nil
}

// ListByOwner returns owner's most recent reports, newest first.
//
// Precondition: limit > 0.
func (r *ReportRepository) ListByOwner(ctx context.Context, owner string, limit int) ([]storage.Report, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+reportColumns+`
		 FROM battle_reports WHERE owner = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2`,
		owner, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying battle reports: %w", err)
	}
	defer rows.Close()

	var out []storage.Report
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning battle report: %w", err)
		}
		out = append(out, rep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating battle reports: %w", err)
	}
	return out, nil
}

// Leaderboard aggregates reports per owner.
//
// Precondition: limit > 0.
// Postcondition: Rows are ordered by victories desc, enemies defeated desc, owner asc.
func (r *ReportRepository) Leaderboard(ctx context.Context, limit int) ([]storage.Standing, error) {
	rows, err := r.db.Query(ctx,
		`SELECT owner,
		        COUNT(*) FILTER (WHERE victory)     AS victories,
		        COUNT(*) FILTER (WHERE NOT victory) AS defeats,
		        COALESCE(SUM(enemies_defeated), 0)  AS enemies_defeated
		 FROM battle_reports
		 GROUP BY owner
		 ORDER BY victories DESC, enemies_defeated DESC, owner ASC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying leaderboard: %w", err)
	}
	defer rows.Close()

	var out []storage.Standing
	for rows.Next() {
		var s storage.Standing
		if err := rows.Scan(&s.Owner, &s.Victories, &s.Defeats, &s.EnemiesDefeated); err != nil {
			return nil, fmt.Errorf("scanning leaderboard row: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating leaderboard: %w", err)
	}
	return out, nil
}

func scanReport(row pgx.Row) (storage.Report, error) {
	var rep storage.Report
	err := row.Scan(&rep.ID, &rep.SessionID, &rep.Owner, &rep.Hero, &rep.Encounter, &rep.Victory,
		&rep.ElapsedTicks, &rep.EnemiesDefeated, &rep.EnemyCount, &rep.DamageDealt,
		&rep.DamageTaken, &rep.HealingDone, &rep.CriticalHits, &rep.TimedOut, &rep.Fled, &rep.Rating, &rep.CreatedAt)
	return rep, err
}
