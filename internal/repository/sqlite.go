package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mr1hm/road-hazard-alerts/internal/models"
)

const defaultListLimit = 50

type SQLiteDB struct {
	db *sql.DB
}

func NewSQLiteDB(path string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writes.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error while pinging database: %w", err)
	}

	s := &SQLiteDB{
		db: db,
	}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("error while migrating to database: %w", err)
	}

	return s, nil
}

func (s *SQLiteDB) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS alert_events (
			id TEXT PRIMARY KEY,
			hazard_id INTEGER NOT NULL,
			hazard_name TEXT NOT NULL,
			severity INTEGER NOT NULL,
			distance_m REAL NOT NULL,
			simulated INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_alert_events_created_at ON alert_events(created_at);
		CREATE INDEX IF NOT EXISTS idx_alert_events_hazard_id ON alert_events(hazard_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

// Ping reports whether the journal is reachable.
func (s *SQLiteDB) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteDB) AddAlert(ctx context.Context, a *models.AlertEvent) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO alert_events (id, hazard_id, hazard_name, severity, distance_m, simulated, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.HazardID, a.HazardName, int(a.Severity), a.Distance, a.Simulated, a.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("error inserting alert event %s: %w", a.ID, err)
	}
	return nil
}

func (s *SQLiteDB) GetAlert(ctx context.Context, id string) (*models.AlertEvent, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, hazard_id, hazard_name, severity, distance_m, simulated, created_at
		FROM alert_events WHERE id = ?`, id)

	a, err := scanAlert(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error getting alert event %s: %w", id, err)
	}
	return a, nil
}

func (s *SQLiteDB) ListAlerts(ctx context.Context, opts Filter) ([]models.AlertEvent, error) {
	var (
		where []string
		args  []any
	)
	if opts.Since != nil {
		where = append(where, "created_at >= ?")
		args = append(args, opts.Since.UnixMilli())
	}
	if opts.HazardID != nil {
		where = append(where, "hazard_id = ?")
		args = append(args, *opts.HazardID)
	}
	if opts.MinSeverity != nil {
		where = append(where, "severity >= ?")
		args = append(args, int(*opts.MinSeverity))
	}

	query := `SELECT id, hazard_id, hazard_name, severity, distance_m, simulated, created_at FROM alert_events`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	args = append(args, limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing alert events: %w", err)
	}
	defer rows.Close()

	events := make([]models.AlertEvent, 0)
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning alert event: %w", err)
		}
		events = append(events, *a)
	}
	return events, rows.Err()
}

func (s *SQLiteDB) CountByHazard(ctx context.Context) (map[int]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT hazard_id, COUNT(*) FROM alert_events GROUP BY hazard_id`)
	if err != nil {
		return nil, fmt.Errorf("error counting alert events: %w", err)
	}
	defer rows.Close()

	counts := make(map[int]int64)
	for rows.Next() {
		var (
			id    int
			count int64
		)
		if err := rows.Scan(&id, &count); err != nil {
			return nil, fmt.Errorf("error scanning alert count: %w", err)
		}
		counts[id] = count
	}
	return counts, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAlert(sc scanner) (*models.AlertEvent, error) {
	var (
		a         models.AlertEvent
		severity  int
		createdAt int64
	)
	if err := sc.Scan(&a.ID, &a.HazardID, &a.HazardName, &severity, &a.Distance, &a.Simulated, &createdAt); err != nil {
		return nil, err
	}
	a.Severity = models.Severity(severity)
	a.CreatedAt = time.UnixMilli(createdAt)
	return &a, nil
}
