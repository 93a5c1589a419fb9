package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mr1hm/go-weather-dashboard/internal/models"
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
	// :memory: databases are per connection.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

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
			alert_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			event TEXT,
			severity TEXT,
			area_desc TEXT,
			headline TEXT,
			seen_at DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_alert_events_seen_at ON alert_events(seen_at);
		CREATE INDEX IF NOT EXISTS idx_alert_events_alert_id ON alert_events(alert_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteDB) AddEvent(ctx context.Context, e *models.AlertEvent) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO alert_events (id, alert_id, kind, event, severity, area_desc, headline, seen_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.AlertID, string(e.Kind), e.Event, e.Severity, e.AreaDesc, e.Headline, e.SeenAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("error inserting alert event %s: %w", e.ID, err)
	}
	return nil
}

func (s *SQLiteDB) ListEvents(ctx context.Context, opts Filter) ([]models.AlertEvent, error) {
	var (
		where []string
		args  []any
	)
	if opts.Kind != nil {
		where = append(where, "kind = ?")
		args = append(args, string(*opts.Kind))
	}
	if opts.AlertID != "" {
		where = append(where, "alert_id = ?")
		args = append(args, opts.AlertID)
	}
	if opts.Since != nil {
		where = append(where, "seen_at >= ?")
		args = append(args, opts.Since.UTC())
	}

	query := `SELECT id, alert_id, kind, event, severity, area_desc, headline, seen_at FROM alert_events`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY seen_at DESC, rowid DESC LIMIT ?"

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying alert events: %w", err)
	}
	defer rows.Close()

	var events []models.AlertEvent
	for rows.Next() {
		var (
			e                             models.AlertEvent
			kind                          string
			event, severity, area, header sql.NullString
			seenAt                        time.Time
		)
		if err := rows.Scan(&e.ID, &e.AlertID, &kind, &event, &severity, &area, &header, &seenAt); err != nil {
			return nil, fmt.Errorf("error scanning alert event: %w", err)
		}
		e.Kind = models.EventKind(kind)
		e.Event = event.String
		e.Severity = severity.String
		e.AreaDesc = area.String
		e.Headline = header.String
		e.SeenAt = seenAt
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating alert events: %w", err)
	}

	return events, nil
}

func (s *SQLiteDB) CountEvents(ctx context.Context, alertID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM alert_events WHERE alert_id = ?`, alertID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("error counting events for %s: %w", alertID, err)
	}
	return n, nil
}

func (s *SQLiteDB) Close() error {
	return s.db.Close()
}
