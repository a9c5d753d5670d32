// Package analytics records privacy-conscious visit and section navigation
// metrics in SQLite.
package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const timeLayout = "2006-01-02 15:04:05"

// Visit is one tracked page request. IPs are only ever stored hashed.
type Visit struct {
	ID        int64     `json:"id"`
	HashedIP  string    `json:"hashed_ip"`
	UserAgent string    `json:"user_agent"`
	Path      string    `json:"path"`
	Timestamp time.Time `json:"timestamp"`
}

// SectionStat counts navigations to one page section.
type SectionStat struct {
	Section     string `json:"section"`
	Navigations int64  `json:"navigations"`
}

type Stats struct {
	TotalVisits      int64         `json:"total_visits"`
	UniqueVisitors   int64         `json:"unique_visitors"`
	VisitsToday      int64         `json:"visits_today"`
	VisitsThisWeek   int64         `json:"visits_this_week"`
	TotalNavigations int64         `json:"total_navigations"`
	Sections         []SectionStat `json:"sections"`
	RecentVisits     []Visit       `json:"recent_visits"`
}

type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open creates or opens the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return newStore(db)
}

// OpenMemory creates an in-memory database, for tests and analytics-less runs.
func OpenMemory() (*Store, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("opening in-memory database: %w", err)
	}
	// every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)
	return newStore(db)
}

func newStore(db *sql.DB) (*Store, error) {
	s := &Store{db: db, now: time.Now}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS visits (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	hashed_ip TEXT NOT NULL,
	user_agent TEXT NOT NULL DEFAULT '',
	path TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_visits_created_at ON visits(created_at);

CREATE TABLE IF NOT EXISTS section_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	view_id TEXT NOT NULL,
	section TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_section_events_created_at ON section_events(created_at);
`

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) stamp() string { return s.now().UTC().Format(timeLayout) }

// RecordVisit stores a page visit. hashedIP must already be hashed.
func (s *Store) RecordVisit(ctx context.Context, hashedIP, userAgent, path string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO visits (hashed_ip, user_agent, path, created_at) VALUES (?, ?, ?, ?)`,
		hashedIP, userAgent, path, s.stamp())
	if err != nil {
		return fmt.Errorf("recording visit: %w", err)
	}
	return nil
}

// RecordSection stores a navigation to section from the given page view.
func (s *Store) RecordSection(ctx context.Context, viewID, section string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO section_events (view_id, section, created_at) VALUES (?, ?, ?)`,
		viewID, section, s.stamp())
	if err != nil {
		return fmt.Errorf("recording section event: %w", err)
	}
	return nil
}

// Stats summarises the stored metrics.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	now := s.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).Format(timeLayout)
	week := now.Add(-7 * 24 * time.Hour).Format(timeLayout)

	stats := &Stats{}
	counts := []struct {
		dst   *int64
		query string
		args  []any
	}{
		{&stats.TotalVisits, `SELECT COUNT(*) FROM visits`, nil},
		{&stats.UniqueVisitors, `SELECT COUNT(DISTINCT hashed_ip) FROM visits`, nil},
		{&stats.VisitsToday, `SELECT COUNT(*) FROM visits WHERE created_at >= ?`, []any{today}},
		{&stats.VisitsThisWeek, `SELECT COUNT(*) FROM visits WHERE created_at >= ?`, []any{week}},
		{&stats.TotalNavigations, `SELECT COUNT(*) FROM section_events`, nil},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query, c.args...).Scan(c.dst); err != nil {
			return nil, fmt.Errorf("querying stats: %w", err)
		}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT section, COUNT(*) AS n
		FROM section_events
		GROUP BY section
		ORDER BY n DESC, section ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying sections: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var st SectionStat
		if err := rows.Scan(&st.Section, &st.Navigations); err != nil {
			return nil, fmt.Errorf("scanning section stat: %w", err)
		}
		stats.Sections = append(stats.Sections, st)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	stats.RecentVisits, err = s.RecentVisits(ctx, 50)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// RecentVisits returns up to limit visits, newest first.
func (s *Store) RecentVisits(ctx context.Context, limit int) ([]Visit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, hashed_ip, user_agent, path, created_at
		FROM visits
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying visits: %w", err)
	}
	defer rows.Close()

	var visits []Visit
	for rows.Next() {
		var (
			v  Visit
			ts string
		)
		if err := rows.Scan(&v.ID, &v.HashedIP, &v.UserAgent, &v.Path, &ts); err != nil {
			return nil, fmt.Errorf("scanning visit: %w", err)
		}
		v.Timestamp, err = time.Parse(timeLayout, ts)
		if err != nil {
			return nil, fmt.Errorf("parsing visit time %q: %w", ts, err)
		}
		visits = append(visits, v)
	}
	return visits, rows.Err()
}

// Cleanup deletes rows older than retention and returns how many went.
func (s *Store) Cleanup(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := s.now().UTC().Add(-retention).Format(timeLayout)
	var total int64
	for _, table := range []string{"visits", "section_events"} {
		res, err := s.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE created_at < ?`, cutoff)
		if err != nil {
			return total, fmt.Errorf("cleaning %s: %w", table, err)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}
