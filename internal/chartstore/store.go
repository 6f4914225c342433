// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package chartstore archives computed charts in a SQLite database so they
// can be listed, shown, and exported later.
package chartstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/natal-engine/pkg/types"
)

const (
	dbFile = "charts.db"

	// DefaultDir is used when StoreConfig.Dir is empty.
	DefaultDir = "data"

	defaultListLimit = 50

	// timeLayout has fixed-width fractions so stored times sort as text.
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// ErrNotFound is returned when no chart matches an ID.
var ErrNotFound = errors.New("chart not found")

// Record is an archived chart.
type Record struct {
	ID        string          `json:"id" yaml:"id"`
	FirstName string          `json:"first_name" yaml:"first_name"`
	Email     string          `json:"email,omitempty" yaml:"email,omitempty"`
	CreatedAt time.Time       `json:"created_at" yaml:"created_at"`
	Positions types.ResultSet `json:"positions" yaml:"positions"`
}

// Summary is one row of a chart listing.
type Summary struct {
	ID        string                 `json:"id" yaml:"id"`
	FirstName string                 `json:"first_name" yaml:"first_name"`
	Instant   time.Time              `json:"instant" yaml:"instant"`
	Location  types.ObserverLocation `json:"location" yaml:"location"`
	CreatedAt time.Time              `json:"created_at" yaml:"created_at"`
}

// ListOptions filters List. Zero values mean no filter.
type ListOptions struct {
	FirstName string
	Limit     int
}

// Store manages the chart archive database.
type Store struct {
	db  *sql.DB
	dir string
	now func() time.Time
}

// Open opens or creates dir/charts.db and its schema.
func Open(cfg types.StoreConfig) (*Store, error) {
	dir := cfg.Dir
	if dir == "" {
		dir = DefaultDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(dir, dbFile)+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, dir: dir, now: time.Now}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Dir returns the directory holding the database.
func (s *Store) Dir() string { return s.dir }

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS charts (
			id TEXT PRIMARY KEY,
			first_name TEXT NOT NULL,
			email TEXT,
			instant TEXT NOT NULL,
			latitude REAL NOT NULL,
			longitude REAL NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS positions (
			chart_id TEXT NOT NULL REFERENCES charts(id) ON DELETE CASCADE,
			ord INTEGER NOT NULL,
			body TEXT NOT NULL,
			sign INTEGER NOT NULL,
			degrees REAL NOT NULL,
			altitude REAL NOT NULL,
			azimuth REAL NOT NULL,
			right_ascension REAL NOT NULL,
			declination REAL NOT NULL,
			PRIMARY KEY (chart_id, ord)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_charts_created ON charts(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_charts_first_name ON charts(first_name)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Save archives a result set under a new ID and returns it.
func (s *Store) Save(ctx context.Context, firstName, email string, rs types.ResultSet) (string, error) {
	if strings.TrimSpace(firstName) == "" {
		return "", fmt.Errorf("chart needs a first name")
	}
	if rs.Len() == 0 {
		return "", fmt.Errorf("chart has no positions")
	}

	id := uuid.New().String()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO charts (id, first_name, email, instant, latitude, longitude, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, firstName, email,
		rs.Instant.UTC().Format(timeLayout),
		rs.Location.Latitude, rs.Location.Longitude,
		s.now().UTC().Format(timeLayout),
	)
	if err != nil {
		return "", fmt.Errorf("inserting chart: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO positions (chart_id, ord, body, sign, degrees, altitude, azimuth, right_ascension, declination)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, b := range rs.Bodies {
		_, err := stmt.ExecContext(ctx,
			id, i, b.Key, int(b.Zodiac.Sign), b.Zodiac.Degrees,
			b.Observation.Altitude, b.Observation.Azimuth,
			b.Observation.RightAscension, b.Observation.Declination,
		)
		if err != nil {
			return "", fmt.Errorf("inserting position %s: %w", b.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing chart: %w", err)
	}
	return id, nil
}

// Get returns the chart with the given ID. A unique ID prefix of at least
// eight characters is also accepted.
func (s *Store) Get(ctx context.Context, id string) (Record, error) {
	fullID, err := s.resolveID(ctx, id)
	if err != nil {
		return Record{}, err
	}

	var (
		rec              Record
		instant, created string
	)
	err = s.db.QueryRowContext(ctx,
		`SELECT id, first_name, COALESCE(email, ''), instant, latitude, longitude, created_at
		 FROM charts WHERE id = ?`, fullID,
	).Scan(&rec.ID, &rec.FirstName, &rec.Email, &instant,
		&rec.Positions.Location.Latitude, &rec.Positions.Location.Longitude, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Record{}, fmt.Errorf("querying chart: %w", err)
	}
	if rec.Positions.Instant, err = parseTime(instant); err != nil {
		return Record{}, err
	}
	if rec.CreatedAt, err = parseTime(created); err != nil {
		return Record{}, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT body, sign, degrees, altitude, azimuth, right_ascension, declination
		 FROM positions WHERE chart_id = ? ORDER BY ord`, fullID)
	if err != nil {
		return Record{}, fmt.Errorf("querying positions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			b    types.BodyResult
			sign int
		)
		if err := rows.Scan(&b.Key, &sign, &b.Zodiac.Degrees,
			&b.Observation.Altitude, &b.Observation.Azimuth,
			&b.Observation.RightAscension, &b.Observation.Declination); err != nil {
			return Record{}, fmt.Errorf("scanning position: %w", err)
		}
		b.Zodiac.Sign = types.Sign(sign)
		rec.Positions.Bodies = append(rec.Positions.Bodies, b)
	}
	if err := rows.Err(); err != nil {
		return Record{}, fmt.Errorf("iterating positions: %w", err)
	}
	return rec, nil
}

func (s *Store) resolveID(ctx context.Context, id string) (string, error) {
	id = strings.TrimSpace(id)
	if len(id) < 8 {
		return "", fmt.Errorf("chart id %q is too short", id)
	}
	if _, err := uuid.Parse(id); err == nil {
		return id, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM charts WHERE id LIKE ? ESCAPE '\' LIMIT 2`, escapeLike(id)+"%")
	if err != nil {
		return "", fmt.Errorf("resolving chart id: %w", err)
	}
	defer rows.Close()

	var matches []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return "", fmt.Errorf("scanning chart id: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%s: %w", id, ErrNotFound)
	case 1:
		return matches[0], nil
	}
	return "", fmt.Errorf("chart id prefix %q is ambiguous", id)
}

// List returns archived charts, newest first.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]Summary, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := `SELECT id, first_name, instant, latitude, longitude, created_at FROM charts`
	var args []any
	if opts.FirstName != "" {
		query += ` WHERE first_name = ? COLLATE NOCASE`
		args = append(args, opts.FirstName)
	}
	query += ` ORDER BY created_at DESC, id LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing charts: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var (
			sum              Summary
			instant, created string
		)
		if err := rows.Scan(&sum.ID, &sum.FirstName, &instant,
			&sum.Location.Latitude, &sum.Location.Longitude, &created); err != nil {
			return nil, fmt.Errorf("scanning chart: %w", err)
		}
		if sum.Instant, err = parseTime(instant); err != nil {
			return nil, err
		}
		if sum.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Delete removes a chart and its positions.
func (s *Store) Delete(ctx context.Context, id string) error {
	fullID, err := s.resolveID(ctx, id)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM charts WHERE id = ?`, fullID)
	if err != nil {
		return fmt.Errorf("deleting chart: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return nil
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing stored time %q: %w", s, err)
	}
	return t, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
