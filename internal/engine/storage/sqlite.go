package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/rendis/templestay/internal/model"
)

// ErrNotFound is returned by GetVenue for an unknown id.
var ErrNotFound = errors.New("venue not found")

// filterable whitelists the columns FilterVenues may touch.
var filterable = map[string]bool{
	"name":   true,
	"region": true,
	"tags":   true,
}

type Store struct {
	db *sql.DB
	mu sync.Mutex
}

func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS venues (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		name TEXT NOT NULL,
		region TEXT,
		address TEXT,
		lat REAL,
		lng REAL,
		follower_count INTEGER DEFAULT 0,
		tags TEXT,
		price INTEGER,
		description TEXT,
		created_at TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_venues_kind ON venues(kind);
	CREATE INDEX IF NOT EXISTS idx_venues_region ON venues(region);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

const selectVenue = `
	SELECT id, kind, name, region, address, lat, lng, follower_count,
	       tags, price, description, created_at
	FROM venues`

// InsertBatch upserts venues in one transaction and returns how many rows were written.
// Venues without an id get a generated one.
func (s *Store) InsertBatch(ctx context.Context, venues []model.Venue) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning tx: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO venues
		(id, kind, name, region, address, lat, lng, follower_count, tags, price, description, created_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)
	`)
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("preparing stmt: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, v := range venues {
		if v.ID == "" {
			v.ID = uuid.NewString()
		}
		r := fromVenue(v)
		res, err := stmt.ExecContext(ctx,
			r.ID, r.Kind, r.Name, r.Region, r.Address, r.Lat, r.Lng,
			r.FollowerCount, r.Tags, r.Price, r.Description, r.CreatedAt,
		)
		if err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("inserting venue %q: %w", v.Name, err)
		}
		n, _ := res.RowsAffected()
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing tx: %w", err)
	}
	return inserted, nil
}

// ListVenues returns every venue of kind, or of both kinds for model.KindAll.
func (s *Store) ListVenues(ctx context.Context, kind model.Kind) ([]model.Venue, error) {
	if kind == model.KindAll {
		return s.query(ctx, selectVenue+` ORDER BY rowid`)
	}
	return s.query(ctx, selectVenue+` WHERE kind = ? ORDER BY rowid`, string(kind))
}

// GetVenue fetches one venue by id.
func (s *Store) GetVenue(ctx context.Context, id string) (*model.Venue, error) {
	venues, err := s.query(ctx, selectVenue+` WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(venues) == 0 {
		return nil, ErrNotFound
	}
	return &venues[0], nil
}

// FilterVenues applies a substring filter on name, region or tags. With exact set,
// the region/name comparison is an equality instead.
func (s *Store) FilterVenues(ctx context.Context, kind model.Kind, field, value string, exact bool) ([]model.Venue, error) {
	if !filterable[field] {
		return nil, fmt.Errorf("field %q is not filterable", field)
	}

	var where []string
	var args []any
	if kind != model.KindAll {
		where = append(where, "kind = ?")
		args = append(args, string(kind))
	}
	if exact {
		where = append(where, field+" = ?")
		args = append(args, value)
	} else {
		where = append(where, "instr("+field+", ?) > 0")
		args = append(args, value)
	}

	return s.query(ctx, selectVenue+" WHERE "+strings.Join(where, " AND ")+" ORDER BY rowid", args...)
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]model.Venue, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying venues: %w", err)
	}
	defer rows.Close()

	var venues []model.Venue
	for rows.Next() {
		var r record
		err := rows.Scan(
			&r.ID, &r.Kind, &r.Name, &r.Region, &r.Address, &r.Lat, &r.Lng, &r.FollowerCount,
			&r.Tags, &r.Price, &r.Description, &r.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning venue: %w", err)
		}
		venues = append(venues, r.toVenue())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating venues: %w", err)
	}
	return venues, nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM venues").Scan(&count)
	return count, err
}

func (s *Store) Close() error {
	return s.db.Close()
}
