// Package store persists serialized temporal filters in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/gridstack/internal/grid"
	"github.com/banshee-data/gridstack/internal/gridpb"
	"github.com/banshee-data/gridstack/internal/monitoring"
	"github.com/banshee-data/gridstack/internal/temporal"
	"github.com/banshee-data/gridstack/internal/timeutil"
	"github.com/banshee-data/gridstack/internal/validation"
)

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA foreign_keys=ON",
}

// Options configures a Store.
type Options struct {
	// Clock stamps saved_at. Nil uses the wall clock.
	Clock timeutil.Clock
	// Filter is passed to temporal.Deserialize for every Load.
	Filter temporal.Options
}

// Store is a SQLite-backed table of named filters.
type Store struct {
	db    *sql.DB
	clock timeutil.Clock
	opts  temporal.Options
}

// Record describes one stored filter.
type Record struct {
	ID            string
	Name          string
	SchemaVersion int32
	LoadWarning   string
	SavedAt       time.Time
	Size          int
}

// Open opens the database at path and applies the embedded migrations.
func Open(path string, opts Options) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: store path is required", grid.ErrInvalidArgument)
	}
	db, err := sql.Open("sqlite", filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Pragmas are per connection.
	db.SetMaxOpenConns(1)
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply %q: %w", p, err)
		}
	}

	s := &Store{db: db, clock: opts.Clock, opts: opts.Filter}
	if s.clock == nil {
		s.clock = timeutil.RealClock{}
	}
	if err := s.MigrateUp(); err != nil {
		_ = db.Close()
		return nil, err
	}
	monitoring.Logf("[store] opened %s", path)
	return s, nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func observe(op string, start time.Time) {
	monitoring.StoreOps.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func toMillis(t time.Time) int64 { return t.UTC().UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

func checkName(name string) (string, error) {
	n := strings.TrimSpace(name)
	if n == "" {
		return "", fmt.Errorf("%w: filter name is required", grid.ErrInvalidArgument)
	}
	return n, nil
}

// Save serializes f and stores it under name, replacing any filter of the
// same name. The row keeps its id across replacements. Serializing clears
// the filter's dirty flag.
func (s *Store) Save(ctx context.Context, name string, f *temporal.Filter, opts temporal.SerializeOptions) (Record, error) {
	defer observe("save", time.Now())
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	name, err := checkName(name)
	if err != nil {
		return Record{}, err
	}
	if f == nil {
		return Record{}, fmt.Errorf("%w: nil filter", grid.ErrInvalidArgument)
	}

	c, err := f.Serialize(opts)
	if err != nil {
		return Record{}, fmt.Errorf("serialize %s: %w", name, err)
	}
	payload, err := gridpb.MarshalEnvelope(c)
	if err != nil {
		return Record{}, fmt.Errorf("marshal %s: %w", name, err)
	}

	rec := Record{
		ID:            uuid.NewString(),
		Name:          name,
		SchemaVersion: c.Version,
		LoadWarning:   f.LoadWarning(),
		SavedAt:       s.clock.Now().UTC().Truncate(time.Millisecond),
		Size:          len(payload),
	}
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO temporal_filters (id, name, schema_version, payload, load_warning, saved_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET
		   schema_version = excluded.schema_version,
		   payload = excluded.payload,
		   load_warning = excluded.load_warning,
		   saved_at = excluded.saved_at
		 RETURNING id`,
		rec.ID, rec.Name, rec.SchemaVersion, payload, rec.LoadWarning, toMillis(rec.SavedAt),
	).Scan(&rec.ID)
	if err != nil {
		return Record{}, fmt.Errorf("save %s: %w", name, err)
	}
	monitoring.Logf("[store] saved %s (v%d, %d bytes)", name, rec.SchemaVersion, rec.Size)
	return rec, nil
}

// Load reads the filter stored under name and deserializes it. A nil
// validation node makes the load strict. A missing name returns
// grid.ErrNotFound.
func (s *Store) Load(ctx context.Context, name string, v *validation.Node) (*temporal.Filter, Record, error) {
	defer observe("load", time.Now())
	if err := ctx.Err(); err != nil {
		return nil, Record{}, err
	}
	name, err := checkName(name)
	if err != nil {
		return nil, Record{}, err
	}

	var (
		rec     Record
		payload []byte
		savedAt int64
	)
	err = s.db.QueryRowContext(ctx,
		`SELECT id, name, schema_version, payload, load_warning, saved_at
		 FROM temporal_filters WHERE name = ?`, name,
	).Scan(&rec.ID, &rec.Name, &rec.SchemaVersion, &payload, &rec.LoadWarning, &savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, Record{}, fmt.Errorf("load %s: %w", name, grid.ErrNotFound)
	}
	if err != nil {
		return nil, Record{}, fmt.Errorf("load %s: %w", name, err)
	}
	rec.SavedAt = fromMillis(savedAt)
	rec.Size = len(payload)

	msg, err := gridpb.UnmarshalEnvelope(payload)
	if err != nil {
		return nil, rec, fmt.Errorf("load %s: %w", name, err)
	}
	f, err := temporal.Deserialize(msg, s.opts, v, name)
	if err != nil {
		monitoring.Logf("[store] load %s failed: %v", name, err)
		return nil, rec, err
	}
	return f, rec, nil
}

// List returns every stored filter ordered by name. Payloads are not read.
func (s *Store) List(ctx context.Context) ([]Record, error) {
	defer observe("list", time.Now())
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, schema_version, length(payload), load_warning, saved_at
		 FROM temporal_filters ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list filters: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec     Record
			savedAt int64
		)
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.SchemaVersion, &rec.Size, &rec.LoadWarning, &savedAt); err != nil {
			return nil, fmt.Errorf("scan filter row: %w", err)
		}
		rec.SavedAt = fromMillis(savedAt)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Delete removes the filter stored under name. A missing name returns
// grid.ErrNotFound.
func (s *Store) Delete(ctx context.Context, name string) error {
	defer observe("delete", time.Now())
	name, err := checkName(name)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM temporal_filters WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s: %w", name, err)
	}
	if n == 0 {
		return fmt.Errorf("delete %s: %w", name, grid.ErrNotFound)
	}
	monitoring.Logf("[store] deleted %s", name)
	return nil
}
