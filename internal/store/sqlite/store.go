// Package sqlite is a SQLite-backed implementation of the movie cache and
// cursor settings, selected with cache.backend: sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/mmcdole/marquee/internal/domain"
)

// DBFileName is the database file created inside the cache directory
const DBFileName = "marquee.sqlite"

const schema = `
CREATE TABLE IF NOT EXISTS movies (
    sort_index    INTEGER PRIMARY KEY,
    movie_id      INTEGER NOT NULL,
    title         TEXT    NOT NULL DEFAULT '',
    overview      TEXT    NOT NULL DEFAULT '',
    poster_path   TEXT    NOT NULL DEFAULT '',
    backdrop_path TEXT    NOT NULL DEFAULT '',
    release_date  TEXT    NOT NULL DEFAULT '',
    vote_average  REAL    NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_movies_movie_id ON movies (movie_id);

CREATE TABLE IF NOT EXISTS settings (
    name  TEXT    PRIMARY KEY,
    value INTEGER NOT NULL
);
`

const movieColumns = `sort_index, movie_id, title, overview, poster_path, backdrop_path, release_date, vote_average`

// Store implements domain.MovieStore and domain.CursorStore on SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at path and applies the schema.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database %q: %w", path, err)
	}

	// Single writer to avoid SQLITE_BUSY under WAL.
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}

// Overlap returns the stored rows for ids, ordered by sort index.
func (s *Store) Overlap(ctx context.Context, ids []int64) ([]domain.StoredMovie, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	q := `SELECT ` + movieColumns + ` FROM movies WHERE movie_id IN (` + placeholders + `) ORDER BY sort_index`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying overlap: %w", err)
	}
	return scanMovies(rows)
}

func (s *Store) MinSortIndex(ctx context.Context) (int64, bool, error) {
	return s.bound(ctx, `SELECT MIN(sort_index) FROM movies`)
}

func (s *Store) MaxSortIndex(ctx context.Context) (int64, bool, error) {
	return s.bound(ctx, `SELECT MAX(sort_index) FROM movies`)
}

func (s *Store) bound(ctx context.Context, q string) (int64, bool, error) {
	var v sql.NullInt64
	if err := s.db.QueryRowContext(ctx, q).Scan(&v); err != nil {
		return 0, false, fmt.Errorf("querying sort index bound: %w", err)
	}
	return v.Int64, v.Valid, nil
}

const upsertSetting = `INSERT INTO settings (name, value) VALUES (?, ?)
	ON CONFLICT(name) DO UPDATE SET value = excluded.value`

// Apply commits m in one transaction.
func (s *Store) Apply(ctx context.Context, m domain.Mutation) error {
	if m.Empty() {
		return nil
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if m.Clear {
			if _, err := tx.ExecContext(ctx, `DELETE FROM movies`); err != nil {
				return fmt.Errorf("clearing movies: %w", err)
			}
		}
		if len(m.Insert) > 0 {
			if err := insert(ctx, tx, m.Insert); err != nil {
				return err
			}
		}
		for _, w := range m.Cursors {
			if _, err := tx.ExecContext(ctx, upsertSetting, w.Key, w.Value); err != nil {
				return fmt.Errorf("writing setting %q: %w", w.Key, err)
			}
		}
		return nil
	})
}

// BatchInsert inserts all movies in one transaction.
func (s *Store) BatchInsert(ctx context.Context, movies []domain.StoredMovie) error {
	return s.Apply(ctx, domain.Mutation{Insert: movies})
}

// Clear removes every cached movie. Settings are kept.
func (s *Store) Clear(ctx context.Context) error {
	return s.Apply(ctx, domain.Mutation{Clear: true})
}

// Replace clears the cache and inserts movies in one transaction.
func (s *Store) Replace(ctx context.Context, movies []domain.StoredMovie) error {
	return s.Apply(ctx, domain.Mutation{Clear: true, Insert: movies})
}

// List returns up to limit movies starting at offset, in list order.
// A non-positive limit returns everything after offset.
func (s *Store) List(ctx context.Context, offset, limit int) ([]domain.StoredMovie, error) {
	if limit <= 0 {
		limit = -1
	}
	q := `SELECT ` + movieColumns + ` FROM movies ORDER BY sort_index LIMIT ? OFFSET ?`
	rows, err := s.db.QueryContext(ctx, q, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing movies: %w", err)
	}
	return scanMovies(rows)
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM movies`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting movies: %w", err)
	}
	return n, nil
}

// GetInt, PutInt, GetLong and PutLong implement domain.CursorStore.

func (s *Store) GetInt(key string, def int) (int, error) {
	v, err := s.GetLong(key, int64(def))
	return int(v), err
}

func (s *Store) PutInt(key string, value int) error {
	return s.PutLong(key, int64(value))
}

func (s *Store) GetLong(key string, def int64) (int64, error) {
	var v int64
	err := s.db.QueryRow(`SELECT value FROM settings WHERE name = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return def, nil
	}
	if err != nil {
		return def, fmt.Errorf("reading setting %q: %w", key, err)
	}
	return v, nil
}

func (s *Store) PutLong(key string, value int64) error {
	if _, err := s.db.Exec(upsertSetting, key, value); err != nil {
		return fmt.Errorf("writing setting %q: %w", key, err)
	}
	return nil
}

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func insert(ctx context.Context, tx *sql.Tx, movies []domain.StoredMovie) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO movies (`+movieColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, sm := range movies {
		m := sm.Movie
		_, err := stmt.ExecContext(ctx, sm.SortIndex, m.ID, m.Title, m.Overview,
			m.PosterPath, m.BackdropPath, formatDate(m.ReleaseDate), m.VoteAverage)
		if err != nil {
			return fmt.Errorf("inserting movie %d at %d: %w", m.ID, sm.SortIndex, err)
		}
	}
	return nil
}

func scanMovies(rows *sql.Rows) ([]domain.StoredMovie, error) {
	defer func() { _ = rows.Close() }()

	var out []domain.StoredMovie
	for rows.Next() {
		var (
			sm      domain.StoredMovie
			release string
		)
		err := rows.Scan(&sm.SortIndex, &sm.Movie.ID, &sm.Movie.Title, &sm.Movie.Overview,
			&sm.Movie.PosterPath, &sm.Movie.BackdropPath, &release, &sm.Movie.VoteAverage)
		if err != nil {
			return nil, fmt.Errorf("scanning movie: %w", err)
		}
		sm.Movie.ReleaseDate = parseDate(release)
		out = append(out, sm)
	}
	return out, rows.Err()
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.DateOnly)
}

func parseDate(s string) time.Time {
	t, _ := time.Parse(time.DateOnly, s)
	return t
}
