package store

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/marquee/internal/domain"
	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	bucketMovies   = []byte("movies")    // sort key -> movie JSON
	bucketMovieIDs = []byte("movie_ids") // movie id + sort key -> nil
	bucketSettings = []byte("settings")  // name -> JSON number
)

// DBFileName is the bolt file created inside the cache directory
const DBFileName = "marquee.db"

// MovieStore implements domain.MovieStore and domain.CursorStore using BoltDB.
type MovieStore struct {
	db *bolt.DB
	mu sync.RWMutex // Protects settings cache

	// In-memory cache for settings reads (promoted on access)
	cache map[string][]byte
}

// Open opens (or creates) the store for one remote source. Each source
// gets its own subdirectory so switching endpoints never mixes lists.
func Open(baseCacheDir, sourceKey string) (*MovieStore, error) {
	if baseCacheDir == "" {
		return nil, errors.New("cache directory is required")
	}

	dir := baseCacheDir
	if sourceKey != "" {
		dir = filepath.Join(baseCacheDir, hashSourceKey(sourceKey))
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dir, DBFileName)
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketMovies, bucketMovieIDs, bucketSettings} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &MovieStore{db: db, cache: make(map[string][]byte)}, nil
}

func hashSourceKey(key string) string {
	normalized := strings.TrimRight(strings.ToLower(key), "/")
	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:6])
}

func (s *MovieStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// === Keys ===

// sortKey maps a signed sort index onto bytes whose lexical order matches
// numeric order, so bolt cursors walk the list front to back.
func sortKey(index int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(index)^(1<<63))
	return b
}

func decodeSortKey(b []byte) int64 {
	return int64(binary.BigEndian.Uint64(b) ^ (1 << 63))
}

func idPrefix(id int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(id))
	return b
}

func idKey(id, index int64) []byte {
	return append(idPrefix(id), sortKey(index)...)
}

// === Movies ===

func (s *MovieStore) Overlap(ctx context.Context, ids []int64) ([]domain.StoredMovie, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []domain.StoredMovie
	seen := make(map[int64]bool, len(ids))
	err := s.db.View(func(tx *bolt.Tx) error {
		movies := tx.Bucket(bucketMovies)
		c := tx.Bucket(bucketMovieIDs).Cursor()
		for _, id := range ids {
			if seen[id] {
				continue
			}
			seen[id] = true

			prefix := idPrefix(id)
			for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
				key := k[len(prefix):]
				var m domain.Movie
				if err := json.Unmarshal(movies.Get(key), &m); err != nil {
					return fmt.Errorf("decoding movie %d: %w", id, err)
				}
				out = append(out, domain.StoredMovie{Movie: m, SortIndex: decodeSortKey(key)})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool { return out[i].SortIndex < out[j].SortIndex })
	return out, nil
}

func (s *MovieStore) MinSortIndex(ctx context.Context) (int64, bool, error) {
	return s.edge(ctx, (*bolt.Cursor).First)
}

func (s *MovieStore) MaxSortIndex(ctx context.Context) (int64, bool, error) {
	return s.edge(ctx, (*bolt.Cursor).Last)
}

func (s *MovieStore) edge(ctx context.Context, seek func(*bolt.Cursor) ([]byte, []byte)) (int64, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}

	var (
		index int64
		ok    bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		if k, _ := seek(tx.Bucket(bucketMovies).Cursor()); k != nil {
			index, ok = decodeSortKey(k), true
		}
		return nil
	})
	return index, ok, err
}

// Apply commits m in one bolt transaction. The settings cache is only
// updated once the transaction has committed.
func (s *MovieStore) Apply(ctx context.Context, m domain.Mutation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.Empty() {
		return nil
	}

	settings := make(map[string][]byte, len(m.Cursors))
	for _, w := range m.Cursors {
		data, err := json.Marshal(w.Value)
		if err != nil {
			return err
		}
		settings[w.Key] = data
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		if m.Clear {
			if err := clearMovies(tx); err != nil {
				return err
			}
		}
		if err := insert(tx, m.Insert); err != nil {
			return err
		}
		b := tx.Bucket(bucketSettings)
		for key, data := range settings {
			if err := b.Put([]byte(key), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	for key, data := range settings {
		s.cache[string(bucketSettings)+":"+key] = data
	}
	s.mu.Unlock()
	return nil
}

func (s *MovieStore) BatchInsert(ctx context.Context, movies []domain.StoredMovie) error {
	return s.Apply(ctx, domain.Mutation{Insert: movies})
}

func (s *MovieStore) Clear(ctx context.Context) error {
	return s.Apply(ctx, domain.Mutation{Clear: true})
}

func (s *MovieStore) Replace(ctx context.Context, movies []domain.StoredMovie) error {
	return s.Apply(ctx, domain.Mutation{Clear: true, Insert: movies})
}

// List returns up to limit movies starting at offset, in list order.
// A non-positive limit returns everything after offset.
func (s *MovieStore) List(ctx context.Context, offset, limit int) ([]domain.StoredMovie, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []domain.StoredMovie
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketMovies).Cursor()
		skipped := 0
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if skipped < offset {
				skipped++
				continue
			}
			if limit > 0 && len(out) >= limit {
				break
			}
			var m domain.Movie
			if err := json.Unmarshal(v, &m); err != nil {
				return fmt.Errorf("decoding movie at %d: %w", decodeSortKey(k), err)
			}
			out = append(out, domain.StoredMovie{Movie: m, SortIndex: decodeSortKey(k)})
		}
		return nil
	})
	return out, err
}

func (s *MovieStore) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var n int
	err := s.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(bucketMovies).Stats().KeyN
		return nil
	})
	return n, err
}

func insert(tx *bolt.Tx, movies []domain.StoredMovie) error {
	b := tx.Bucket(bucketMovies)
	ids := tx.Bucket(bucketMovieIDs)
	for _, sm := range movies {
		key := sortKey(sm.SortIndex)
		if b.Get(key) != nil {
			return fmt.Errorf("sort index %d already in use", sm.SortIndex)
		}
		data, err := json.Marshal(sm.Movie)
		if err != nil {
			return err
		}
		if err := b.Put(key, data); err != nil {
			return err
		}
		if err := ids.Put(idKey(sm.Movie.ID, sm.SortIndex), nil); err != nil {
			return err
		}
	}
	return nil
}

func clearMovies(tx *bolt.Tx) error {
	for _, bucket := range [][]byte{bucketMovies, bucketMovieIDs} {
		if err := tx.DeleteBucket(bucket); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
			return err
		}
		if _, err := tx.CreateBucket(bucket); err != nil {
			return err
		}
	}
	return nil
}
