package store

import (
	"fmt"
	"path/filepath"

	"github.com/mmcdole/marquee/internal/domain"
	"github.com/mmcdole/marquee/internal/store/sqlite"
)

// Backend is a movie cache that also persists the sync cursors
type Backend = domain.SyncStore

// Backend names
const (
	BackendBolt   = "bolt"
	BackendSQLite = "sqlite"
)

// OpenBackend opens the named backend under baseCacheDir, keyed by source.
func OpenBackend(backend, baseCacheDir, sourceKey string) (Backend, error) {
	switch backend {
	case BackendBolt, "":
		s, err := Open(baseCacheDir, sourceKey)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendSQLite:
		if baseCacheDir == "" {
			return nil, fmt.Errorf("cache directory is required")
		}
		dir := baseCacheDir
		if sourceKey != "" {
			dir = filepath.Join(baseCacheDir, hashSourceKey(sourceKey))
		}
		s, err := sqlite.Open(filepath.Join(dir, sqlite.DBFileName))
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown cache backend: %s", backend)
	}
}
