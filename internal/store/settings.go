package store

import (
	"encoding/json"

	bolt "go.etcd.io/bbolt"
)

// === Settings (domain.CursorStore) ===

func (s *MovieStore) GetInt(key string, def int) (int, error) {
	v, err := s.GetLong(key, int64(def))
	return int(v), err
}

func (s *MovieStore) PutInt(key string, value int) error {
	return s.PutLong(key, int64(value))
}

func (s *MovieStore) GetLong(key string, def int64) (int64, error) {
	var v int64
	ok, err := s.get(bucketSettings, key, &v)
	if err != nil || !ok {
		return def, err
	}
	return v, nil
}

func (s *MovieStore) PutLong(key string, value int64) error {
	return s.set(bucketSettings, key, value)
}

// === Generic helpers ===

func (s *MovieStore) get(bucket []byte, key string, dest interface{}) (bool, error) {
	cacheKey := string(bucket) + ":" + key

	// Check memory cache first
	s.mu.RLock()
	if data, ok := s.cache[cacheKey]; ok {
		s.mu.RUnlock()
		return true, json.Unmarshal(data, dest)
	}
	s.mu.RUnlock()

	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucket).Get([]byte(key)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	if err != nil || data == nil {
		return false, err
	}

	// Promote to memory cache
	s.mu.Lock()
	s.cache[cacheKey] = data
	s.mu.Unlock()

	return true, json.Unmarshal(data, dest)
}

func (s *MovieStore) set(bucket []byte, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	// The cache only holds committed values
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put([]byte(key), data)
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.cache[string(bucket)+":"+key] = data
	s.mu.Unlock()
	return nil
}
