package state

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/boltdb/bolt"
	"github.com/kiosk404/athena/internal/athena/service/plugin"
)

var bucketPluginStates = []byte("plugin_states")

// Store persists plugin state blobs in a BoltDB file, one key per plugin.
type Store struct {
	db *bolt.DB
}

// Open opens or creates the state database at path.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketPluginStates)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket %q: %w", bucketPluginStates, err)
	}
	return &Store{db: db}, nil
}

// Load returns every persisted blob keyed by plugin name.
func (s *Store) Load(_ context.Context) (map[string]plugin.StateBlob, error) {
	states := make(map[string]plugin.StateBlob)
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketPluginStates).ForEach(func(k, v []byte) error {
			blob := make([]byte, len(v))
			copy(blob, v)
			states[string(k)] = blob
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load plugin states: %w", err)
	}
	return states, nil
}

// Save writes the given blobs in one transaction. Plugins absent from
// states keep their previous blob. Nil blobs are skipped.
func (s *Store) Save(_ context.Context, states map[string]plugin.StateBlob) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPluginStates)
		for name, blob := range states {
			if blob == nil {
				continue
			}
			if err := b.Put([]byte(name), blob); err != nil {
				return fmt.Errorf("failed to save state of plugin %q: %w", name, err)
			}
		}
		return nil
	})
}

// Delete removes the persisted blob of one plugin.
func (s *Store) Delete(_ context.Context, name string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketPluginStates).Delete([]byte(name))
	})
}

// Close closes the underlying BoltDB instance.
func (s *Store) Close() error {
	return s.db.Close()
}
