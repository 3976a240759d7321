package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/MegaGrindStone/docchat-web-ui/internal/state"
	bolt "go.etcd.io/bbolt"
)

// BoltDB implements the session snapshot store using a BoltDB backend. Each user's working state is
// stored as a single JSON document keyed by user id, so a page reload or a server restart brings back the
// selected chat, the bound URLs and the pending input.
type BoltDB struct {
	db *bolt.DB
}

var sessionsBucket = []byte("sessions")

// NewBoltDB creates a new BoltDB instance with the specified file path. It initializes the database
// with required buckets and returns an error if the database cannot be opened or initialized. The
// database file is created with 0600 permissions if it doesn't exist.
func NewBoltDB(path string) (BoltDB, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return BoltDB{}, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(sessionsBucket)
		return err
	})

	return BoltDB{db: db}, err
}

// LoadState retrieves the stored state of a user. The boolean result is false when nothing is stored.
func (b BoltDB) LoadState(_ context.Context, userID string) (state.State, bool, error) {
	var st state.State
	found := false
	err := b.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(sessionsBucket)
		if b == nil {
			return nil
		}

		v := b.Get([]byte(userID))
		if v == nil {
			return nil
		}
		if err := json.Unmarshal(v, &st); err != nil {
			return fmt.Errorf("failed to unmarshal state: %w", err)
		}
		found = true
		return nil
	})
	if err != nil {
		return state.State{}, false, err
	}
	return st, found, nil
}

// SaveState stores the state of a user, replacing any previous snapshot.
func (b BoltDB) SaveState(_ context.Context, userID string, st state.State) error {
	v, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(sessionsBucket)
		if b == nil {
			return fmt.Errorf("bucket %s not found", sessionsBucket)
		}
		return b.Put([]byte(userID), v)
	})
}

// Close releases the database file.
func (b BoltDB) Close() error {
	return b.db.Close()
}
