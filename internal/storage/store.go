package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.etcd.io/bbolt"

	"volley/internal/report"
	"volley/internal/runner"
)

const bucketRuns = "runs"

// Record is one persisted run: the configuration that drove it and the
// report it produced.
type Record struct {
	ID      string         `json:"id"`
	SavedAt time.Time      `json:"saved_at"`
	Config  runner.Config  `json:"config"`
	Report  *report.Report `json:"report"`
}

// Store keeps run history in a bbolt database.
type Store struct {
	db *bbolt.DB
}

// DefaultPath is the per-user history location.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".volley", "history.db"), nil
}

// Open creates or opens the history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketRuns))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save persists rec under its ID. SavedAt defaults to now.
func (s *Store) Save(rec Record) error {
	if rec.ID == "" {
		return fmt.Errorf("record needs an id")
	}
	if rec.SavedAt.IsZero() {
		rec.SavedAt = time.Now()
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketRuns))

		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return b.Put([]byte(rec.ID), data)
	})
}

// List returns all records, newest first.
func (s *Store) List() ([]Record, error) {
	var items []Record

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketRuns))
		return b.ForEach(func(k, v []byte) error {
			var rec Record
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			items = append(items, rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].SavedAt.After(items[j].SavedAt)
	})
	return items, nil
}

// Get loads one record by ID.
func (s *Store) Get(id string) (*Record, error) {
	var rec Record

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketRuns))
		v := b.Get([]byte(id))
		if v == nil {
			return fmt.Errorf("run %q not found", id)
		}
		return json.Unmarshal(v, &rec)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
