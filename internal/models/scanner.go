package models

import (
	"encoding/json"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"github.com/cfilipov/cachewise/internal/db"
)

// ScannerConfig is a user-defined path scanner: a directory whose contents
// can be sized and cleaned. MinSizeMB, when set, hides scan results smaller
// than the threshold.
type ScannerConfig struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Path      string  `json:"path"`
	MinSizeMB *uint64 `json:"min_size_mb,omitempty"`
}

// ScannerStore persists user-added scanner configs keyed by ID.
type ScannerStore struct {
	db *bolt.DB
}

func NewScannerStore(database *bolt.DB) *ScannerStore {
	return &ScannerStore{db: database}
}

// Save upserts a scanner config.
func (s *ScannerStore) Save(cfg ScannerConfig) error {
	if cfg.ID == "" {
		return fmt.Errorf("scanner id required")
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal scanner: %w", err)
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(db.BucketScanners).Put([]byte(cfg.ID), data)
	})
	if err != nil {
		return fmt.Errorf("save scanner %q: %w", cfg.ID, err)
	}
	return nil
}

// Delete removes a scanner config. Deleting an unknown ID is not an error.
func (s *ScannerStore) Delete(id string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(db.BucketScanners).Delete([]byte(id))
	})
	if err != nil {
		return fmt.Errorf("delete scanner %q: %w", id, err)
	}
	return nil
}

// Get returns the config or nil if not found.
func (s *ScannerStore) Get(id string) (*ScannerConfig, error) {
	var cfg *ScannerConfig
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(db.BucketScanners).Get([]byte(id))
		if v == nil {
			return nil
		}
		cfg = &ScannerConfig{}
		return json.Unmarshal(v, cfg)
	})
	if err != nil {
		return nil, fmt.Errorf("get scanner %q: %w", id, err)
	}
	return cfg, nil
}

// GetAll returns every stored scanner config.
func (s *ScannerStore) GetAll() ([]ScannerConfig, error) {
	var configs []ScannerConfig
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(db.BucketScanners).ForEach(func(_, v []byte) error {
			var cfg ScannerConfig
			if err := json.Unmarshal(v, &cfg); err != nil {
				return fmt.Errorf("unmarshal scanner: %w", err)
			}
			configs = append(configs, cfg)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("get all scanners: %w", err)
	}
	return configs, nil
}
