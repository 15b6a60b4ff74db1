// Package storage keeps a history of served predictions. It uses BoltDB as the
// underlying storage engine; records are JSON values keyed by time so range
// queries are cursor scans.
package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

const (
	predictionsBucket = "predictions"
	dbFile            = "pricerange-history.db"
	// keyTimeWidth zero-pads the nanosecond timestamp so byte order is
	// chronological order.
	keyTimeWidth = 20
)

// PredictionRecord is one served prediction.
type PredictionRecord struct {
	RequestID     string             `json:"request_id"`
	Timestamp     time.Time          `json:"timestamp"`
	Input         map[string]any     `json:"input"`
	Label         string             `json:"label"`
	Probabilities map[string]float64 `json:"probabilities,omitempty"`
	ModelVersion  string             `json:"model_version,omitempty"`
}

// Store provides persistent prediction history using BoltDB.
type Store struct {
	db *bbolt.DB
}

// New opens (or creates) the history database under dataPath.
func New(dataPath string) (*Store, error) {
	dbPath := filepath.Join(dataPath, dbFile)

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(predictionsBucket)); err != nil {
			return fmt.Errorf("create predictions bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// OpenReadOnly opens an existing history database under dataPath without
// write access. It fails when the database or its bucket does not exist.
func OpenReadOnly(dataPath string) (*Store, error) {
	dbPath := filepath.Join(dataPath, dbFile)
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("history database %s: %w", dbPath, err)
	}

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.View(func(tx *bbolt.Tx) error {
		if tx.Bucket([]byte(predictionsBucket)) == nil {
			return fmt.Errorf("%s: %w", predictionsBucket, bbolt.ErrBucketNotFound)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database. Closing twice is harmless.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func recordKey(ts time.Time, requestID string) []byte {
	return []byte(fmt.Sprintf("%0*d_%s", keyTimeWidth, ts.UnixNano(), requestID))
}

func timeKey(ts time.Time) []byte {
	return []byte(fmt.Sprintf("%0*d", keyTimeWidth, ts.UnixNano()))
}

// SavePrediction stores a prediction record.
func (s *Store) SavePrediction(rec PredictionRecord) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(predictionsBucket))

		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal prediction: %w", err)
		}
		return b.Put(recordKey(rec.Timestamp, rec.RequestID), data)
	})
}

// GetPredictionsInRange returns predictions with start <= timestamp <= end,
// oldest first. Malformed records are skipped.
func (s *Store) GetPredictionsInRange(start, end time.Time) ([]PredictionRecord, error) {
	var records []PredictionRecord

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(predictionsBucket)).Cursor()
		endKey := timeKey(end)

		for k, v := c.Seek(timeKey(start)); k != nil; k, v = c.Next() {
			if bytes.Compare(k[:min(len(k), keyTimeWidth)], endKey) > 0 {
				break
			}
			var rec PredictionRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				continue
			}
			records = append(records, rec)
		}
		return nil
	})

	return records, err
}

// Count returns the number of stored predictions.
func (s *Store) Count() (int, error) {
	var n int
	err := s.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket([]byte(predictionsBucket)).Stats().KeyN
		return nil
	})
	return n, err
}
