// Package storage keeps the dashboard's prediction history in BoltDB.
// Interactive predictions and batch deal rankings are stored under
// time-ordered keys so that recent entries and time ranges can be read
// back with a cursor.
package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"
)

const (
	predictionsBucket = "predictions" // Interactive single-house predictions
	rankingsBucket    = "rankings"    // Deal ranking snapshots

	dbFile = "house-insights.db"
)

// Store provides persistent storage for prediction history using BoltDB.
type Store struct {
	db *bbolt.DB
}

// PredictionRecord is one interactive prediction.
type PredictionRecord struct {
	ID             string             `json:"id"`
	Timestamp      time.Time          `json:"timestamp"`
	Source         string             `json:"source"`
	Inputs         map[string]float64 `json:"inputs"`
	PredictedPrice float64            `json:"predicted_price"`
	ModelVersion   string             `json:"model_version"`
}

// New opens (or creates) the database under dataPath.
func New(dataPath string) (*Store, error) {
	if err := os.MkdirAll(dataPath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	dbPath := filepath.Join(dataPath, dbFile)

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(predictionsBucket)); err != nil {
			return fmt.Errorf("create predictions bucket: %w", err)
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(rankingsBucket)); err != nil {
			return fmt.Errorf("create rankings bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		return err
	}
	return nil
}

// StorePrediction appends a prediction. A missing ID or timestamp is filled in.
func (s *Store) StorePrediction(rec *PredictionRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	return s.put(predictionsBucket, rec.Timestamp, rec.ID, rec)
}

// RecentPredictions returns up to n predictions, newest first.
func (s *Store) RecentPredictions(n int) ([]PredictionRecord, error) {
	out := []PredictionRecord{}
	err := s.latest(predictionsBucket, n, func(data []byte) bool {
		var rec PredictionRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return false // Skip malformed records
		}
		out = append(out, rec)
		return true
	})
	return out, err
}

// PredictionsInRange returns predictions made between start and end,
// inclusive, oldest first.
func (s *Store) PredictionsInRange(start, end time.Time) ([]PredictionRecord, error) {
	out := []PredictionRecord{}
	err := s.scanRange(predictionsBucket, start, end, func(data []byte) {
		var rec PredictionRecord
		if err := json.Unmarshal(data, &rec); err == nil {
			out = append(out, rec)
		}
	})
	return out, err
}

// timeKey orders entries chronologically: fixed-width nanoseconds followed
// by an id to keep keys unique.
func timeKey(ts time.Time, id string) []byte {
	return []byte(fmt.Sprintf("%020d_%s", unixNano(ts), id))
}

// unixNano clamps times before the epoch to zero so keys stay fixed-width.
func unixNano(ts time.Time) int64 {
	if ts.Before(time.Unix(0, 0)) {
		return 0
	}
	return ts.UnixNano()
}

func (s *Store) put(bucket string, ts time.Time, id string, v any) error {
	if s.db == nil {
		return fmt.Errorf("store is closed")
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s record: %w", bucket, err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucket)).Put(timeKey(ts, id), data)
	})
}

// latest walks a bucket from the newest key backwards until n records were
// accepted by fn.
func (s *Store) latest(bucket string, n int, fn func([]byte) bool) error {
	if s.db == nil {
		return fmt.Errorf("store is closed")
	}
	if n <= 0 {
		return nil
	}
	return s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(bucket)).Cursor()
		taken := 0
		for k, v := c.Last(); k != nil && taken < n; k, v = c.Prev() {
			if fn(v) {
				taken++
			}
		}
		return nil
	})
}

func (s *Store) scanRange(bucket string, start, end time.Time, fn func([]byte)) error {
	if s.db == nil {
		return fmt.Errorf("store is closed")
	}
	return s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(bucket)).Cursor()

		startKey := []byte(fmt.Sprintf("%020d", unixNano(start)))
		// '~' sorts after '_' and every id character.
		endKey := []byte(fmt.Sprintf("%020d~", unixNano(end)))

		for k, v := c.Seek(startKey); k != nil && bytes.Compare(k, endKey) <= 0; k, v = c.Next() {
			fn(v)
		}
		return nil
	})
}
