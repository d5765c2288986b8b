package eventstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	job_id TEXT NOT NULL,
	material TEXT NOT NULL,
	event_type TEXT NOT NULL,
	timestamp INTEGER NOT NULL,
	payload BLOB NOT NULL,
	metadata TEXT
);
CREATE INDEX IF NOT EXISTS idx_events_material ON events(material, id);
CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events(timestamp);
`

const selectEvents = "SELECT id, job_id, material, event_type, timestamp, payload, metadata FROM events"

// SQLiteStore keeps poll events in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens (creating if needed) the database at dbPath.
// ":memory:" gives a throwaway store for tests.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, storeError(err, msgOpen).WithContext("path", dbPath).Build()
	}
	// ":memory:" databases are per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000;" + schema); err != nil {
		_ = db.Close()
		return nil, storeError(err, msgSchema).WithContext("path", dbPath).Build()
	}
	return &SQLiteStore{db: db}, nil
}

// Append records e. A zero timestamp is stored as now.
func (s *SQLiteStore) Append(ctx context.Context, e Event) error {
	var metadata []byte
	if md := e.Metadata(); md != nil {
		var err error
		if metadata, err = json.Marshal(md); err != nil {
			return storeError(err, msgMarshal).Build()
		}
	}
	ts := e.Timestamp()
	if ts.IsZero() {
		ts = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO events (job_id, material, event_type, timestamp, payload, metadata) VALUES (?, ?, ?, ?, ?, ?)",
		e.JobID(), e.Material(), e.Type(), ts.UnixMilli(), e.Payload(), metadata)
	if err != nil {
		return storeError(err, msgAppend).
			WithContext("material", e.Material()).
			WithContext("type", e.Type()).
			Build()
	}
	return nil
}

func (s *SQLiteStore) GetAll(ctx context.Context) ([]Event, error) {
	return s.query(ctx, selectEvents+" ORDER BY id")
}

func (s *SQLiteStore) GetByMaterial(ctx context.Context, material string) ([]Event, error) {
	return s.query(ctx, selectEvents+" WHERE material = ? ORDER BY id", material)
}

// GetRange returns events with start <= timestamp <= end.
func (s *SQLiteStore) GetRange(ctx context.Context, start, end time.Time) ([]Event, error) {
	return s.query(ctx, selectEvents+" WHERE timestamp >= ? AND timestamp <= ? ORDER BY id",
		start.UnixMilli(), end.UnixMilli())
}

func (s *SQLiteStore) query(ctx context.Context, q string, args ...any) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, storeError(err, msgQuery).Build()
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			e        BaseEvent
			millis   int64
			metadata []byte
		)
		if err := rows.Scan(&e.EventID, &e.EventJobID, &e.EventMaterial, &e.EventType, &millis, &e.EventPayload, &metadata); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.EventTimestamp = time.UnixMilli(millis)
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &e.EventMetadata); err != nil {
				return nil, fmt.Errorf("unmarshal metadata of event %d: %w", e.EventID, err)
			}
		}
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError(err, msgQuery).Build()
	}
	return events, nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
