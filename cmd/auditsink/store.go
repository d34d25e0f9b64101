package main

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/auditkit/pkg/event"
)

// Store persists received audit events.
type Store interface {
	Save(ctx context.Context, ev event.Event) error
}

// MemoryStore keeps events in memory, for development and tests.
type MemoryStore struct {
	mu     sync.Mutex
	events []event.Event
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Save(_ context.Context, ev event.Event) error {
	s.mu.Lock()
	s.events = append(s.events, ev)
	s.mu.Unlock()
	return nil
}

// Events returns a snapshot of everything stored so far.
func (s *MemoryStore) Events() []event.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]event.Event, len(s.events))
	copy(out, s.events)
	return out
}

const auditEventsSchema = `
CREATE TABLE IF NOT EXISTS audit_events (
	id          BIGSERIAL PRIMARY KEY,
	session_id  TEXT        NOT NULL,
	occurred_at TIMESTAMPTZ NOT NULL,
	user_id     TEXT        NOT NULL,
	route       TEXT        NOT NULL,
	duration    INTEGER     NOT NULL,
	payload     JSONB       NOT NULL
);
CREATE INDEX IF NOT EXISTS audit_events_session_idx ON audit_events (session_id);
`

// PGStore persists events to PostgreSQL.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore connects to the database and ensures the events table exists.
func NewPGStore(ctx context.Context, connString string) (*PGStore, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	if _, err := pool.Exec(ctx, auditEventsSchema); err != nil {
		pool.Close()
		return nil, errors.Join(errors.New("auditsink: schema setup failed"), err)
	}
	return &PGStore{pool: pool}, nil
}

func (s *PGStore) Save(ctx context.Context, ev event.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO audit_events (session_id, occurred_at, user_id, route, duration, payload)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		ev.SessionID, ev.Timestamp, ev.UserID, ev.Route, ev.Duration, payload,
	)
	return err
}

// Close releases the connection pool.
func (s *PGStore) Close() {
	s.pool.Close()
}
