package session

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process Store. It is safe for concurrent use.
type Memory struct {
	mu      sync.Mutex
	records map[string]*record
	now     func() time.Time
}

type record struct {
	fields    map[string]string
	expiresAt time.Time
}

// MemoryOption configures a Memory store.
type MemoryOption func(*Memory)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) {
		m.now = now
	}
}

// NewMemory returns an empty in-memory store.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		records: make(map[string]*record),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// live returns the unexpired record for key, dropping it if it expired.
// Callers hold m.mu.
func (m *Memory) live(key string) *record {
	rec, ok := m.records[key]
	if !ok {
		return nil
	}
	if !m.now().Before(rec.expiresAt) {
		delete(m.records, key)
		return nil
	}
	return rec
}

func (m *Memory) GetField(_ context.Context, key, field string, ttl time.Duration) (string, bool, error) {
	if err := checkArgs(key, ttl); err != nil {
		return "", false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := m.live(key)
	if rec == nil {
		return "", false, nil
	}
	rec.expiresAt = m.now().Add(ttl)
	v, ok := rec.fields[field]
	return v, ok, nil
}

func (m *Memory) UpdateFields(_ context.Context, key string, fields map[string]string, ttl time.Duration) error {
	if err := checkArgs(key, ttl); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := m.live(key)
	if rec == nil {
		rec = &record{fields: make(map[string]string, len(fields))}
		m.records[key] = rec
	}
	for k, v := range fields {
		rec.fields[k] = v
	}
	rec.expiresAt = m.now().Add(ttl)
	return nil
}

func (m *Memory) DeleteFields(_ context.Context, key string, ttl time.Duration, fields ...string) error {
	if err := checkArgs(key, ttl); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := m.live(key)
	if rec == nil {
		return nil
	}
	for _, f := range fields {
		delete(rec.fields, f)
	}
	rec.expiresAt = m.now().Add(ttl)
	return nil
}

func (m *Memory) DeleteKey(_ context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	m.mu.Lock()
	delete(m.records, key)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Snapshot(_ context.Context, key string, ttl time.Duration) (map[string]string, error) {
	if err := checkArgs(key, ttl); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string)
	rec := m.live(key)
	if rec == nil {
		return out, nil
	}
	rec.expiresAt = m.now().Add(ttl)
	for k, v := range rec.fields {
		out[k] = v
	}
	return out, nil
}

var _ Store = (*Memory)(nil)
