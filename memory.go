package singlemodel

import (
	"context"
	"sync"

	"gopkg.in/guregu/null.v4"
)

// MemoryBackend is a Backend held in process memory. Tables spring into
// existence on first write, like a store with lazy schema creation.
type MemoryBackend struct {
	mu     sync.Mutex
	tables map[string]map[string]null.String

	loadErr    error
	upsertErrs map[string]error

	loads   int
	upserts int
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		tables:     make(map[string]map[string]null.String),
		upsertErrs: make(map[string]error),
	}
}

func (m *MemoryBackend) Load(ctx context.Context, td TableDef) (map[string]null.String, error) {
	if err := ctx.Err(); err != nil {
		return nil, classified(ErrStoreUnavailable, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.loads++
	if m.loadErr != nil {
		return nil, m.loadErr
	}

	fields := make(map[string]null.String)
	for k, v := range m.tables[td.FullTableName()] {
		fields[k] = v
	}
	return fields, nil
}

func (m *MemoryBackend) Upsert(ctx context.Context, td TableDef, field string, value null.String) error {
	if err := ctx.Err(); err != nil {
		return classified(ErrStoreUnavailable, err)
	}

	if err := validateField(field); err != nil {
		return err
	}

	if tx := transactionFrom(ctx); tx != nil {
		return foreignTransaction("memory", tx)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.upserts++
	if err := m.upsertErrs[field]; err != nil {
		return err
	}

	table := td.FullTableName()
	if m.tables[table] == nil {
		m.tables[table] = make(map[string]null.String)
	}
	m.tables[table][field] = value

	return nil
}

// Rows returns a copy of the persisted rows of table.
func (m *MemoryBackend) Rows(table string) map[string]null.String {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows := make(map[string]null.String)
	for k, v := range m.tables[table] {
		rows[k] = v
	}
	return rows
}

// FailLoad makes every following Load return err, nil clears it.
func (m *MemoryBackend) FailLoad(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.loadErr = err
}

// FailUpsert makes writes of field return err, nil clears it.
func (m *MemoryBackend) FailUpsert(field string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err == nil {
		delete(m.upsertErrs, field)
		return
	}
	m.upsertErrs[field] = err
}

// Calls returns how many Load and Upsert calls reached the backend.
func (m *MemoryBackend) Calls() (loads, upserts int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.loads, m.upserts
}
