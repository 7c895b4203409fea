package singlemodel

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gopkg.in/guregu/null.v4"
)

// Record holds every row of one key/value table in memory. Writes are tracked
// per field and only dirty fields are written back on Commit.
type Record struct {
	table   TableDef
	backend Backend

	mu     sync.RWMutex
	fields map[string]null.String

	// dirty maps each modified field to its value before the first modification.
	dirty map[string]null.String
}

var _ Editor = (*Record)(nil)

func newRecord(td TableDef, backend Backend, fields map[string]null.String) *Record {
	if fields == nil {
		fields = make(map[string]null.String)
	}

	return &Record{
		table:   td,
		backend: backend,
		fields:  fields,
		dirty:   make(map[string]null.String),
	}
}

func (r *Record) Table() TableDef {
	return r.table
}

// Get returns the in-memory value of key, null when unset.
func (r *Record) Get(key string) null.String {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.fields[key]
}

// GetString returns the value of key and whether it is set to a non-null value.
func (r *Record) GetString(key string) (string, bool) {
	v := r.Get(key)
	return v.String, v.Valid
}

// Set stores value under key and marks it modified. Writing the current value
// again does nothing.
func (r *Record) Set(key string, value null.String) *Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.set(key, value)
	return r
}

func (r *Record) SetString(key, value string) *Record {
	return r.Set(key, null.StringFrom(value))
}

func (r *Record) set(key string, value null.String) {
	current := r.fields[key]
	if equalValues(current, value) {
		return
	}

	r.markModified(key)
	if value.Valid {
		r.fields[key] = value
	} else {
		delete(r.fields, key)
	}
}

// MarkModified queues key for the next Commit even if its value did not change.
func (r *Record) MarkModified(key string) *Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.markModified(key)
	return r
}

func (r *Record) markModified(key string) {
	if _, ok := r.dirty[key]; !ok {
		r.dirty[key] = r.fields[key]
	}
}

// IsDirty reports whether key is waiting to be committed.
func (r *Record) IsDirty(key string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.dirty[key]
	return ok
}

// Dirty returns the sorted names of all fields waiting to be committed.
func (r *Record) Dirty() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.dirtyKeys()
}

func (r *Record) dirtyKeys() []string {
	keys := make([]string, 0, len(r.dirty))
	for k := range r.dirty {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Original returns the value key had before it was first modified.
func (r *Record) Original(key string) (null.String, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.dirty[key]
	return v, ok
}

// Fields returns a copy of all non-null fields.
func (r *Record) Fields() map[string]null.String {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]null.String, len(r.fields))
	for k, v := range r.fields {
		out[k] = v
	}
	return out
}

func (r *Record) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.fields)
}

// Commit upserts every dirty field. It stops at the first failing write; that
// field and all fields not yet written stay dirty so Commit can be retried.
// Fields whose name the store can never accept are dropped from the record
// instead, and reported once the remaining fields are written.
func (r *Record) Commit(ctx context.Context, options ...CommitOption) error {
	opt := &commitOption{}
	for _, o := range options {
		o(opt)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.dirty) == 0 {
		return nil
	}

	if opt.tx != nil {
		ctx = contextWithTransaction(ctx, opt.tx)
	}

	table := r.table.FullTableName()
	var rejected error
	for _, key := range r.dirtyKeys() {
		err := validateField(key)
		if err == nil {
			err = r.backend.Upsert(ctx, r.table, key, r.fields[key])
		}

		if errors.Is(err, ErrInvalidIdentifier) {
			r.drop(key)
			if rejected == nil {
				rejected = errors.Wrapf(err, "drop field %q of %s", key, table)
			}
			continue
		}

		if err != nil {
			upsertsTotal.WithLabelValues(table, outcomeError).Inc()
			commitsTotal.WithLabelValues(table, outcomeError).Inc()

			log.WithFields(log.Fields{
				"table":   table,
				"field":   key,
				"pending": len(r.dirty),
				"err":     err,
			}).Warn("single model commit aborted")

			return errors.Wrapf(err, "commit field %q of %s", key, table)
		}

		upsertsTotal.WithLabelValues(table, outcomeOK).Inc()
		delete(r.dirty, key)
	}

	if rejected != nil {
		commitsTotal.WithLabelValues(table, outcomeError).Inc()
		log.WithFields(log.Fields{"table": table, "err": rejected}).Warn("single model dropped invalid field")
		return rejected
	}

	commitsTotal.WithLabelValues(table, outcomeOK).Inc()
	log.WithField("table", table).Debug("single model committed")

	return nil
}

func (r *Record) drop(key string) {
	delete(r.dirty, key)
	delete(r.fields, key)
}
