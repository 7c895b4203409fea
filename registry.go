package singlemodel

import (
	"context"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/puzpuzpuz/xsync/v3"
	log "github.com/sirupsen/logrus"
	"gopkg.in/guregu/null.v4"
)

// Registry caches one Record per table. Records live as long as the Registry.
type Registry struct {
	backend Backend
	opt     option
	records *xsync.MapOf[string, *Record]
}

func NewRegistry(backend Backend, options ...RegistryOption) *Registry {
	opt := option{}
	for _, op := range options {
		op(&opt)
	}

	return &Registry{
		backend: backend,
		opt:     opt,
		records: xsync.NewMapOf[string, *Record](),
	}
}

// Instance returns the Record of table, loading it on first use. Concurrent
// first calls for the same table load it once. A failed load is not cached.
func (r *Registry) Instance(ctx context.Context, table string) (*Record, error) {
	td := r.opt.tableDef(table)
	key := td.FullTableName()

	if rec, ok := r.records.Load(key); ok {
		return rec, nil
	}

	if err := td.Validate(); err != nil {
		return nil, err
	}

	var loadErr error
	rec, _ := r.records.Compute(key, func(old *Record, loaded bool) (*Record, bool) {
		if loaded {
			return old, false
		}

		fields, err := r.load(ctx, td)
		if err != nil {
			loadErr = err
			return nil, true
		}

		return newRecord(td, r.backend, fields), false
	})

	if loadErr != nil {
		return nil, loadErr
	}

	return rec, nil
}

// Cached reports whether table has already been loaded.
func (r *Registry) Cached(table string) bool {
	_, ok := r.records.Load(r.opt.tableDef(table).FullTableName())
	return ok
}

func (r *Registry) load(ctx context.Context, td TableDef) (map[string]null.String, error) {
	table := td.FullTableName()

	if r.opt.autoCreate {
		if creator, ok := r.backend.(TableCreator); ok {
			if err := creator.CreateTable(ctx, td); err != nil {
				recordLoadsTotal.WithLabelValues(table, outcomeError).Inc()
				return nil, errors.Wrapf(err, "create table %s", table)
			}
		}
	}

	fields, err := r.backend.Load(ctx, td)
	if err != nil {
		recordLoadsTotal.WithLabelValues(table, outcomeError).Inc()
		log.WithFields(log.Fields{"table": table, "err": err}).Warn("failed to load single model")
		return nil, errors.Wrapf(err, "load %s", table)
	}

	for k, v := range fields {
		if !v.Valid {
			delete(fields, k)
		}
	}

	outcome := outcomeOK
	if len(fields) == 0 {
		outcome = outcomeEmpty
	}
	recordLoadsTotal.WithLabelValues(table, outcome).Inc()

	log.WithFields(log.Fields{"table": table, "fields": len(fields)}).Debug("loaded single model")

	return fields, nil
}

var defaultRegistry atomic.Pointer[Registry]

// SetDefault installs the process-wide Registry used by Instance.
func SetDefault(reg *Registry) {
	defaultRegistry.Store(reg)
}

func Default() *Registry {
	return defaultRegistry.Load()
}

// Instance returns the Record of table from the process-wide Registry.
func Instance(ctx context.Context, table string) (*Record, error) {
	reg := defaultRegistry.Load()
	if reg == nil {
		return nil, ErrNoDefaultRegistry
	}
	return reg.Instance(ctx, table)
}
