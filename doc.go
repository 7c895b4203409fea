// Package singlemodel presents a two-column key/value table as a single
// editable object. Each table is loaded once per process into a Record, which
// tracks modified fields and writes only those back using the store's native
// upsert.
//
// A table is expected to look like:
//
//	CREATE TABLE settings (
//	  field VARCHAR(128) NOT NULL DEFAULT '' PRIMARY KEY,
//	  value TEXT NULL
//	);
//
// Typical use:
//
//	reg := singlemodel.NewRegistry(singlemodel.NewSQLBackend(db, singlemodel.SQLite))
//	rec, err := reg.Instance(ctx, "settings")
//	if err != nil {
//		return err
//	}
//	rec.SetString("title", "Hello")
//	err = rec.Commit(ctx)
package singlemodel

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeOK    = "ok"
	outcomeError = "error"
	outcomeEmpty = "empty"
)

var (
	recordLoadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "singlemodel_record_loads_total",
		Help: "Cumulative number of single model tables loaded from the store.",
	}, []string{"table", "outcome"})
	upsertsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "singlemodel_upserts_total",
		Help: "Cumulative number of field upserts issued by single model commits.",
	}, []string{"table", "outcome"})
	commitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "singlemodel_commits_total",
		Help: "Cumulative number of single model commits which wrote at least one field.",
	}, []string{"table", "outcome"})
)
