package singlemodel

import (
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

var SQLite = Dialect{
	Name: "sqlite3",
	upsertSQL: func(td TableDef) string {
		return fmt.Sprintf("INSERT INTO %s (%s, %s) VALUES (?, ?) ON CONFLICT(%s) DO UPDATE SET %s = excluded.%s",
			td.FullTableName(), td.KeyField, td.ValueField, td.KeyField, td.ValueField, td.ValueField)
	},
	createTableSQL: func(td TableDef) string {
		return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s VARCHAR(%d) NOT NULL DEFAULT '' PRIMARY KEY, %s TEXT NULL)",
			td.FullTableName(), td.KeyField, MaxFieldLength, td.ValueField)
	},
	missingTable: func(err error) bool {
		return strings.Contains(err.Error(), "no such table")
	},
	alreadyExists: func(err error) bool {
		return strings.Contains(err.Error(), "already exists")
	},
	constraint: func(err error) bool {
		var sqliteErr sqlite3.Error
		if !errors.As(err, &sqliteErr) {
			return false
		}

		switch sqliteErr.Code {
		case sqlite3.ErrConstraint, sqlite3.ErrTooBig, sqlite3.ErrMismatch, sqlite3.ErrRange:
			return true
		}
		return false
	},
}
