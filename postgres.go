package singlemodel

import (
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/pkg/errors"
)

// Postgres works with both the "pgx" and the "postgres" (lib/pq) drivers.
var Postgres = Dialect{
	Name: "postgres",
	upsertSQL: func(td TableDef) string {
		return fmt.Sprintf("INSERT INTO %s (%s, %s) VALUES (?, ?) ON CONFLICT (%s) DO UPDATE SET %s = EXCLUDED.%s",
			td.FullTableName(), td.KeyField, td.ValueField, td.KeyField, td.ValueField, td.ValueField)
	},
	createTableSQL: func(td TableDef) string {
		return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s VARCHAR(%d) NOT NULL DEFAULT '' PRIMARY KEY, %s TEXT NULL)",
			td.FullTableName(), td.KeyField, MaxFieldLength, td.ValueField)
	},
	missingTable: func(err error) bool {
		code, ok := postgresErrorCode(err)
		return ok && (code == pgerrcode.UndefinedTable || code == pgerrcode.InvalidSchemaName)
	},
	alreadyExists: func(err error) bool {
		code, ok := postgresErrorCode(err)
		return ok && code == pgerrcode.DuplicateTable
	},
	constraint: func(err error) bool {
		code, ok := postgresErrorCode(err)
		if !ok {
			return false
		}
		return pgerrcode.IsDataException(code) || pgerrcode.IsIntegrityConstraintViolation(code)
	},
}

// postgresErrorCode extracts the SQLSTATE from either driver's error type.
func postgresErrorCode(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, true
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code), true
	}

	return "", false
}
