package singlemodel

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"gopkg.in/guregu/null.v4"
)

type sqlTransaction struct {
	Tx *sqlx.Tx
}

// NewSQLTransaction lets Commit write through a transaction the host opened.
func NewSQLTransaction(tx *sqlx.Tx) Transaction {
	return &sqlTransaction{Tx: tx}
}

func (st *sqlTransaction) Rollback(_ context.Context) error {
	return st.Tx.Rollback()
}

func (st *sqlTransaction) Commit(_ context.Context) error {
	return st.Tx.Commit()
}

// Dialect carries the statements and error rules of one SQL database.
type Dialect struct {
	Name string

	upsertSQL      func(td TableDef) string
	createTableSQL func(td TableDef) string

	// missingTable reports errors caused by querying a table that does not exist.
	missingTable func(err error) bool

	// alreadyExists reports errors caused by creating a table that exists.
	alreadyExists func(err error) bool

	// constraint reports write rejections other than unavailability.
	constraint func(err error) bool
}

// DialectFor picks the dialect matching a database/sql driver name.
func DialectFor(driverName string) (Dialect, error) {
	switch driverName {
	case "pgx", "postgres", "pq":
		return Postgres, nil
	case "sqlite3", "sqlite":
		return SQLite, nil
	case "mysql":
		return MySQL, nil
	case "godror", "oracle", "oci8":
		return Oracle, nil
	default:
		return Dialect{}, errors.Errorf("no dialect for driver %q", driverName)
	}
}

func (d Dialect) wrapError(err error) error {
	if err == nil {
		return nil
	}

	if d.constraint != nil && d.constraint(err) {
		return classified(ErrConstraint, err)
	}

	return classified(ErrStoreUnavailable, err)
}

// SQLBackend stores key/value tables in a relational database.
type SQLBackend struct {
	db      *sqlx.DB
	dialect Dialect
}

func NewSQLBackend(db *sqlx.DB, dialect Dialect) *SQLBackend {
	return &SQLBackend{
		db:      db,
		dialect: dialect,
	}
}

func (s *SQLBackend) DB() *sqlx.DB {
	return s.db
}

func (s *SQLBackend) Dialect() Dialect {
	return s.dialect
}

func (s *SQLBackend) Load(ctx context.Context, td TableDef) (map[string]null.String, error) {
	td = td.withDefaults()
	if err := td.Validate(); err != nil {
		return nil, err
	}

	qry := fmt.Sprintf("SELECT %s, %s FROM %s", td.KeyField, td.ValueField, td.FullTableName())

	rows, err := s.db.QueryxContext(ctx, qry)
	if err != nil {
		if s.dialect.missingTable != nil && s.dialect.missingTable(err) {
			return map[string]null.String{}, nil
		}
		return nil, classified(ErrStoreUnavailable, err)
	}
	defer rows.Close()

	fields := make(map[string]null.String)
	for rows.Next() {
		var field string
		var value null.String
		if err := rows.Scan(&field, &value); err != nil {
			return nil, classified(ErrStoreUnavailable, err)
		}
		fields[field] = value
	}

	if err := rows.Err(); err != nil {
		return nil, classified(ErrStoreUnavailable, err)
	}

	return fields, nil
}

func (s *SQLBackend) Upsert(ctx context.Context, td TableDef, field string, value null.String) error {
	td = td.withDefaults()
	if err := td.Validate(); err != nil {
		return err
	}

	if err := validateField(field); err != nil {
		return err
	}

	exec, err := s.execer(ctx)
	if err != nil {
		return err
	}

	qry := s.db.Rebind(s.dialect.upsertSQL(td))
	if _, err := exec.ExecContext(ctx, qry, field, value); err != nil {
		return s.dialect.wrapError(err)
	}

	return nil
}

func (s *SQLBackend) Begin(ctx context.Context) (Transaction, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, classified(ErrStoreUnavailable, err)
	}

	return &sqlTransaction{Tx: tx}, nil
}

func (s *SQLBackend) execer(ctx context.Context) (sqlx.ExecerContext, error) {
	tx := transactionFrom(ctx)
	if tx == nil {
		return s.db, nil
	}

	st, ok := tx.(*sqlTransaction)
	if !ok {
		return nil, foreignTransaction(s.dialect.Name, tx)
	}
	return st.Tx, nil
}

func (s *SQLBackend) CreateTable(ctx context.Context, td TableDef) error {
	td = td.withDefaults()
	if err := td.Validate(); err != nil {
		return err
	}

	if s.dialect.createTableSQL == nil {
		return errors.Errorf("dialect %s cannot create tables", s.dialect.Name)
	}

	if _, err := s.db.ExecContext(ctx, s.dialect.createTableSQL(td)); err != nil {
		if s.dialect.alreadyExists != nil && s.dialect.alreadyExists(err) {
			return nil
		}
		return s.dialect.wrapError(err)
	}

	return nil
}
