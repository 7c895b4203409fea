package singlemodel

import (
	"context"

	"github.com/pkg/errors"
	"gopkg.in/guregu/null.v4"
)

// Backend persists the rows of a key/value table.
type Backend interface {
	// Load returns every row of the table. A table that does not exist yet
	// yields an empty map and no error.
	Load(ctx context.Context, td TableDef) (map[string]null.String, error)

	// Upsert writes a single row so that exactly one row exists for field
	// afterwards. It relies on the store's own conflict resolution.
	Upsert(ctx context.Context, td TableDef, field string, value null.String) error
}

// TableCreator is implemented by backends that need the table to exist before use.
type TableCreator interface {
	CreateTable(ctx context.Context, td TableDef) error
}

// Editor is what an edit form needs from a single model. Set returns the
// concrete *Record to keep writes chainable, so *Record is its only
// implementation; hosts accept an Editor to stay off the introspection API.
type Editor interface {
	Get(key string) null.String
	Set(key string, value null.String) *Record
	Commit(ctx context.Context, options ...CommitOption) error
}

// Transaction is a unit of work opened on a backend. Commit upserts made
// with WithTransaction become visible only once the transaction commits.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TxBeginner is implemented by backends that can write inside a transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (Transaction, error)
}

type txKey struct{}

func contextWithTransaction(ctx context.Context, tx Transaction) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

func transactionFrom(ctx context.Context) Transaction {
	tx, _ := ctx.Value(txKey{}).(Transaction)
	return tx
}

// foreignTransaction rejects a transaction opened on another kind of backend.
func foreignTransaction(backend string, tx Transaction) error {
	return errors.Wrapf(ErrUnsupported, "%T cannot be used by the %s backend", tx, backend)
}

// equalValues treats null and absent as the same value.
func equalValues(a, b null.String) bool {
	return a.Equal(b)
}

func nullableValue(value null.String) any {
	if !value.Valid {
		return nil
	}
	return value.String
}
