package singlemodel

import (
	"context"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"go.mongodb.org/mongo-driver/mongo"
	mongoOptions "go.mongodb.org/mongo-driver/mongo/options"
)

type PGConfig struct {
	Host     string
	Port     string
	Database string
	User     string
	Password string
	SSLMode  string
}

func (c PGConfig) dsn() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", c.User, c.Password, c.Host, c.Port, c.Database, sslMode)
}

// ConnectPostgresql opens a pool using the pgx driver.
func ConnectPostgresql(config PGConfig) (*sqlx.DB, error) {
	return sqlx.Open("pgx", config.dsn())
}

// ConnectPostgresqlPQ opens a pool using the lib/pq driver.
func ConnectPostgresqlPQ(config PGConfig) (*sqlx.DB, error) {
	return sqlx.Open("postgres", config.dsn())
}

func ConnectSqlite(path string) (*sqlx.DB, error) {
	return sqlx.Open("sqlite3", path)
}

// OpenSQL opens driverName and pairs it with its dialect.
func OpenSQL(driverName, dsn string) (*SQLBackend, error) {
	dialect, err := DialectFor(driverName)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return nil, classified(ErrStoreUnavailable, err)
	}

	return NewSQLBackend(db, dialect), nil
}

func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, mongoOptions.Client().ApplyURI(uri))
	if err != nil {
		return nil, classified(ErrStoreUnavailable, err)
	}
	return client, nil
}
