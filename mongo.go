package singlemodel

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	mongoOptions "go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
	"gopkg.in/guregu/null.v4"
)

// MongoBackend keeps each table in a collection of {_id: field, value: value}
// documents. The table's value column names the value attribute.
type MongoBackend struct {
	db *mongo.Database
}

func NewMongoBackend(db *mongo.Database) *MongoBackend {
	return &MongoBackend{db: db}
}

func (m *MongoBackend) collection(td TableDef) *mongo.Collection {
	return m.db.Collection(td.FullTableName(), mongoOptions.Collection().SetWriteConcern(writeconcern.New(writeconcern.WMajority())))
}

func (m *MongoBackend) Load(ctx context.Context, td TableDef) (map[string]null.String, error) {
	td = td.withDefaults()
	if err := td.Validate(); err != nil {
		return nil, err
	}

	opts := mongoOptions.Find().SetProjection(bson.D{{Key: td.ValueField, Value: 1}})
	cur, err := m.collection(td).Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, wrapMongoError(err)
	}
	defer cur.Close(ctx)

	fields := make(map[string]null.String)
	for cur.Next(ctx) {
		var doc bson.M
		if err := cur.Decode(&doc); err != nil {
			return nil, wrapMongoError(err)
		}

		field, ok := doc["_id"].(string)
		if !ok {
			continue
		}

		value, valid := doc[td.ValueField].(string)
		fields[field] = null.NewString(value, valid)
	}

	if err := cur.Err(); err != nil {
		return nil, wrapMongoError(err)
	}

	return fields, nil
}

// Upsert relies on the server's update-with-upsert on _id. A duplicate key
// error from two racing upserts of a new field is retried once, the second
// attempt matches the document the other writer inserted.
func (m *MongoBackend) Upsert(ctx context.Context, td TableDef, field string, value null.String) error {
	td = td.withDefaults()
	if err := td.Validate(); err != nil {
		return err
	}

	if err := validateField(field); err != nil {
		return err
	}

	ctx, err := m.sessionContext(ctx)
	if err != nil {
		return err
	}

	filter := bson.D{{Key: "_id", Value: field}}
	update := bson.D{{Key: "$set", Value: bson.D{{Key: td.ValueField, Value: nullableValue(value)}}}}
	opts := mongoOptions.Update().SetUpsert(true)

	coll := m.collection(td)
	_, err = coll.UpdateOne(ctx, filter, update, opts)
	if mongo.IsDuplicateKeyError(err) {
		_, err = coll.UpdateOne(ctx, filter, update, opts)
	}

	return wrapMongoError(err)
}

// Begin starts a session with a majority, snapshot transaction. The
// deployment must be a replica set or sharded cluster.
func (m *MongoBackend) Begin(ctx context.Context) (Transaction, error) {
	session, err := m.db.Client().StartSession()
	if err != nil {
		return nil, wrapMongoError(errors.Wrap(err, "failed to create mongodb session"))
	}

	txnOpts := mongoOptions.Transaction().
		SetWriteConcern(writeconcern.New(writeconcern.WMajority())).
		SetReadConcern(readconcern.Snapshot())

	if err := session.StartTransaction(txnOpts); err != nil {
		session.EndSession(ctx)
		return nil, wrapMongoError(err)
	}

	return &mongoTransaction{session: session}, nil
}

func (m *MongoBackend) sessionContext(ctx context.Context) (context.Context, error) {
	tx := transactionFrom(ctx)
	if tx == nil {
		return ctx, nil
	}

	mt, ok := tx.(*mongoTransaction)
	if !ok {
		return nil, foreignTransaction("mongo", tx)
	}
	return mongo.NewSessionContext(ctx, mt.session), nil
}

type mongoTransaction struct {
	session mongo.Session
}

// NewMongoTransaction lets Commit write through a session the host started a
// transaction on. Commit and Rollback end the session.
func NewMongoTransaction(session mongo.Session) Transaction {
	return &mongoTransaction{session: session}
}

func (tx *mongoTransaction) Rollback(ctx context.Context) error {
	defer tx.session.EndSession(ctx)
	return wrapMongoError(tx.session.AbortTransaction(ctx))
}

func (tx *mongoTransaction) Commit(ctx context.Context) error {
	defer tx.session.EndSession(ctx)
	return wrapMongoError(tx.session.CommitTransaction(ctx))
}

func wrapMongoError(err error) error {
	if err == nil {
		return nil
	}

	var writeErr mongo.WriteException
	if errors.As(err, &writeErr) && !mongo.IsNetworkError(err) && !mongo.IsTimeout(err) {
		return classified(ErrConstraint, err)
	}

	return classified(ErrStoreUnavailable, err)
}
