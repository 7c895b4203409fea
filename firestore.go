package singlemodel

import (
	"context"
	"strings"

	"cloud.google.com/go/firestore"
	"github.com/pkg/errors"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gopkg.in/guregu/null.v4"
)

// FirestoreBackend keeps each table in a collection with one document per
// field, the document ID being the field name.
type FirestoreBackend struct {
	client *firestore.Client
}

func NewFirestoreBackend(client *firestore.Client) *FirestoreBackend {
	return &FirestoreBackend{client: client}
}

func (f *FirestoreBackend) Load(ctx context.Context, td TableDef) (map[string]null.String, error) {
	td = td.withDefaults()
	if err := td.Validate(); err != nil {
		return nil, err
	}

	iter := f.client.Collection(td.FullTableName()).Documents(ctx)
	defer iter.Stop()

	fields := make(map[string]null.String)
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, wrapFirestoreError(err)
		}

		value, valid := snap.Data()[td.ValueField].(string)
		fields[snap.Ref.ID] = null.NewString(value, valid)
	}

	return fields, nil
}

// Upsert uses Set, which creates or overwrites the document atomically.
func (f *FirestoreBackend) Upsert(ctx context.Context, td TableDef, field string, value null.String) error {
	td = td.withDefaults()
	if err := td.Validate(); err != nil {
		return err
	}

	if err := validateDocumentID(field); err != nil {
		return err
	}

	if tx := transactionFrom(ctx); tx != nil {
		return foreignTransaction("firestore", tx)
	}

	doc := map[string]interface{}{td.ValueField: nullableValue(value)}
	if _, err := f.client.Collection(td.FullTableName()).Doc(field).Set(ctx, doc); err != nil {
		return wrapFirestoreError(err)
	}

	return nil
}

func validateDocumentID(field string) error {
	if err := validateField(field); err != nil {
		return err
	}

	if field == "." || field == ".." || strings.Contains(field, "/") ||
		(strings.HasPrefix(field, "__") && strings.HasSuffix(field, "__")) {
		return errors.Wrapf(ErrInvalidIdentifier, "field %q is not a valid document id", field)
	}

	return nil
}

func wrapFirestoreError(err error) error {
	switch status.Code(err) {
	case codes.InvalidArgument, codes.FailedPrecondition, codes.OutOfRange, codes.AlreadyExists:
		return classified(ErrConstraint, err)
	default:
		return classified(ErrStoreUnavailable, err)
	}
}
