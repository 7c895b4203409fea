package singlemodel

import (
	"context"

	"gopkg.in/guregu/null.v4"
)

// IDField is ignored by Provider.Save; edit hosts add it to every submitted model.
const IDField = "id"

// Provider exposes one single model table through the data provider shape
// generic edit hosts call into. Only fetching and saving the one record is
// supported; every collection operation fails before touching the store.
type Provider struct {
	registry *Registry
	table    string
}

func NewProvider(registry *Registry, table string) *Provider {
	return &Provider{
		registry: registry,
		table:    table,
	}
}

// Fetch returns the record's values, limited to fields when any are given.
func (p *Provider) Fetch(ctx context.Context, fields ...string) (map[string]null.String, error) {
	rec, err := p.registry.Instance(ctx, p.table)
	if err != nil {
		return nil, err
	}

	if len(fields) == 0 {
		return rec.Fields(), nil
	}

	out := make(map[string]null.String, len(fields))
	for _, f := range fields {
		if v := rec.Get(f); v.Valid {
			out[f] = v
		}
	}
	return out, nil
}

// Save applies values to the record and commits the ones that changed. A
// value under an invalid field name rejects the whole save before the record
// is touched.
func (p *Provider) Save(ctx context.Context, values map[string]null.String, options ...CommitOption) error {
	for k := range values {
		if k == IDField {
			continue
		}
		if err := validateField(k); err != nil {
			return err
		}
	}

	rec, err := p.registry.Instance(ctx, p.table)
	if err != nil {
		return err
	}

	for k, v := range values {
		if k == IDField {
			continue
		}
		rec.Set(k, v)
	}

	return rec.Commit(ctx, options...)
}

func (p *Provider) FetchAll(ctx context.Context, filter map[string]any) ([]map[string]null.String, error) {
	return nil, unsupported("FetchAll")
}

func (p *Provider) Count(ctx context.Context, filter map[string]any) (int, error) {
	return 0, unsupported("Count")
}

func (p *Provider) Delete(ctx context.Context, fields ...string) error {
	return unsupported("Delete")
}

func (p *Provider) IsUniqueValue(ctx context.Context, field string, value null.String) (bool, error) {
	return false, unsupported("IsUniqueValue")
}

func (p *Provider) ResetFallback(ctx context.Context, field string) error {
	return unsupported("ResetFallback")
}

func (p *Provider) Versions(ctx context.Context) ([]string, error) {
	return nil, unsupported("Versions")
}
