package singlemodel

type RegistryOption func(o *option)

type option struct {
	autoCreate bool
	keyField   string
	valueField string
	schema     string
}

// WithAutoCreate creates a missing table on first access when the backend
// implements TableCreator.
func WithAutoCreate() RegistryOption {
	return func(o *option) {
		o.autoCreate = true
	}
}

// WithColumns overrides the key and value column names of every table.
func WithColumns(keyField, valueField string) RegistryOption {
	return func(o *option) {
		o.keyField = keyField
		o.valueField = valueField
	}
}

// WithSchema qualifies table names that do not carry their own schema.
func WithSchema(schema string) RegistryOption {
	return func(o *option) {
		o.schema = schema
	}
}

func (o *option) tableDef(name string) TableDef {
	td := NewTableDef(name)
	if td.Schema == "" {
		td.Schema = o.schema
	}
	if o.keyField != "" {
		td.KeyField = o.keyField
	}
	if o.valueField != "" {
		td.ValueField = o.valueField
	}
	return td
}

type CommitOption func(o *commitOption)

type commitOption struct {
	tx Transaction
}

// WithTransaction runs the upserts of a Commit inside tx. Fields leave the
// dirty set as their statements succeed; rolling tx back afterwards does not
// mark them dirty again.
func WithTransaction(tx Transaction) CommitOption {
	return func(o *commitOption) {
		o.tx = tx
	}
}
