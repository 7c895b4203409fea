package singlemodel

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
)

const (
	DefaultKeyField   = "field"
	DefaultValueField = "value"

	// MaxFieldLength matches the width, in characters, of the key column
	// created by CreateTable.
	MaxFieldLength = 128
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// TableDef names a two-column key/value table.
type TableDef struct {
	Schema     string
	Name       string
	KeyField   string
	ValueField string
}

// NewTableDef parses "table" or "schema.table" and applies the default column names.
func NewTableDef(name string) TableDef {
	td := TableDef{
		Name:       name,
		KeyField:   DefaultKeyField,
		ValueField: DefaultValueField,
	}

	if i := strings.IndexByte(name, '.'); i >= 0 {
		td.Schema = name[:i]
		td.Name = name[i+1:]
	}

	return td
}

func (td TableDef) FullTableName() string {
	name := td.Name
	if td.Schema != "" {
		name = fmt.Sprintf("%s.%s", td.Schema, td.Name)
	}
	return name
}

func (td TableDef) withDefaults() TableDef {
	if td.KeyField == "" {
		td.KeyField = DefaultKeyField
	}
	if td.ValueField == "" {
		td.ValueField = DefaultValueField
	}
	return td
}

// Validate rejects names that cannot be used verbatim inside a statement.
func (td TableDef) Validate() error {
	if td.Schema != "" && !identifierPattern.MatchString(td.Schema) {
		return errors.Wrapf(ErrInvalidIdentifier, "schema %q", td.Schema)
	}

	checks := []struct {
		kind  string
		value string
	}{
		{"table", td.Name},
		{"key column", td.KeyField},
		{"value column", td.ValueField},
	}

	for _, c := range checks {
		if !identifierPattern.MatchString(c.value) {
			return errors.Wrapf(ErrInvalidIdentifier, "%s %q", c.kind, c.value)
		}
	}

	if strings.EqualFold(td.KeyField, td.ValueField) {
		return errors.Wrapf(ErrInvalidIdentifier, "key and value column are both %q", td.KeyField)
	}

	return nil
}

func validateField(field string) error {
	if field == "" {
		return errors.Wrap(ErrInvalidIdentifier, "empty field name")
	}

	if utf8.RuneCountInString(field) > MaxFieldLength {
		return errors.Wrapf(ErrInvalidIdentifier, "field name longer than %d characters", MaxFieldLength)
	}

	return nil
}
