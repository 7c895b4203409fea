package singlemodel

import (
	"reflect"
	"strconv"
	"strings"

	"github.com/iancoleman/strcase"
	"github.com/pkg/errors"
	"gopkg.in/guregu/null.v4"
)

var nullStringType = reflect.TypeOf(null.String{})

// Decode copies record values into the struct dest points to. Fields are named
// by their `field` tag or the snake_case form of the Go name; `field:"-"`
// skips a field. Unset record fields leave the zero value.
func (r *Record) Decode(dest any) error {
	v := reflect.ValueOf(dest)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return errors.Errorf("decode target must be a pointer to a struct, got %T", dest)
	}

	v = v.Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		name, ok := bindingName(t.Field(i))
		if !ok {
			continue
		}

		if err := parseInto(v.Field(i), r.Get(name)); err != nil {
			return errors.Wrapf(err, "decode field %q", name)
		}
	}

	return nil
}

// Encode sets record fields from the struct src. It goes through Set, so only
// changed fields become dirty.
func (r *Record) Encode(src any) error {
	v := reflect.ValueOf(src)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return errors.Errorf("encode source must be a struct, got %T", src)
	}

	t := v.Type()
	values := make(map[string]null.String)
	for i := 0; i < t.NumField(); i++ {
		name, ok := bindingName(t.Field(i))
		if !ok {
			continue
		}

		value, err := formatValue(v.Field(i))
		if err != nil {
			return errors.Wrapf(err, "encode field %q", name)
		}
		values[name] = value
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for k, val := range values {
		r.set(k, val)
	}

	return nil
}

func bindingName(f reflect.StructField) (string, bool) {
	if !f.IsExported() {
		return "", false
	}

	if tag, ok := f.Tag.Lookup("field"); ok {
		name := strings.TrimSpace(strings.Split(tag, ",")[0])
		if name == "-" {
			return "", false
		}
		if name != "" {
			return name, true
		}
	}

	return strcase.ToSnake(f.Name), true
}

func formatValue(v reflect.Value) (null.String, error) {
	if v.Type() == nullStringType {
		return v.Interface().(null.String), nil
	}

	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return null.String{}, nil
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.String:
		return null.StringFrom(v.String()), nil
	case reflect.Bool:
		return null.StringFrom(strconv.FormatBool(v.Bool())), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return null.StringFrom(strconv.FormatInt(v.Int(), 10)), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return null.StringFrom(strconv.FormatUint(v.Uint(), 10)), nil
	case reflect.Float32, reflect.Float64:
		return null.StringFrom(strconv.FormatFloat(v.Float(), 'g', -1, v.Type().Bits())), nil
	default:
		return null.String{}, errors.Errorf("unsupported type %s", v.Type())
	}
}

func parseInto(v reflect.Value, value null.String) error {
	if v.Type() == nullStringType {
		v.Set(reflect.ValueOf(value))
		return nil
	}

	if v.Kind() == reflect.Ptr {
		if !value.Valid {
			v.Set(reflect.Zero(v.Type()))
			return nil
		}
		elem := reflect.New(v.Type().Elem())
		if err := parseInto(elem.Elem(), value); err != nil {
			return err
		}
		v.Set(elem)
		return nil
	}

	if !value.Valid {
		v.Set(reflect.Zero(v.Type()))
		return nil
	}

	s := value.String
	switch v.Kind() {
	case reflect.String:
		v.SetString(s)
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return err
		}
		v.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 10, v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(s, 10, v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(s, v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetFloat(f)
	default:
		return errors.Errorf("unsupported type %s", v.Type())
	}

	return nil
}
