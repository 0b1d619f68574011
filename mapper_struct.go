package cursor

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"strings"

	"github.com/iancoleman/strcase"
)

var scannerTyp = reflect.TypeOf((*sql.Scanner)(nil)).Elem()

// Uses reflection to create a mapping function for a struct type.
// Columns are matched to fields by the `db` tag, or by the snake_case
// field name. Nested structs are prefixed with their own name and the
// column separator; embedded structs are flattened.
func StructMapper[T any](opts ...MappingOption) Mapper[T] {
	return func(ctx context.Context, c []string) func(*Row) (T, error) {
		s, err := newStructMapper(opts...)
		if err != nil {
			return errorMapper[T](err)
		}

		return structMapperFrom[T](c, s)
	}
}

func structMapperFrom[T any](c []string, s structMapper) func(*Row) (T, error) {
	typ := typeOf[T]()

	isPointer, err := checks(typ)
	if err != nil {
		return errorMapper[T](err)
	}

	if isPointer {
		typ = typ.Elem()
	}

	m := s.getMapping(typ)

	// Filter the mapping so we only ask for the available columns
	fields := make([]*mapinfo, len(c))
	for i, name := range c {
		info, ok := m[name]
		if !ok {
			if !s.allowUnknownColumns {
				err := fmt.Errorf("No destination for column %q", name)
				return errorMapper[T](err, "no destination", name)
			}
			continue
		}

		fields[i] = &info
	}

	return func(r *Row) (T, error) {
		row := reflect.New(typ).Elem()
		targets := discardTargets(len(c))

		for i, info := range fields {
			if info == nil {
				continue
			}

			for _, init := range info.init {
				pv := row.FieldByIndex(init)
				if pv.IsNil() {
					pv.Set(reflect.New(pv.Type().Elem()))
				}
			}

			targets[i] = row.FieldByIndex(info.position).Addr().Interface()
		}

		if err := r.Scan(targets...); err != nil {
			var t T
			return t, err
		}

		if isPointer {
			row = row.Addr()
		}

		return row.Interface().(T), nil
	}
}

// Check if there are any errors, and returns if it is a pointer or not
func checks(typ reflect.Type) (bool, error) {
	if typ == nil {
		return false, fmt.Errorf("Nil type passed to StructMapper")
	}

	switch {
	case typ.Kind() == reflect.Struct:
		return false, nil
	case typ.Kind() == reflect.Pointer && typ.Elem().Kind() == reflect.Struct:
		return true, nil
	default:
		return false, fmt.Errorf("Type %q is not a struct or pointer to a struct", typ.String())
	}
}

// MappingOption is a function type that changes the struct mapping
type MappingOption func(*structMapper) error

// WithStructTagKey allows to use a custom struct tag key.
// The default tag key is `db`.
func WithStructTagKey(tagKey string) MappingOption {
	return func(s *structMapper) error {
		if tagKey == "" {
			return fmt.Errorf("struct tag key cannot be empty")
		}
		s.structTagKey = tagKey
		return nil
	}
}

// WithColumnSeparator allows to use a custom separator character for column name when combining nested structs.
// The default separator is "." character.
func WithColumnSeparator(separator string) MappingOption {
	return func(s *structMapper) error {
		s.columnSeparator = separator
		return nil
	}
}

// WithFieldNameMapper allows to use a custom function to map field name to column names.
// The default function maps fields names to "snake_case"
func WithFieldNameMapper(mapperFn func(string) string) MappingOption {
	return func(s *structMapper) error {
		s.fieldMapperFn = mapperFn
		return nil
	}
}

// WithAllowUnknownColumns discards columns that have no destination field
// instead of failing.
func WithAllowUnknownColumns(allow bool) MappingOption {
	return func(s *structMapper) error {
		s.allowUnknownColumns = allow
		return nil
	}
}

type (
	visited map[reflect.Type]int
	mapping = map[string]mapinfo
)

func (v visited) copy() visited {
	v2 := make(visited, len(v))
	for t, c := range v {
		v2[t] = c
	}

	return v2
}

type mapinfo struct {
	position []int
	init     [][]int // pointer-to-struct fields on the way to position, outermost first
}

type structMapper struct {
	structTagKey        string
	columnSeparator     string
	fieldMapperFn       func(string) string
	allowUnknownColumns bool
	maxDepth            int
}

//nolint:gochecknoglobals
var defaultStructMapper = structMapper{
	structTagKey:    "db",
	columnSeparator: ".",
	fieldMapperFn:   strcase.ToSnake,
	maxDepth:        3,
}

func newStructMapper(opts ...MappingOption) (structMapper, error) {
	s := defaultStructMapper
	for _, o := range opts {
		if err := o(&s); err != nil {
			return s, err
		}
	}

	return s, nil
}

func (s structMapper) getMapping(typ reflect.Type) mapping {
	m := make(mapping)
	s.setMappings(typ, "", make(visited), m, nil)
	return m
}

// A struct is scanned as a single value if it implements sql.Scanner
// or has no exported fields (such as time.Time)
func isScannable(typ reflect.Type) bool {
	if reflect.PointerTo(typ).Implements(scannerTyp) {
		return true
	}

	for i := 0; i < typ.NumField(); i++ {
		if typ.Field(i).IsExported() {
			return false
		}
	}

	return true
}

func (s structMapper) setMappings(typ reflect.Type, prefix string, v visited, m mapping, inits [][]int, position ...int) {
	count := v[typ]
	if count > s.maxDepth {
		return
	}
	v[typ] = count + 1

	// Go through the struct fields and populate the map.
	// Recursively go into any child structs, adding a prefix where necessary
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}

		tag := strings.Split(field.Tag.Get(s.structTagKey), ",")[0]
		if tag == "-" {
			continue
		}

		key := prefix
		if !field.Anonymous {
			name := tag
			if name == "" {
				name = s.fieldMapperFn(field.Name)
			}

			if prefix != "" {
				key = prefix + s.columnSeparator + name
			} else {
				key = name
			}
		}

		index := append(append([]int(nil), position...), i)
		fieldType := field.Type
		isPointer := fieldType.Kind() == reflect.Pointer
		if isPointer {
			fieldType = fieldType.Elem()
		}

		if fieldType.Kind() == reflect.Struct && !isScannable(fieldType) {
			childInits := inits
			if isPointer {
				childInits = append(append([][]int(nil), inits...), index)
			}

			s.setMappings(fieldType, key, v.copy(), m, childInits, index...)
			continue
		}

		m[key] = mapinfo{
			position: index,
			init:     inits,
		}
	}
}
