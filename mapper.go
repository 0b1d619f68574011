package cursor

import (
	"context"
	"errors"
	"fmt"
	"strconv"
)

// Mapper is a function that return the mapping function.
// Any expensive operation, like reflection should be done outside the returned
// function.
// It is called once with the columns of the result set, when the first row
// arrives, to get the mapping function which is then used to map every row.
//
// The generator function does not return an error itself to make it less cumbersome.
// It is recommended to instead return a mapping function that returns an error
type Mapper[T any] func(ctx context.Context, columns []string) func(*Row) (T, error)

// The generator function does not return an error itself to make it less cumbersome
// so we return a function that only returns an error instead
// This function makes it easy to return this error
func errorMapper[T any](err error, meta ...string) func(*Row) (T, error) {
	err = createError(err, meta...)

	return func(*Row) (T, error) {
		var t T
		return t, err
	}
}

// Returns a [MappingError] with some optional metadata
func createError(err error, meta ...string) error {
	if me, ok := err.(*MappingError); ok && len(meta) == 0 {
		return me
	}

	return &MappingError{cause: err, meta: meta}
}

// MappingError wraps another error and holds some additional metadata
type MappingError struct {
	meta  []string // easy compare
	cause error
}

// Unwrap returns the wrapped error
func (m *MappingError) Unwrap() error {
	return m.cause
}

// Error implements the error interface
func (m *MappingError) Error() string {
	if m.cause == nil {
		return fmt.Sprint(m.meta)
	}
	return m.cause.Error()
}

// Meta returns the metadata attached to the error
func (m *MappingError) Meta() []string {
	return append([]string(nil), m.meta...)
}

// Equal makes it easy to compare mapping errors
func (m *MappingError) Equal(err error) bool {
	var m2 *MappingError
	if !errors.As(err, &m2) {
		return errors.Is(m, err) || errors.Is(err, m)
	}

	if len(m.meta) != len(m2.meta) {
		return false
	}

	// if no meta, the error strings should match exactly
	if len(m.meta) == 0 {
		return m.Error() == m2.Error()
	}

	for k := range m.meta {
		if m.meta[k] != m2.meta[k] {
			return false
		}
	}

	return true
}

// For queries that return only one column
// throws an error if there is more than one column
func SingleColumnMapper[T any](ctx context.Context, c []string) func(*Row) (T, error) {
	if len(c) != 1 {
		err := fmt.Errorf("Expected 1 column but got %d columns", len(c))
		return errorMapper[T](err, "wrong column count", "1", strconv.Itoa(len(c)))
	}

	return func(r *Row) (T, error) {
		var t T
		err := r.Scan(&t)
		return t, err
	}
}

// Map a column by name. Every other column is discarded.
func ColumnMapper[T any](name string) Mapper[T] {
	return func(ctx context.Context, c []string) func(*Row) (T, error) {
		index := -1
		for i, col := range c {
			if col == name {
				index = i
				break
			}
		}

		if index == -1 {
			err := fmt.Errorf("Column %q not in result set", name)
			return errorMapper[T](err, name)
		}

		return func(r *Row) (T, error) {
			var t T
			targets := discardTargets(len(c))
			targets[index] = &t

			err := r.Scan(targets...)
			return t, err
		}
	}
}

// Maps each row into []T in column order
func SliceMapper[T any](ctx context.Context, c []string) func(*Row) ([]T, error) {
	return func(r *Row) ([]T, error) {
		row := make([]T, len(c))
		targets := make([]any, len(c))
		for i := range row {
			targets[i] = &row[i]
		}

		if err := r.Scan(targets...); err != nil {
			return nil, err
		}

		return row, nil
	}
}

// Maps all rows into map[string]T
// Most likely used with interface{} to get a map[string]interface{}
func MapMapper[T any](ctx context.Context, c []string) func(*Row) (map[string]T, error) {
	slice := SliceMapper[T](ctx, c)

	return func(r *Row) (map[string]T, error) {
		vals, err := slice(r)
		if err != nil {
			return nil, err
		}

		row := make(map[string]T, len(c))
		for i, name := range c {
			row[name] = vals[i]
		}

		return row, nil
	}
}

// See https://github.com/golang/go/issues/41607:
// Some drivers cannot work with nil values, so valid pointers should be
// used for all column targets, even if they are discarded afterwards.
func discardTargets(n int) []any {
	targets := make([]any, n)
	for i := range targets {
		targets[i] = new(any)
	}

	return targets
}
