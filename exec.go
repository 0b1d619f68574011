package cursor

import (
	"context"
	"iter"
)

// Each iterates over the rows of the cursor, mapping each one to T.
// The mapper is built from the columns of the first row.
// Iteration stops after the first cursor error; mapping errors are
// yielded and iteration continues unless the loop breaks.
// The cursor is closed when iteration ends.
func Each[T any](ctx context.Context, c Cursor, m Mapper[T]) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		defer c.Close()

		var mapRow func(*Row) (T, error)
		for {
			row, err := c.Next(ctx)
			if err != nil {
				var t T
				yield(t, err)
				return
			}

			if row == nil {
				return
			}

			if mapRow == nil {
				mapRow = m(ctx, row.Columns())
			}

			if !yield(mapRow(row)) {
				return
			}
		}
	}
}

// All maps every row of the cursor and returns them as a slice.
// The cursor is closed before returning.
func All[T any](ctx context.Context, c Cursor, m Mapper[T]) ([]T, error) {
	var results []T
	for one, err := range Each(ctx, c, m) {
		if err != nil {
			return nil, err
		}

		results = append(results, one)
	}

	return results, nil
}

// One maps the first row of the cursor and discards the rest.
// It returns ErrNoRows if there are no rows.
// The cursor is closed before returning.
func One[T any](ctx context.Context, c Cursor, m Mapper[T]) (T, error) {
	for one, err := range Each(ctx, c, m) {
		return one, err
	}

	var t T
	return t, ErrNoRows
}
