package cursor

import "context"

// MapperMod is built once per result set, like a [Mapper], and returns a
// hook that runs on every mapped value. The hook sees the row the value
// came from, which is still valid while it runs.
type MapperMod[T any] func(ctx context.Context, columns []string) func(*Row, T) (T, error)

// Mod runs the mods in order on every value produced by m.
// Mapping stops at the first error.
func Mod[T any](m Mapper[T], mods ...MapperMod[T]) Mapper[T] {
	return func(ctx context.Context, c []string) func(*Row) (T, error) {
		mapRow := m(ctx, c)
		fs := make([]func(*Row, T) (T, error), len(mods))
		for i, mod := range mods {
			fs[i] = mod(ctx, c)
		}

		return func(r *Row) (T, error) {
			t, err := mapRow(r)
			if err != nil {
				return t, err
			}

			for _, f := range fs {
				if t, err = f(r, t); err != nil {
					return t, err
				}
			}

			return t, nil
		}
	}
}
