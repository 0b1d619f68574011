package cursor

// Row is a view of the cursor's current row.
//
// It reads straight from the backend's stream, so it is only valid until
// Next is called again on the cursor that produced it, or the cursor is
// closed. After that every read returns ErrRowExpired. Scan the values
// out (or use [Row.Values]) if they must outlive the row.
type Row struct {
	c   *rowCursor
	gen uint64
}

// Valid reports whether the row can still be read
func (r *Row) Valid() bool {
	return r != nil && r.c != nil &&
		!r.c.closed &&
		r.c.state == Streaming &&
		r.c.gen == r.gen
}

// Columns returns a copy of the column names of the result set.
// A Row that did not come from a cursor has no columns.
func (r *Row) Columns() []string {
	if r == nil || r.c == nil {
		return nil
	}

	cols := make([]string, len(r.c.columns))
	copy(cols, r.c.columns)
	return cols
}

// Scan copies the columns of the row into dest, in column order.
// Decode failures are returned as is and do not affect the cursor.
func (r *Row) Scan(dest ...any) error {
	if !r.Valid() {
		return ErrRowExpired
	}

	return r.c.rows.Scan(dest...)
}

// Values scans every column into a new value chosen by the driver
func (r *Row) Values() ([]any, error) {
	if !r.Valid() {
		return nil, ErrRowExpired
	}

	vals := make([]any, len(r.c.columns))
	targets := make([]any, len(vals))
	for i := range vals {
		targets[i] = &vals[i]
	}

	if err := r.c.rows.Scan(targets...); err != nil {
		return nil, err
	}

	return vals, nil
}
