package cursor

// Query is the SQL text and bound arguments consumed by a cursor.
// Placeholders are written as "?" and rebound for the target backend
// when the query is submitted.
type Query struct {
	sql  string
	args []any
}

// NewQuery creates a Query. The args slice is copied.
func NewQuery(sql string, args ...any) Query {
	q := Query{sql: sql}
	if len(args) > 0 {
		q.args = append(make([]any, 0, len(args)), args...)
	}

	return q
}

// SQL returns the query text
func (q Query) SQL() string {
	return q.sql
}

// Args returns a copy of the bound arguments
func (q Query) Args() []any {
	if len(q.args) == 0 {
		return nil
	}

	return append(make([]any, 0, len(q.args)), q.args...)
}

// IsZero reports whether the query has no text.
func (q Query) IsZero() bool {
	return q.sql == ""
}
