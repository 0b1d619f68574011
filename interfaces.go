package cursor

import (
	"context"
)

// Queryer is the connection capability a backend hands to the core.
// It is expected to run the query and args and return a set of Rows
type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (Rows, error)
}

// Rows is the backend's result stream for a single query.
// *sql.Rows satisfies it directly, other drivers are adapted
// by their backend package.
type Rows interface {
	Scan(dest ...any) error
	Columns() ([]string, error)
	Next() bool
	Close() error
	Err() error
}

// Pool hands out connections one at a time.
// The returned [*Conn] carries its own release hook, which the cursor
// calls exactly once with the health of the connection.
type Pool interface {
	Backend() Backend
	Acquire(ctx context.Context) (*Conn, error)
}

// Source is where a cursor gets its connection from.
// It is satisfied by [*Conn] and every [Pool].
type Source interface {
	Backend() Backend
}
