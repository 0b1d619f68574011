// Package pgxcursor is the native pgx backend, registered as "pgx".
package pgxcursor

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/stephenafamo/cursor"
	"github.com/stephenafamo/cursor/internal/pgcode"
	"github.com/stephenafamo/cursor/internal/seal"
)

// Name is the name the backend is registered under
const Name = "pgx"

// Backend is the pgx backend
var Backend cursor.Backend = backend{}

func init() {
	cursor.Register(Backend)
}

type backend struct {
	seal.Marker
}

func (backend) Name() string {
	return Name
}

func (backend) Rebind(query string) string {
	return sqlx.Rebind(sqlx.DOLLAR, query)
}

func (backend) Classify(err error) cursor.Kind {
	return Classify(err)
}

func (backend) Open(ctx context.Context, dsn string) (cursor.Pool, error) {
	p, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}

	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, err
	}

	return NewPool(p), nil
}

// Classify sorts pgx errors. Errors reported by the server are
// classified by their SQLSTATE. Anything else came from the connection
// itself and is a transport failure.
func Classify(err error) cursor.Kind {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgcode.Classify(pgErr.Code)
	}

	return cursor.TransportFailure
}

// A Queryer that returns pgx.Rows.
// *pgx.Conn, *pgxpool.Conn and pgx.Tx all satisfy it.
type Queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Wrap wraps a connection the caller keeps ownership of.
// Cursors over it only borrow it. Wrapping the same connection twice
// gives Conns that share one busy flag.
func Wrap(q Queryer) *cursor.Conn {
	return cursor.NewConn(Backend, convert(q), cursor.WithIdentity(q))
}

// convert wraps a Queryer and makes it a cursor.Queryer
func convert(wrapped Queryer) cursor.Queryer {
	return queryer{wrapped: wrapped}
}

type queryer struct {
	wrapped Queryer
}

// QueryContext executes a query that returns rows, typically a SELECT. The args are for any placeholder parameters in the query.
func (q queryer) QueryContext(ctx context.Context, query string, args ...any) (cursor.Rows, error) {
	r, err := q.wrapped.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	return rows{r}, nil
}

var errConnClosed = errors.New("pgxcursor: connection closed while reading rows")

type rows struct {
	pgx.Rows
}

// Close reads and discards the remaining rows. Query errors are
// reported by Err, so Close only fails if the connection did not survive.
func (r rows) Close() error {
	r.Rows.Close()

	if conn := r.Rows.Conn(); conn != nil && conn.IsClosed() {
		return errConnClosed
	}

	return nil
}

func (r rows) Columns() ([]string, error) {
	fields := r.FieldDescriptions()
	cols := make([]string, len(fields))

	for i, field := range fields {
		cols[i] = field.Name
	}

	return cols, nil
}
