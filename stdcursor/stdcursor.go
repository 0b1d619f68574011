// Package stdcursor binds database/sql drivers to cursors.
//
// Any driver can be used with [New]. The pqcursor and sqlitecursor
// packages build on this one and add driver specific error classification.
package stdcursor

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"net"

	"github.com/jmoiron/sqlx"
	"github.com/stephenafamo/cursor"
	"github.com/stephenafamo/cursor/internal/seal"
	"github.com/stephenafamo/cursor/internal/sqlopt"
)

// A Queryer that returns the concrete type *sql.Rows
// this is for use with *sql.Conn, *sql.Tx or any similar implementations
type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

var _ cursor.Backend = (*Backend)(nil)

// Backend is a cursor backend for one database/sql driver
type Backend struct {
	seal.Marker

	opts   sqlopt.Options
	driver string
}

// Option configures a Backend
type Option = func(*sqlopt.Options)

// WithName sets the name the backend is registered under.
// Defaults to the driver name.
func WithName(name string) Option {
	return func(o *sqlopt.Options) {
		o.Name = name
	}
}

// WithBindType sets the placeholder style, one of the sqlx bind types.
// Defaults to sqlx.BindType(driverName).
func WithBindType(bindType int) Option {
	return func(o *sqlopt.Options) {
		o.BindType = bindType
	}
}

// New creates a backend for the database/sql driver registered as driverName.
// Errors are sorted with [Classify].
func New(driverName string, opts ...Option) *Backend {
	b := &Backend{
		driver: driverName,
		opts: sqlopt.Options{
			Name:     driverName,
			BindType: sqlx.BindType(driverName),
			Classify: Classify,
		},
	}

	for _, o := range opts {
		o(&b.opts)
	}

	return b
}

// Name implements cursor.Backend
func (b *Backend) Name() string {
	return b.opts.Name
}

// DriverName returns the database/sql driver name
func (b *Backend) DriverName() string {
	return b.driver
}

// Rebind implements cursor.Backend
func (b *Backend) Rebind(query string) string {
	return sqlx.Rebind(b.opts.BindType, query)
}

// Classify implements cursor.Backend
func (b *Backend) Classify(err error) cursor.Kind {
	return b.opts.Classify(err)
}

// Open implements cursor.Backend. It connects with sqlx and checks the
// connection with a ping.
func (b *Backend) Open(ctx context.Context, dsn string) (cursor.Pool, error) {
	db, err := sqlx.ConnectContext(ctx, b.driver, dsn)
	if err != nil {
		return nil, err
	}

	return NewPool(b, db), nil
}

// Conn wraps a connection the caller keeps ownership of, typically a
// *sql.Conn or a *sql.Tx. Cursors over it only borrow it.
//
// Wrapping the same connection again gives a Conn that shares its
// exclusivity, so only one cursor at a time can run over q however many
// times it is wrapped.
func (b *Backend) Conn(q Queryer) *cursor.Conn {
	return cursor.NewConn(b, convert(q), cursor.WithIdentity(q))
}

// Classify is the default classification for database/sql drivers.
// Broken connections, network errors and truncated streams are
// transport failures, everything else is blamed on the query.
func Classify(err error) cursor.Kind {
	var netErr net.Error

	switch {
	case errors.Is(err, driver.ErrBadConn),
		errors.Is(err, sql.ErrConnDone),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.As(err, &netErr):
		return cursor.TransportFailure
	default:
		return cursor.ExecutionFailure
	}
}

// convert wraps a Queryer and makes it a cursor.Queryer
func convert[T Queryer](wrapped T) cursor.Queryer {
	return queryer[T]{wrapped: wrapped}
}

type queryer[T Queryer] struct {
	wrapped T
}

// QueryContext executes a query that returns rows, typically a SELECT. The args are for any placeholder parameters in the query.
func (q queryer[T]) QueryContext(ctx context.Context, query string, args ...any) (cursor.Rows, error) {
	rows, err := q.wrapped.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	return rows, nil
}
