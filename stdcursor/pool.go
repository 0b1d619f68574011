package stdcursor

import (
	"context"
	"database/sql"
	"database/sql/driver"

	"github.com/jmoiron/sqlx"
	"github.com/stephenafamo/cursor"
)

var _ cursor.Pool = (*Pool)(nil)

// Pool hands out dedicated connections from a *sqlx.DB
type Pool struct {
	backend *Backend
	db      *sqlx.DB
}

// NewPool creates a pool over db. The pool does not own db,
// but Close will close it.
func NewPool(b *Backend, db *sqlx.DB) *Pool {
	return &Pool{backend: b, db: db}
}

// Backend implements cursor.Pool
func (p *Pool) Backend() cursor.Backend {
	return p.backend
}

// DB returns the underlying database handle
func (p *Pool) DB() *sqlx.DB {
	return p.db
}

// Acquire implements cursor.Pool. The connection is reserved with
// (*sql.DB).Conn, so database/sql will not hand it to anyone else until
// the cursor releases it.
func (p *Pool) Acquire(ctx context.Context) (*cursor.Conn, error) {
	conn, err := p.db.Conn(ctx)
	if err != nil {
		return nil, err
	}

	return cursor.NewConn(p.backend, convert(conn), cursor.WithRelease(func(healthy bool) {
		release(conn, healthy)
	})), nil
}

// Close closes the database
func (p *Pool) Close() error {
	return p.db.Close()
}

func release(conn *sql.Conn, healthy bool) {
	if !healthy {
		// database/sql discards a connection when Raw returns ErrBadConn
		_ = conn.Raw(func(any) error {
			return driver.ErrBadConn
		})
	}

	_ = conn.Close()
}
