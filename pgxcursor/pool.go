package pgxcursor

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stephenafamo/cursor"
)

var _ cursor.Pool = (*Pool)(nil)

// Pool hands out connections from a *pgxpool.Pool
type Pool struct {
	pool *pgxpool.Pool
}

// NewPool wraps p
func NewPool(p *pgxpool.Pool) *Pool {
	return &Pool{pool: p}
}

// Backend implements cursor.Pool
func (p *Pool) Backend() cursor.Backend {
	return Backend
}

// Acquire implements cursor.Pool. Healthy connections go back to the
// pgxpool, unhealthy ones are hijacked from it and closed.
func (p *Pool) Acquire(ctx context.Context) (*cursor.Conn, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	return cursor.NewConn(Backend, convert(conn), cursor.WithRelease(func(healthy bool) {
		if healthy {
			conn.Release()
			return
		}

		_ = conn.Hijack().Close(context.Background())
	})), nil
}

// Stat returns the pgxpool statistics
func (p *Pool) Stat() *pgxpool.Stat {
	return p.pool.Stat()
}

// Close closes every connection of the pool
func (p *Pool) Close() {
	p.pool.Close()
}
