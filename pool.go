package cursor

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/puddle/v2"
	"github.com/stephenafamo/cursor/internal/seal"
)

// PoolConfig describes how a [ConnPool] creates and destroys connections
type PoolConfig struct {
	// Connect opens a new backend connection. Required.
	Connect func(ctx context.Context) (Queryer, error)

	// Disconnect closes a connection that is being dropped from the pool
	Disconnect func(Queryer)

	// MaxSize is the maximum number of open connections. Required.
	MaxSize int32
}

// ConnPool is a generic [Pool] for backends that do not pool their own
// connections. Connections released as unhealthy are destroyed instead
// of being put back.
type ConnPool struct {
	backend Backend
	p       *puddle.Pool[Queryer]
}

// NewPool creates a ConnPool for the given backend
func NewPool(b Backend, cfg PoolConfig) (*ConnPool, error) {
	if !seal.Owned(b) {
		return nil, fmt.Errorf("cursor: backend %T is not declared in this module", b)
	}
	if cfg.Connect == nil {
		return nil, errors.New("cursor: PoolConfig.Connect is required")
	}

	destroy := func(Queryer) {}
	if cfg.Disconnect != nil {
		destroy = cfg.Disconnect
	}

	p, err := puddle.NewPool(&puddle.Config[Queryer]{
		Constructor: cfg.Connect,
		Destructor:  destroy,
		MaxSize:     cfg.MaxSize,
	})
	if err != nil {
		return nil, err
	}

	return &ConnPool{backend: b, p: p}, nil
}

// Backend returns the backend of the pool's connections
func (p *ConnPool) Backend() Backend {
	return p.backend
}

// Acquire waits for an idle connection, or opens a new one if the pool
// is not full. It gives up when ctx is done.
func (p *ConnPool) Acquire(ctx context.Context) (*Conn, error) {
	res, err := p.p.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	return NewConn(p.backend, res.Value(), WithRelease(func(healthy bool) {
		if healthy {
			res.Release()
			return
		}

		res.Destroy()
	})), nil
}

// Stat returns the pool statistics
func (p *ConnPool) Stat() *puddle.Stat {
	return p.p.Stat()
}

// Close waits for every acquired connection to be released and then
// closes all of them
func (p *ConnPool) Close() {
	p.p.Close()
}
