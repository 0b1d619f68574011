package cursor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.uber.org/atomic"
)

// State is the position of a cursor in its result set
type State uint8

const (
	// NotStarted means the query has not been submitted yet
	NotStarted State = iota
	// Streaming means the query is running and rows are being read
	Streaming
	// Exhausted means every row has been read. Terminal.
	Exhausted
	// Errored means the cursor saw a failure. Terminal.
	Errored
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not started"
	case Streaming:
		return "streaming"
	case Exhausted:
		return "exhausted"
	case Errored:
		return "errored"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// Cursor reads the rows of one query, one at a time, over one connection.
//
//	c, err := cursor.FromPool(ctx, pool, cursor.NewQuery("SELECT id, name FROM users"))
//	if err != nil {
//		return err
//	}
//	defer c.Close()
//
//	for {
//		row, err := c.Next(ctx)
//		if err != nil {
//			return err
//		}
//		if row == nil {
//			break // exhausted
//		}
//		// scan the row before calling Next again
//	}
//
// A Cursor is not safe for concurrent use. Overlapping calls to Next are
// detected and rejected with ErrFetchInProgress.
//
// Cursor can only be implemented by this package.
type Cursor interface {
	// Next submits the query on the first call and advances to the next
	// row on every call after that. The previous row becomes invalid as
	// soon as Next is called.
	// It returns (nil, nil) once the rows are exhausted, and keeps doing so.
	// After a failure it keeps returning the same error. Both hold after
	// Close as well; closing a cursor that has not finished makes Next
	// return ErrClosed.
	Next(ctx context.Context) (*Row, error)
	// State returns the current state
	State() State
	// Err returns the error that moved the cursor to Errored, if any
	Err() error
	// Backend returns the backend the cursor runs on
	Backend() Backend
	// Close discards any remaining rows and gives the connection back.
	// It is safe to call more than once.
	Close() error

	cursor()
}

// Option configures a cursor
type Option func(*options)

type options struct {
	logger  *slog.Logger
	metrics *Metrics
}

// WithLogger sets the logger used for cursor lifecycle events.
// Defaults to slog.Default()
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithMetrics records cursor activity in m
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if o.logger == nil {
		o.logger = slog.Default()
	}

	return o
}

// Open creates a cursor from either a [*Conn] or a [Pool].
// It behaves exactly like [FromConn] or [FromPool] respectively.
func Open(ctx context.Context, src Source, q Query, opts ...Option) (Cursor, error) {
	switch s := src.(type) {
	case *Conn:
		return FromConn(ctx, s, q, opts...)
	case Pool:
		return FromPool(ctx, s, q, opts...)
	default:
		return nil, fmt.Errorf("cursor: unsupported source %T", src)
	}
}

// FromPool checks a connection out of the pool and returns a cursor that
// owns it. The connection goes back to the pool when the cursor is
// exhausted, fails or is closed. No query is sent until the first Next.
func FromPool(ctx context.Context, pool Pool, q Query, opts ...Option) (Cursor, error) {
	o := buildOptions(opts)

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("cursor: acquire connection: %w", err)
	}

	if err := conn.lock(); err != nil {
		// the cursor was never created, so nobody else will release it
		if conn.release != nil {
			conn.release(KindOf(err) != TransportFailure)
		}
		return nil, err
	}

	o.metrics.acquired(conn.backend.Name())
	return newCursor(ctx, conn, true, q, o), nil
}

// FromConn returns a cursor over conn. The connection is held exclusively
// until the cursor is exhausted, fails or is closed; trying to create
// another cursor over it in the meantime fails with ErrExclusivity.
// No query is sent until the first Next.
func FromConn(ctx context.Context, conn *Conn, q Query, opts ...Option) (Cursor, error) {
	o := buildOptions(opts)

	if err := conn.lock(); err != nil {
		return nil, err
	}

	return newCursor(ctx, conn, false, q, o), nil
}

func newCursor(ctx context.Context, conn *Conn, owned bool, q Query, o options) *rowCursor {
	// The stream outlives the constructor's deadline but keeps its values.
	// Each Next ties its own ctx to the stream while it runs.
	streamCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	id := uuid.New()
	c := &rowCursor{
		conn:    conn,
		owned:   owned,
		query:   q,
		ctx:     streamCtx,
		cancel:  cancel,
		metrics: o.metrics,
		logger: o.logger.With(
			slog.String("cursor", id.String()),
			slog.String("backend", conn.backend.Name()),
		),
	}

	c.metrics.opened(conn.backend.Name())
	c.logger.Debug("cursor opened", slog.Bool("pooled", owned))

	return c
}

var _ Cursor = (*rowCursor)(nil)

type rowCursor struct {
	conn  *Conn
	owned bool
	query Query

	ctx    context.Context
	cancel context.CancelFunc

	rows    Rows
	columns []string
	state   State
	err     error

	// gen is bumped on every fetch; rows from older generations are expired
	gen      uint64
	fetching atomic.Bool
	finished bool
	closed   bool

	logger  *slog.Logger
	metrics *Metrics
}

func (c *rowCursor) cursor() {}

func (c *rowCursor) State() State {
	return c.state
}

func (c *rowCursor) Err() error {
	return c.err
}

func (c *rowCursor) Backend() Backend {
	return c.conn.backend
}

func (c *rowCursor) Next(ctx context.Context) (*Row, error) {
	if !c.fetching.CompareAndSwap(false, true) {
		return nil, ErrFetchInProgress
	}
	defer c.fetching.Store(false)

	switch c.state {
	case Exhausted:
		return nil, nil
	case Errored:
		return nil, c.err
	}

	if c.closed {
		return nil, ErrClosed
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stop := context.AfterFunc(ctx, c.cancel)
	row, err := c.fetch()
	if !stop() && c.state == Streaming {
		// ctx was cancelled while the fetch was in flight, the stream
		// is aborted and the connection cannot be trusted
		return nil, c.fail(context.Cause(ctx))
	}

	return row, err
}

func (c *rowCursor) fetch() (*Row, error) {
	c.gen++

	if c.state == NotStarted {
		query := c.conn.backend.Rebind(c.query.SQL())
		args := c.query.Args()
		c.query = Query{}

		rows, err := c.conn.q.QueryContext(c.ctx, query, args...)
		if err != nil {
			return nil, c.fail(err)
		}
		c.rows = rows
		c.state = Streaming

		cols, err := rows.Columns()
		if err != nil {
			return nil, c.fail(err)
		}
		c.columns = cols
	}

	if !c.rows.Next() {
		if err := c.rows.Err(); err != nil {
			return nil, c.fail(err)
		}

		if err := c.rows.Close(); err != nil {
			return nil, c.fail(err)
		}

		c.state = Exhausted
		c.finish(true)
		return nil, nil
	}

	c.metrics.row(c.conn.backend.Name())
	return &Row{c: c, gen: c.gen}, nil
}

// fail moves the cursor to Errored and gives the connection back
func (c *rowCursor) fail(err error) error {
	kind := c.classify(err)
	c.err = newError(kind, c.conn.backend.Name(), err)
	c.state = Errored

	healthy := kind != TransportFailure
	if c.rows != nil {
		if closeErr := c.rows.Close(); closeErr != nil {
			healthy = false
		}
	}

	c.metrics.failed(c.conn.backend.Name(), kind)
	c.logger.Debug("cursor failed", slog.String("kind", kind.String()), slog.Any("error", err))
	c.finish(healthy)

	return c.err
}

func (c *rowCursor) classify(err error) Kind {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return TransportFailure
	}

	if k := c.conn.backend.Classify(err); k != 0 {
		return k
	}

	return TransportFailure
}

// finish releases the connection exactly once
func (c *rowCursor) finish(healthy bool) {
	if c.finished {
		return
	}
	c.finished = true

	c.cancel()
	c.conn.unlock(healthy)

	if c.owned {
		if c.conn.release != nil {
			c.conn.release(healthy)
		}
		c.metrics.released(c.conn.backend.Name(), healthy)
	}

	c.logger.Debug("cursor released", slog.Bool("healthy", healthy), slog.String("state", c.state.String()))
}

func (c *rowCursor) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true

	if c.finished {
		return nil
	}

	var err error
	if c.rows != nil {
		// drain whatever is left so the next user of the connection
		// does not see this query's rows
		err = c.rows.Close()
	}

	c.finish(err == nil)
	if err != nil {
		return newError(TransportFailure, c.conn.backend.Name(), err)
	}

	return nil
}
