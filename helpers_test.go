package cursor

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aarondl/opt"
	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stephenafamo/cursor/internal/seal"
)

type rows = [][]any

var (
	errFakeTransport = errors.New("fake: connection reset by peer")
	errFakeSyntax    = errors.New("fake: syntax error")
	errFakeDrain     = errors.New("fake: drain failed")
)

// fakeBackend classifies errFakeTransport as a transport failure
// and everything else as an execution failure
type fakeBackend struct {
	seal.Marker
	name string
}

func (b fakeBackend) Name() string {
	return b.name
}

func (fakeBackend) Rebind(query string) string {
	return query
}

func (fakeBackend) Classify(err error) Kind {
	if errors.Is(err, errFakeTransport) {
		return TransportFailure
	}

	return ExecutionFailure
}

func (fakeBackend) Open(context.Context, string) (Pool, error) {
	return nil, errors.New("fake: cannot open")
}

var _ Backend = fakeBackend{}

var testBackend = fakeBackend{name: "fake"}

// fakeResult is the scripted answer to one query
type fakeResult struct {
	columns  []string
	rows     rows
	queryErr error // returned by QueryContext
	failAt   int   // 1-based fetch that fails with failErr, 0 for never
	failErr  error
	closeErr error // returned by Close
	block    bool  // Next waits for the query context to be done
}

// fakeConn answers queries from a script and records what the
// cursor asked of it
type fakeConn struct {
	mu      sync.Mutex
	results map[string]fakeResult
	submits []string
	nexts   int
	open    *fakeRows
}

func newFakeConn(results map[string]fakeResult) *fakeConn {
	return &fakeConn{results: results}
}

func (c *fakeConn) QueryContext(ctx context.Context, query string, args ...any) (Rows, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.open != nil && !c.open.closed {
		return nil, fmt.Errorf("fake: rows of %q are still open", c.open.query)
	}

	c.submits = append(c.submits, query)

	res, ok := c.results[query]
	if !ok {
		return nil, errFakeSyntax
	}

	if res.queryErr != nil {
		return nil, res.queryErr
	}

	r := &fakeRows{ctx: ctx, conn: c, query: query, res: res, pos: -1}
	c.open = r
	return r, nil
}

func (c *fakeConn) submitted() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.submits...)
}

func (c *fakeConn) nextCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nexts
}

type fakeRows struct {
	ctx    context.Context
	conn   *fakeConn
	query  string
	res    fakeResult
	pos    int
	err    error
	closed bool
}

func (r *fakeRows) Columns() ([]string, error) {
	return r.res.columns, nil
}

func (r *fakeRows) Next() bool {
	if r.closed || r.err != nil {
		return false
	}

	r.conn.mu.Lock()
	r.conn.nexts++
	r.conn.mu.Unlock()

	if r.res.block {
		<-r.ctx.Done()
		r.err = r.ctx.Err()
		return false
	}

	r.pos++
	if r.res.failAt > 0 && r.pos+1 == r.res.failAt {
		r.err = r.res.failErr
		return false
	}

	return r.pos < len(r.res.rows)
}

func (r *fakeRows) Scan(dest ...any) error {
	if r.closed {
		return errors.New("fake: scan on closed rows")
	}

	row := r.res.rows[r.pos]
	if len(dest) != len(row) {
		return fmt.Errorf("fake: expected %d destination arguments in Scan, not %d", len(row), len(dest))
	}

	for i, d := range dest {
		if err := opt.ConvertAssign(d, row[i]); err != nil {
			return fmt.Errorf("fake: column %d: %w", i, err)
		}
	}

	return nil
}

func (r *fakeRows) Err() error {
	return r.err
}

func (r *fakeRows) Close() error {
	r.conn.mu.Lock()
	defer r.conn.mu.Unlock()

	r.closed = true
	return r.res.closeErr
}

// newTestPool returns a pool whose connections all serve the same script.
// The created connections are returned in creation order.
func newTestPool(tb testing.TB, size int32, results map[string]fakeResult) (*ConnPool, func() []*fakeConn) {
	tb.Helper()

	var mu sync.Mutex
	var conns []*fakeConn

	p, err := NewPool(testBackend, PoolConfig{
		MaxSize: size,
		Connect: func(context.Context) (Queryer, error) {
			mu.Lock()
			defer mu.Unlock()

			c := newFakeConn(results)
			conns = append(conns, c)
			return c, nil
		},
	})
	if err != nil {
		tb.Fatalf("error creating pool: %v", err)
	}
	tb.Cleanup(p.Close)

	return p, func() []*fakeConn {
		mu.Lock()
		defer mu.Unlock()
		return append([]*fakeConn(nil), conns...)
	}
}

// eventually polls cond until it holds or a second has passed
func eventually(tb testing.TB, what string, cond func() bool) {
	tb.Helper()

	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			tb.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func newTestMetrics() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}

func singleRows[T any](vals ...T) rows {
	r := make(rows, len(vals))
	for k, v := range vals {
		r[k] = []any{v}
	}

	return r
}

func letters(n int) rows {
	vals := make([]string, n)
	for i := range vals {
		vals[i] = string(rune('a' + i))
	}

	return singleRows(vals...)
}

// drain reads every row as a string slice
func drain(t *testing.T, c Cursor) [][]string {
	t.Helper()

	var all [][]string
	for {
		row, err := c.Next(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if row == nil {
			return all
		}

		vals := make([]string, len(row.Columns()))
		targets := make([]any, len(vals))
		for i := range vals {
			targets[i] = &vals[i]
		}

		if err := row.Scan(targets...); err != nil {
			t.Fatalf("scan: %v", err)
		}

		all = append(all, vals)
	}
}

func randate() time.Time {
	min := time.Date(1970, 1, 0, 0, 0, 0, 0, time.UTC).Unix()
	max := time.Date(2070, 1, 0, 0, 0, 0, 0, time.UTC).Unix()
	delta := max - min

	sec := rand.Int63n(delta) + min
	return time.Unix(sec, 0)
}

func convertMappingError(m *MappingError) string {
	return strings.Join(m.meta, " ")
}

func diffErr(expected, got error) string {
	return cmp.Diff(expected, got, cmp.Transformer("convertMappingErr", convertMappingError), equateErrors())
}

// equateErrors returns a Comparer option that determines errors to be equal
// if errors.Is reports them to match.
func equateErrors() cmp.Option {
	return cmp.FilterValues(nonMappingErrors, cmp.Comparer(compareErrors))
}

// nonMappingErrors reports whether x and y are not both mapping errors
func nonMappingErrors(x, y error) bool {
	var me *MappingError
	ok1 := errors.As(x, &me)
	ok2 := errors.As(y, &me)
	return !(ok1 && ok2)
}

func compareErrors(xe, ye error) bool {
	if errors.Is(xe, ye) || errors.Is(ye, xe) {
		return true
	}

	return xe.Error() == ye.Error()
}
