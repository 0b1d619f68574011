package cursor

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/stephenafamo/cursor/internal/seal"
	"go.uber.org/atomic"
)

// Conn is a connection that can carry at most one live cursor.
//
// The busy flag is taken with a compare-and-swap when a cursor is created
// and dropped when the cursor finishes, so a second cursor over the same
// Conn fails with ErrExclusivity instead of interleaving with the first.
// Once a transport failure has been seen the Conn is marked broken and
// refuses new cursors.
//
// A Conn created [WithIdentity] keeps both flags on the identity instead,
// so every Conn wrapping the same underlying connection shares them.
type Conn struct {
	backend Backend
	q       Queryer
	release func(healthy bool)
	id      any

	busy   atomic.Bool
	broken atomic.Bool
}

// Underlying connections that are held by a cursor, or that have seen a
// transport failure. Keyed by the value given to WithIdentity.
var (
	heldConns   sync.Map
	brokenConns sync.Map
)

// ConnOption configures a Conn
type ConnOption func(*Conn)

// WithRelease sets the function used to hand the connection back to its
// pool. It is called once by the cursor that owns the connection.
func WithRelease(f func(healthy bool)) ConnOption {
	return func(c *Conn) {
		c.release = f
	}
}

// WithIdentity ties the exclusivity of the Conn to id, usually the
// connection the caller handed in. Two Conns with equal identities cannot
// carry live cursors at the same time, and a transport failure seen
// through one of them marks the other broken too.
//
// Identities must be comparable, anything else is ignored.
// The broken mark is kept for as long as the process runs, so identities
// should not be reused for new connections.
func WithIdentity(id any) ConnOption {
	return func(c *Conn) {
		if id == nil || !reflect.TypeOf(id).Comparable() {
			return
		}
		c.id = id
	}
}

// NewConn wraps a backend connection.
// It panics if b is declared outside this module.
func NewConn(b Backend, q Queryer, opts ...ConnOption) *Conn {
	if !seal.Owned(b) {
		panic(fmt.Sprintf("cursor: backend %T is not declared in this module", b))
	}

	c := &Conn{backend: b, q: q}
	for _, o := range opts {
		o(c)
	}

	return c
}

// Backend returns the backend of the connection
func (c *Conn) Backend() Backend {
	return c.backend
}

// Busy reports whether a cursor currently holds the connection
func (c *Conn) Busy() bool {
	if c.id != nil {
		_, held := heldConns.Load(c.id)
		return held
	}

	return c.busy.Load()
}

// Broken reports whether the connection has seen a transport failure
func (c *Conn) Broken() bool {
	if c.broken.Load() {
		return true
	}

	if c.id != nil {
		_, broken := brokenConns.Load(c.id)
		return broken
	}

	return false
}

// Queryer returns the underlying backend connection
func (c *Conn) Queryer() Queryer {
	return c.q
}

func (c *Conn) lock() error {
	if c.Broken() {
		return newError(TransportFailure, c.backend.Name(), errConnBroken)
	}

	if c.id != nil {
		if _, held := heldConns.LoadOrStore(c.id, c); held {
			return newError(ExclusivityViolation, c.backend.Name(), errConnBusy)
		}
		return nil
	}

	if !c.busy.CompareAndSwap(false, true) {
		return newError(ExclusivityViolation, c.backend.Name(), errConnBusy)
	}

	return nil
}

func (c *Conn) unlock(healthy bool) {
	if !healthy {
		c.broken.Store(true)
		if c.id != nil {
			brokenConns.Store(c.id, struct{}{})
		}
	}

	if c.id != nil {
		heldConns.CompareAndDelete(c.id, c)
		return
	}

	c.busy.Store(false)
}
