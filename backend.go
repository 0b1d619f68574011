package cursor

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/stephenafamo/cursor/internal/seal"
)

// Backend identifies one database backend and everything the core
// needs to know about it. Generic code only ever deals with [Cursor]
// and [*Row]; the backend decides how queries are written and how
// its errors are classified.
//
// Backend is sealed: it can only be implemented by the backend
// packages in this module (stdcursor, pqcursor, sqlitecursor, pgxcursor),
// because the rest of the package relies on them upholding the
// exclusivity and row validity rules. Register, NewConn and NewPool
// refuse backends whose type is declared outside this module, which
// includes types that embed one of the module's backends.
type Backend interface {
	// Name is the registry key, e.g. "pgx" or "sqlite"
	Name() string
	// Rebind rewrites "?" placeholders into the backend's bind style
	Rebind(query string) string
	// Classify returns ExecutionFailure or TransportFailure for a
	// non-nil error reported by the backend
	Classify(err error) Kind
	// Open creates a pool for the given data source
	Open(ctx context.Context, dsn string) (Pool, error)

	Sealed(seal.Token)
}

var (
	backendsMu sync.RWMutex
	backends   = make(map[string]Backend)
)

// Register makes a backend available by name.
// It panics if called twice with the same name, with a nil backend or
// with a backend declared outside this module.
func Register(b Backend) {
	if b == nil {
		panic("cursor: Register backend is nil")
	}
	if !seal.Owned(b) {
		panic(fmt.Sprintf("cursor: Register backend %T is not declared in this module", b))
	}

	backendsMu.Lock()
	defer backendsMu.Unlock()

	name := b.Name()
	if _, dup := backends[name]; dup {
		panic(fmt.Sprintf("cursor: Register called twice for backend %q", name))
	}

	backends[name] = b
}

// Lookup returns the registered backend with the given name
func Lookup(name string) (Backend, bool) {
	backendsMu.RLock()
	defer backendsMu.RUnlock()

	b, ok := backends[name]
	return b, ok
}

// Backends returns a sorted list of the names of the registered backends
func Backends() []string {
	backendsMu.RLock()
	defer backendsMu.RUnlock()

	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// OpenPool looks up a registered backend by name and opens a pool with it
func OpenPool(ctx context.Context, backend, dsn string) (Pool, error) {
	b, ok := Lookup(backend)
	if !ok {
		return nil, fmt.Errorf("cursor: unknown backend %q (forgotten import?)", backend)
	}

	return b.Open(ctx, dsn)
}
