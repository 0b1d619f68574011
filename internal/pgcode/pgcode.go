// Package pgcode classifies PostgreSQL SQLSTATE codes for the
// postgres backends.
package pgcode

import (
	"github.com/jackc/pgerrcode"
	"github.com/stephenafamo/cursor"
)

// Classify returns the failure kind of a server error code.
// Connection exceptions (class 08) and operator intervention (class 57,
// e.g. admin shutdown) mean the session is gone. A cancelled statement
// (57014) leaves the session usable. Everything else is the query's fault.
func Classify(code string) cursor.Kind {
	switch {
	case code == pgerrcode.QueryCanceled:
		return cursor.ExecutionFailure
	case pgerrcode.IsConnectionException(code), pgerrcode.IsOperatorIntervention(code):
		return cursor.TransportFailure
	default:
		return cursor.ExecutionFailure
	}
}
