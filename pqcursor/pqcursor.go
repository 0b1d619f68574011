// Package pqcursor is the lib/pq backend, registered as "postgres".
package pqcursor

import (
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stephenafamo/cursor"
	"github.com/stephenafamo/cursor/internal/pgcode"
	"github.com/stephenafamo/cursor/internal/sqlopt"
	"github.com/stephenafamo/cursor/stdcursor"
)

// Name is the name the backend is registered under
const Name = "postgres"

// Backend is the lib/pq backend
var Backend = stdcursor.New("postgres",
	stdcursor.WithName(Name),
	stdcursor.WithBindType(sqlx.DOLLAR),
	sqlopt.WithClassifier(Classify),
)

func init() {
	cursor.Register(Backend)
}

// Classify sorts lib/pq errors. Server errors are classified by their
// SQLSTATE, anything else falls back to [stdcursor.Classify].
func Classify(err error) cursor.Kind {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return stdcursor.Classify(err)
	}

	return pgcode.Classify(string(pqErr.Code))
}
