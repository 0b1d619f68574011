// Package sqlitecursor is the modernc.org/sqlite backend, registered as "sqlite".
package sqlitecursor

import (
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/stephenafamo/cursor"
	"github.com/stephenafamo/cursor/internal/sqlopt"
	"github.com/stephenafamo/cursor/stdcursor"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Name is the name the backend is registered under
const Name = "sqlite"

// Backend is the sqlite backend
var Backend = stdcursor.New("sqlite",
	stdcursor.WithName(Name),
	stdcursor.WithBindType(sqlx.QUESTION),
	sqlopt.WithClassifier(Classify),
)

func init() {
	cursor.Register(Backend)
}

// Classify sorts sqlite errors by their primary result code.
// Errors about the database file itself are transport failures,
// everything else is an execution failure.
func Classify(err error) cursor.Kind {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return stdcursor.Classify(err)
	}

	return classifyCode(sqliteErr.Code())
}

func classifyCode(code int) cursor.Kind {
	// extended result codes keep the primary code in the low byte
	switch code & 0xff {
	case sqlite3.SQLITE_IOERR,
		sqlite3.SQLITE_CORRUPT,
		sqlite3.SQLITE_NOTADB,
		sqlite3.SQLITE_CANTOPEN,
		sqlite3.SQLITE_FULL:
		return cursor.TransportFailure
	default:
		return cursor.ExecutionFailure
	}
}
