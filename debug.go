package cursor

import (
	"context"
	"log/slog"
)

// Debug wraps a Queryer so that every query and its args are logged
// at debug level before being run. A nil logger uses slog.Default()
func Debug(q Queryer, l *slog.Logger) Queryer {
	if l == nil {
		l = slog.Default()
	}

	return debugQueryer{l: l, q: q}
}

type debugQueryer struct {
	l *slog.Logger
	q Queryer
}

func (d debugQueryer) QueryContext(ctx context.Context, query string, args ...any) (Rows, error) {
	d.l.DebugContext(ctx, "query", slog.String("sql", query), slog.Any("args", args))
	return d.q.QueryContext(ctx, query, args...)
}
