// Command cursorctl streams the result of a query through any of the
// registered cursor backends.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/stephenafamo/cursor/pgxcursor"
	_ "github.com/stephenafamo/cursor/pqcursor"
	_ "github.com/stephenafamo/cursor/sqlitecursor"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
