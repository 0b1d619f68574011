package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/stephenafamo/cursor"
)

// printRows writes each row as soon as the cursor produces it
func printRows(ctx context.Context, w io.Writer, c cursor.Cursor, format string) error {
	bw := bufio.NewWriter(w)
	defer bw.Flush()

	enc := json.NewEncoder(bw)
	var wroteHeader bool

	for {
		row, err := c.Next(ctx)
		if err != nil {
			return err
		}

		if row == nil {
			return bw.Flush()
		}

		cols := row.Columns()
		vals, err := row.Values()
		if err != nil {
			return err
		}

		if format == "json" {
			obj := make(map[string]any, len(cols))
			for i, col := range cols {
				obj[col] = jsonValue(vals[i])
			}

			if err := enc.Encode(obj); err != nil {
				return err
			}
			continue
		}

		if !wroteHeader {
			fmt.Fprintln(bw, strings.Join(cols, "\t"))
			wroteHeader = true
		}

		fields := make([]string, len(vals))
		for i, v := range vals {
			fields[i] = textValue(v)
		}
		fmt.Fprintln(bw, strings.Join(fields, "\t"))
	}
}

func textValue(v any) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(v)
	case time.Time:
		return v.Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(v)
	}
}

func jsonValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}

	return v
}
