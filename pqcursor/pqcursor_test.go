package pqcursor

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"testing"

	"github.com/lib/pq"
	"github.com/stephenafamo/cursor"
)

func TestRegistered(t *testing.T) {
	if !slices.Contains(cursor.Backends(), Name) {
		t.Fatalf("%q is not registered: %v", Name, cursor.Backends())
	}

	b, _ := cursor.Lookup(Name)
	if got := b.Rebind("SELECT * FROM t WHERE a = ? AND b = ?"); got != "SELECT * FROM t WHERE a = $1 AND b = $2" {
		t.Fatalf("unexpected rebind %q", got)
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		expected cursor.Kind
	}{
		{"undefined table", &pq.Error{Code: "42P01"}, cursor.ExecutionFailure},
		{"wrapped unique violation", fmt.Errorf("insert: %w", &pq.Error{Code: "23505"}), cursor.ExecutionFailure},
		{"admin shutdown", &pq.Error{Code: "57P01"}, cursor.TransportFailure},
		{"connection failure", &pq.Error{Code: "08006"}, cursor.TransportFailure},
		{"statement timeout", &pq.Error{Code: "57014"}, cursor.ExecutionFailure},
		{"broken stream", io.ErrUnexpectedEOF, cursor.TransportFailure},
		{"other", errors.New("pq: unknown"), cursor.ExecutionFailure},
	}

	for _, tc := range cases {
		if got := Classify(tc.err); got != tc.expected {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.expected, got)
		}
	}
}
