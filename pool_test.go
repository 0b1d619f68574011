package cursor

import (
	"context"
	"sync/atomic"
	"testing"
)

func TestNewPoolRequiresConnect(t *testing.T) {
	if _, err := NewPool(testBackend, PoolConfig{MaxSize: 1}); err == nil {
		t.Fatal("expected an error without Connect")
	}
}

func TestPoolRelease(t *testing.T) {
	ctx := context.Background()
	var disconnects atomic.Int32

	p, err := NewPool(testBackend, PoolConfig{
		MaxSize: 1,
		Connect: func(context.Context) (Queryer, error) {
			return newFakeConn(testScript()), nil
		},
		Disconnect: func(Queryer) {
			disconnects.Add(1)
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	if p.Backend() != testBackend {
		t.Fatalf("unexpected backend %v", p.Backend())
	}

	conn, err := p.Acquire(ctx)
	if err != nil {
		t.Fatal(err)
	}
	first := conn.Queryer()
	conn.release(true)

	conn, err = p.Acquire(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if conn.Queryer() != first {
		t.Fatal("healthy connection was not reused")
	}
	conn.release(false)

	eventually(t, "unhealthy connection disconnected", func() bool {
		return disconnects.Load() == 1
	})

	conn, err = p.Acquire(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if conn.Queryer() == first {
		t.Fatal("unhealthy connection was reused")
	}
	conn.release(true)
}
