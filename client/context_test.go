package client

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"duplexhttp/message"
)

func newTestContext() *Context {
	return NewContext(message.NewDecoderRegistry())
}

func TestContextNewConnectionAndLookup(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<messages/>"))
	}))
	defer ts.Close()

	ctx := newTestContext()
	defer ctx.Close()

	conn, err := ctx.NewConnection("conn-1", ts.URL, func([]message.Message) {})
	if err != nil {
		t.Fatalf("NewConnection: %v", err)
	}

	got, ok := ctx.Lookup("conn-1")
	if !ok || got != conn {
		t.Fatalf("got %v, %v, want %v, true", got, ok, conn)
	}
}

func TestContextNewConnectionDuplicateID(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<messages/>"))
	}))
	defer ts.Close()

	ctx := newTestContext()
	defer ctx.Close()

	if _, err := ctx.NewConnection("dup", ts.URL, func([]message.Message) {}); err != nil {
		t.Fatalf("first NewConnection: %v", err)
	}
	if _, err := ctx.NewConnection("dup", ts.URL, func([]message.Message) {}); err == nil {
		t.Fatal("expected error registering a duplicate id")
	}
}

// TestContextNewConnectionConcurrentDuplicateIDs exercises the race the
// sequential TestContextNewConnectionDuplicateID above cannot reach:
// many goroutines racing to register the same id must see exactly one
// winner, with every loser's registry lookup still resolving to that
// same winning Connection rather than something briefly overwritten and
// orphaned.
func TestContextNewConnectionConcurrentDuplicateIDs(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<messages/>"))
	}))
	defer ts.Close()

	ctx := newTestContext()
	defer ctx.Close()

	const attempts = 20
	var wg sync.WaitGroup
	var successes int32
	conns := make([]*Connection, attempts)
	errs := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			conn, err := ctx.NewConnection("dup-race", ts.URL, func([]message.Message) {})
			conns[i] = conn
			errs[i] = err
			if err == nil {
				atomic.AddInt32(&successes, 1)
			}
		}(i)
	}
	wg.Wait()

	if successes != 1 {
		t.Fatalf("got %d successful registrations, want exactly 1", successes)
	}

	var winner *Connection
	for i := 0; i < attempts; i++ {
		if errs[i] == nil {
			winner = conns[i]
		}
	}
	got, ok := ctx.Lookup("dup-race")
	if !ok || got != winner {
		t.Fatalf("registry entry %v (ok=%v) does not match the one successful registration %v", got, ok, winner)
	}
}

func TestContextNewConnectionAfterClose(t *testing.T) {
	ctx := newTestContext()
	if err := ctx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if _, err := ctx.NewConnection("conn-1", "http://example.invalid", func([]message.Message) {}); err == nil {
		t.Fatal("expected error creating a connection on a closed context")
	}
}

func TestContextLookupMissing(t *testing.T) {
	ctx := newTestContext()
	defer ctx.Close()

	if _, ok := ctx.Lookup("missing"); ok {
		t.Fatal("expected ok=false for an unregistered id")
	}
}

func TestConnectionCloseRemovesFromRegistry(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<messages/>"))
	}))
	defer ts.Close()

	ctx := newTestContext()
	defer ctx.Close()

	conn, err := ctx.NewConnection("conn-1", ts.URL, func([]message.Message) {})
	if err != nil {
		t.Fatalf("NewConnection: %v", err)
	}
	if err := conn.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if _, ok := ctx.Lookup("conn-1"); ok {
		t.Fatal("expected connection to be removed from the registry after Close")
	}
}

func TestContextCloseClosesAllConnections(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<messages/>"))
	}))
	defer ts.Close()

	ctx := newTestContext()
	conn, err := ctx.NewConnection("conn-1", ts.URL, func([]message.Message) {})
	if err != nil {
		t.Fatalf("NewConnection: %v", err)
	}
	if err := conn.Start(nil, func(error) {}); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := ctx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, ok := ctx.Lookup("conn-1"); ok {
		t.Fatal("expected connection to be unregistered after Context.Close")
	}
}
