package vault

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/sony/gobreaker"
)

func newServedDir(t *testing.T) (*Dir, *httptest.Server) {
	t.Helper()
	d, err := NewDir(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r := mux.NewRouter()
	RegisterRoutes(r, d)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return d, srv
}

func TestClientRoundTrip(t *testing.T) {
	d, srv := newServedDir(t)
	c := NewClient(srv.URL+"/", ClientOptions{})
	ctx := context.Background()

	entries, err := c.List(ctx)
	if err != nil {
		t.Fatalf("List() on empty vault error = %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty listing, got %v", entries)
	}

	path := filepath.Join(d.Root(), "a.md")
	if err := c.Write(ctx, path, "# A"); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	entries, err = c.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 1 || entries[0].Path != path || entries[0].Content != "# A" {
		t.Errorf("List() = %v", entries)
	}

	if err := c.Delete(ctx, path); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	entries, _ = c.List(ctx)
	if len(entries) != 0 {
		t.Errorf("note survived Delete(): %v", entries)
	}
}

func TestClientReportsRejectedWrite(t *testing.T) {
	_, srv := newServedDir(t)
	c := NewClient(srv.URL, ClientOptions{})

	if err := c.Write(context.Background(), "../outside.md", "x"); err == nil {
		t.Error("Write() outside the vault should fail")
	}
}

func TestClientBreakerOpens(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, ClientOptions{MaxFailures: 2, BreakerTimeout: time.Minute})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := c.List(ctx); err == nil {
			t.Fatal("List() against failing server succeeded")
		}
	}

	_, err := c.List(ctx)
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("third List() error = %v, want open breaker", err)
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("server saw %d calls, the open breaker should short-circuit", n)
	}
}
