package locator

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bobg/dh"
)

func serve(t *testing.T, content map[string][]byte) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		data, ok := content[req.URL.Path]
		if !ok {
			http.NotFound(w, req)
			return
		}
		if req.Method == http.MethodHead {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.Write(data)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestURL(t *testing.T) {
	id := dh.ID{Hash: dh.HashString("hello"), Ext: "txt"}
	h := id.Hash.String()
	want := "http://peer.example/data/" + h + "/" + h + ".txt"
	for _, peer := range []string{"http://peer.example", "http://peer.example/", "http://peer.example//"} {
		if got := URL(peer, id); got != want {
			t.Errorf("URL(%s): got %s, want %s", peer, got, want)
		}
	}
}

func TestExistsFetch(t *testing.T) {
	var (
		ctx     = context.Background()
		data    = []byte(strings.Repeat("decentralized ", 2000))
		id      = dh.ID{Hash: dh.HashBytes(data), Ext: "txt"}
		missing = dh.ID{Hash: dh.HashString("missing"), Ext: "txt"}
		h       = id.Hash.String()
		srv     = serve(t, map[string][]byte{"/data/" + h + "/" + h + ".txt": data})
		c       = New(0, 0)
	)

	if !c.Exists(ctx, srv.URL, id) {
		t.Error("Exists reports false for present content")
	}
	if c.Exists(ctx, srv.URL, missing) {
		t.Error("Exists reports true for absent content")
	}
	if c.Exists(ctx, "http://127.0.0.1:1", id) {
		t.Error("Exists reports true for unreachable peer")
	}

	got, err := c.Fetch(ctx, srv.URL, id)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(data) {
		t.Errorf("got %d bytes, want %d", len(got), len(data))
	}

	_, err = c.Fetch(ctx, srv.URL, missing)
	if !errors.Is(err, dh.ErrNetwork) {
		t.Errorf("got error %v, want ErrNetwork", err)
	}
}

func TestFetchMaxSize(t *testing.T) {
	var (
		data = []byte(strings.Repeat("x", 100))
		id   = dh.ID{Hash: dh.HashBytes(data), Ext: "bin"}
		h    = id.Hash.String()
		srv  = serve(t, map[string][]byte{"/data/" + h + "/" + h + ".bin": data})
		c    = New(0, 0)
	)
	c.MaxSize = 50
	c.ChunkSize = 16

	_, err := c.Fetch(context.Background(), srv.URL, id)
	if !errors.Is(err, dh.ErrNetwork) {
		t.Errorf("got error %v, want ErrNetwork", err)
	}
}

func TestFetchTimeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		select {
		case <-block:
		case <-req.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(block)

	c := New(time.Second, 100*time.Millisecond)
	id := dh.ID{Hash: dh.HashString("slow"), Ext: "txt"}

	start := time.Now()
	_, err := c.Fetch(context.Background(), srv.URL, id)
	if !errors.Is(err, dh.ErrNetwork) {
		t.Errorf("got error %v, want ErrNetwork", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("fetch took %s", elapsed)
	}
}

func TestFetchCanceled(t *testing.T) {
	var (
		data = []byte("content")
		id   = dh.ID{Hash: dh.HashBytes(data), Ext: "txt"}
		h    = id.Hash.String()
		srv  = serve(t, map[string][]byte{"/data/" + h + "/" + h + ".txt": data})
		c    = New(0, 0)
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, err := c.Fetch(ctx, srv.URL, id)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got error %v, want context.Canceled", err)
	}
	if got != nil {
		t.Errorf("got %d bytes from canceled fetch", len(got))
	}
}

func TestPing(t *testing.T) {
	srv := serve(t, nil)
	c := New(0, 0)
	if err := c.Ping(context.Background(), srv.URL); err != nil {
		t.Errorf("pinging live server: %s", err)
	}
	if err := c.Ping(context.Background(), "http://127.0.0.1:1"); !errors.Is(err, dh.ErrNetwork) {
		t.Errorf("got error %v, want ErrNetwork", err)
	}
}
