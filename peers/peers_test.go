package peers

import (
	"context"
	stderrs "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/bobg/dh"
	"github.com/bobg/dh/hosts/mem"
	"github.com/bobg/dh/locator"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
		return path
	}

	list := write("servers.txt", "# my peers\nhttp://a.example/\n\n  http://b.example  \nhttp://a.example\n")
	write("servers.d/1.txt", "http://c.example\n")
	write("servers.d/2.txt", "http://b.example\nhttp://d.example//\n")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		fmt.Fprintln(w, "http://e.example")
		fmt.Fprintln(w, "http://a.example")
	}))
	defer srv.Close()

	got, errs := Load(context.Background(), nil, list, filepath.Join(dir, "servers.d"), filepath.Join(dir, "missing.txt"), srv.URL)

	want := []string{"http://a.example", "http://b.example", "http://c.example", "http://d.example", "http://e.example"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	if len(errs) != 1 {
		t.Errorf("got errors %v, want exactly one", errs)
	}
}

func TestLoadNothing(t *testing.T) {
	got, errs := Load(context.Background(), nil, filepath.Join(t.TempDir(), "missing.txt"))
	if len(got) != 0 {
		t.Errorf("got peers %v, want none", got)
	}
	var found bool
	for _, err := range errs {
		if stderrs.Is(err, ErrNoSources) {
			found = true
		}
	}
	if !found {
		t.Errorf("got errors %v, want ErrNoSources among them", errs)
	}
}

func TestLoadStalled(t *testing.T) {
	done := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		select {
		case <-req.Context().Done():
		case <-done:
		}
	}))
	defer srv.Close()
	defer close(done)

	var (
		cl      = locator.New(100*time.Millisecond, 200*time.Millisecond)
		errs    []error
		got     []string
		results = make(chan struct{})
	)
	go func() {
		got, errs = Load(context.Background(), cl, srv.URL+"/peers.txt")
		close(results)
	}()

	select {
	case <-results:
	case <-time.After(10 * time.Second):
		t.Fatal("Load did not time out on a stalled peer list")
	}

	if len(got) != 0 {
		t.Errorf("got peers %v, want none", got)
	}
	var network, none bool
	for _, err := range errs {
		network = network || stderrs.Is(err, dh.ErrNetwork)
		none = none || stderrs.Is(err, ErrNoSources)
	}
	if !network || !none {
		t.Errorf("got errors %v, want ErrNetwork and ErrNoSources", errs)
	}
}

func TestLoadDirBadFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "1.txt"), []byte("http://a.example\n"), 0644); err != nil {
		t.Fatal(err)
	}
	// A line longer than the scanner's limit makes the file unreadable.
	long := "http://" + strings.Repeat("x", 128*1024) + "\n"
	if err := os.WriteFile(filepath.Join(dir, "2.txt"), []byte(long), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "3.txt"), []byte("http://b.example\n"), 0644); err != nil {
		t.Fatal(err)
	}

	got, errs := Load(context.Background(), nil, dir)
	if diff := cmp.Diff([]string{"http://a.example", "http://b.example"}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	if len(errs) != 1 {
		t.Errorf("got errors %v, want exactly one", errs)
	}
	for _, err := range errs {
		if stderrs.Is(err, ErrNoSources) {
			t.Errorf("got ErrNoSources with readable files present")
		}
	}
}

func TestRegistry(t *testing.T) {
	var (
		ctx = context.Background()
		r   = &Registry{Peers: []string{"http://a.example"}, Hosts: mem.New()}
		h   = dh.HashString("x")
	)

	got, err := r.HostsFor(ctx, h)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("got %v, want no hosts", got)
	}

	for i := 0; i < 2; i++ {
		added, err := r.RecordHost(ctx, h, "http://a.example")
		if err != nil {
			t.Fatal(err)
		}
		if added != (i == 0) {
			t.Errorf("call %d: got added=%v", i, added)
		}
	}

	got, err = r.HostsFor(ctx, h)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"http://a.example"}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}
