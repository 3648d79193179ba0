package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/bobg/dh"
	"github.com/bobg/dh/ledger"
	ledgerfile "github.com/bobg/dh/ledger/file"
	"github.com/bobg/dh/locator"
	"github.com/bobg/dh/store/mem"
	"github.com/bobg/dh/testutil"
)

func newTestServer(t *testing.T) (*httptest.Server, dh.Store) {
	s := mem.New()
	e := New(&Server{
		Store:  s,
		Ledger: ledger.New(ledgerfile.New(t.TempDir())),
	})
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return srv, s
}

func TestData(t *testing.T) {
	var (
		ctx      = context.Background()
		srv, s   = newTestServer(t)
		data     = []byte("served content")
		id       = dh.ID{Hash: dh.HashBytes(data), Ext: "txt"}
		otherExt = dh.ID{Hash: id.Hash, Ext: "bin"}
		c        = locator.New(0, 0)
	)

	if c.Exists(ctx, srv.URL, id) {
		t.Error("content exists before it is stored")
	}
	if _, err := s.Put(ctx, id, data); err != nil {
		t.Fatal(err)
	}
	if !c.Exists(ctx, srv.URL, id) {
		t.Error("stored content does not exist")
	}
	if c.Exists(ctx, srv.URL, otherExt) {
		t.Error("content exists under the wrong extension")
	}

	got, err := c.Fetch(ctx, srv.URL, id)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(data) {
		t.Errorf("got %q, want %q", got, data)
	}

	if err := c.Ping(ctx, srv.URL); err != nil {
		t.Error(err)
	}

	resp, err := http.Get(srv.URL + "/data/" + dh.HashString("x").String() + "/" + id.Filename())
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("got status %d for mismatched path, want 404", resp.StatusCode)
	}
}

func TestNotary(t *testing.T) {
	srv, _ := newTestServer(t)
	fh := dh.HashString("notarized file").String()

	post := func(address, filehash string) *http.Response {
		resp, err := http.PostForm(srv.URL+"/notary", url.Values{"address": {address}, "filehash": {filehash}})
		if err != nil {
			t.Fatal(err)
		}
		return resp
	}

	resp := post(testutil.TestAddress, fh)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("got status %d, want 201", resp.StatusCode)
	}
	var b ledger.Block
	err := json.NewDecoder(resp.Body).Decode(&b)
	resp.Body.Close()
	if err != nil {
		t.Fatal(err)
	}
	if b.FileHash != fh || b.PreviousHash != ledger.Genesis {
		t.Errorf("unexpected block %+v", b)
	}

	resp = post(testutil.TestAddress, fh)
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("got status %d for duplicate, want 409", resp.StatusCode)
	}

	resp = post("bogus", fh)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("got status %d for bad address, want 400", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/blocks/" + b.BlockHash)
	if err != nil {
		t.Fatal(err)
	}
	var got ledger.Block
	err = json.NewDecoder(resp.Body).Decode(&got)
	resp.Body.Close()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(b, got); diff != "" {
		t.Errorf("block mismatch (-want +got):\n%s", diff)
	}

	resp, err = http.Get(srv.URL + "/owners/" + strings.ToUpper(fh))
	if err != nil {
		t.Fatal(err)
	}
	var owner OwnerResponse
	err = json.NewDecoder(resp.Body).Decode(&owner)
	resp.Body.Close()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(OwnerResponse{FileHash: fh, Address: testutil.TestAddress}, owner); diff != "" {
		t.Errorf("owner mismatch (-want +got):\n%s", diff)
	}

	resp, err = http.Get(srv.URL + "/owners/" + dh.HashString("unclaimed").String())
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("got status %d for unclaimed hash, want 404", resp.StatusCode)
	}
}

func TestNoLedger(t *testing.T) {
	srv := httptest.NewServer(New(&Server{Store: mem.New()}))
	defer srv.Close()

	resp, err := http.PostForm(srv.URL+"/notary", url.Values{})
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode == http.StatusCreated {
		t.Error("notarization accepted without a ledger")
	}
}
