package config

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	log "github.com/sirupsen/logrus"

	"github.com/bobg/dh/engine"
	_ "github.com/bobg/dh/hosts/mem"
	_ "github.com/bobg/dh/ledger/file"
	_ "github.com/bobg/dh/store/lru"
	_ "github.com/bobg/dh/store/mem"
)

func TestLoadMissing(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "nonexistent.json"))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(Default(), c); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
	if c.Policy() != engine.AllMatches {
		t.Errorf("got policy %s, want %s", c.Policy(), engine.AllMatches)
	}
	if time.Duration(c.Engine.ReadTimeout) != 25*time.Second {
		t.Errorf("got read timeout %s", time.Duration(c.Engine.ReadTimeout))
	}
}

func TestLoad(t *testing.T) {
	var (
		ctx = context.Background()
		dir = t.TempDir()
	)

	conf := `{
  "store": {"type": "lru", "size": 100, "nested": {"type": "mem"}},
  "hosts": {"type": "mem"},
  "ledger": {"type": "file", "root": "` + filepath.ToSlash(dir) + `"},
  "engine": {"workers": 3, "policy": "first", "skip_stored": true, "connect_timeout": "2s", "read_timeout": 7},
  "peers": ["a.txt", "b.txt"],
  "log_level": "debug"
}`
	filename := filepath.Join(dir, "dhconf.json")
	if err := os.WriteFile(filename, []byte(conf), 0644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(filename)
	if err != nil {
		t.Fatal(err)
	}

	want := Engine{
		Workers:        3,
		Policy:         "first",
		SkipStored:     true,
		ConnectTimeout: Duration(2 * time.Second),
		ReadTimeout:    Duration(7 * time.Second),
	}
	if diff := cmp.Diff(want, c.Engine); diff != "" {
		t.Errorf("engine config mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a.txt", "b.txt"}, c.Peers); diff != "" {
		t.Errorf("peers mismatch (-want +got):\n%s", diff)
	}
	if c.Files != "files.txt" {
		t.Errorf("got files %s, want the default", c.Files)
	}
	if c.Policy() != engine.FirstMatch {
		t.Errorf("got policy %s", c.Policy())
	}
	if c.Level() != log.DebugLevel {
		t.Errorf("got level %s", c.Level())
	}
	if _, ok := c.Store["size"].(json.Number); !ok {
		t.Errorf("store size decoded as %T, want json.Number", c.Store["size"])
	}

	if _, err := c.NewStore(ctx); err != nil {
		t.Error(err)
	}
	if _, err := c.NewHostStore(ctx); err != nil {
		t.Error(err)
	}
	if _, err := c.NewLedger(ctx); err != nil {
		t.Error(err)
	}
}

func TestLoadErrors(t *testing.T) {
	cases := map[string]string{
		"bad json":   `{`,
		"bad policy": `{"engine": {"policy": "most"}}`,
		"bad level":  `{"log_level": "loud"}`,
		"bad time":   `{"engine": {"read_timeout": "soon"}}`,
	}
	for name, conf := range cases {
		t.Run(name, func(t *testing.T) {
			filename := filepath.Join(t.TempDir(), "dhconf.json")
			if err := os.WriteFile(filename, []byte(conf), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(filename); err == nil {
				t.Error("got no error")
			}
		})
	}
}

func TestUnknownType(t *testing.T) {
	c := Default()
	c.Store = map[string]interface{}{"type": "floppy"}
	if _, err := c.NewStore(context.Background()); err == nil {
		t.Error("got no error for unknown store type")
	}
	c.Hosts = map[string]interface{}{}
	if _, err := c.NewHostStore(context.Background()); err == nil {
		t.Error("got no error for missing host store type")
	}
}
