// Package config reads the dh configuration file.
//
// The file is JSON.
// Its store, hosts, and ledger sections each name a backend type
// and carry that backend's parameters:
//
//	{
//	  "store":  {"type": "file", "root": "/var/dh"},
//	  "hosts":  {"type": "sqlite3", "file": "/var/dh/hosts.db"},
//	  "ledger": {"type": "file", "root": "/var/dh"},
//	  "engine": {"workers": 10, "policy": "all", "connect_timeout": "5s", "read_timeout": "25s"},
//	  "peers":  ["peers.txt", "https://example.com/peers.txt"],
//	  "files":  "files.txt",
//	  "log_level": "info"
//	}
//
// Omitted sections take their defaults.
package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/bobg/dh"
	"github.com/bobg/dh/engine"
	"github.com/bobg/dh/hosts"
	"github.com/bobg/dh/ledger"
	"github.com/bobg/dh/locator"
	"github.com/bobg/dh/store"
)

// DefaultFilename is the config file used when none is named.
const DefaultFilename = "dhconf.json"

// Config is the decoded configuration file.
type Config struct {
	Store    map[string]interface{} `json:"store"`
	Hosts    map[string]interface{} `json:"hosts"`
	Ledger   map[string]interface{} `json:"ledger"`
	Engine   Engine                 `json:"engine"`
	Peers    []string               `json:"peers"`
	Files    string                 `json:"files"`
	LogLevel string                 `json:"log_level"`
}

// Engine holds the parameters of the replication engine and its network client.
type Engine struct {
	Workers        int      `json:"workers"`
	Policy         string   `json:"policy"`
	SkipStored     bool     `json:"skip_stored"`
	ConnectTimeout Duration `json:"connect_timeout"`
	ReadTimeout    Duration `json:"read_timeout"`
	MaxSize        int64    `json:"max_size"`
}

// Duration is a time.Duration that decodes from a JSON string like "5s"
// or from a number of seconds.
type Duration time.Duration

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch v := v.(type) {
	case float64:
		*d = Duration(v * float64(time.Second))
		return nil
	case string:
		dur, err := time.ParseDuration(v)
		if err != nil {
			return errors.Wrapf(err, "parsing duration %q", v)
		}
		*d = Duration(dur)
		return nil
	}
	return fmt.Errorf("cannot parse %s as a duration", string(b))
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Default produces the configuration used when there is no config file.
// Everything lives in files beneath the current directory.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Store == nil {
		c.Store = map[string]interface{}{"type": "file", "root": "."}
	}
	if c.Hosts == nil {
		c.Hosts = map[string]interface{}{"type": "file", "root": "."}
	}
	if c.Ledger == nil {
		c.Ledger = map[string]interface{}{"type": "file", "root": "."}
	}
	if c.Engine.Workers <= 0 {
		c.Engine.Workers = engine.DefaultWorkers
	}
	if c.Engine.Policy == "" {
		c.Engine.Policy = engine.AllMatches.String()
	}
	if c.Engine.ConnectTimeout <= 0 {
		c.Engine.ConnectTimeout = Duration(locator.DefaultConnectTimeout)
	}
	if c.Engine.ReadTimeout <= 0 {
		c.Engine.ReadTimeout = Duration(locator.DefaultReadTimeout)
	}
	if len(c.Peers) == 0 {
		c.Peers = []string{"peers.txt"}
	}
	if c.Files == "" {
		c.Files = "files.txt"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Load reads the config file at filename.
// A nonexistent file yields Default().
func Load(filename string) (*Config, error) {
	f, err := os.Open(filename)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "opening config file %s", filename)
	}
	defer f.Close()

	var c Config
	dec := json.NewDecoder(f)
	dec.UseNumber()
	if err = dec.Decode(&c); err != nil {
		return nil, errors.Wrapf(err, "decoding config file %s", filename)
	}
	c.applyDefaults()

	if _, err = engine.ParsePolicy(c.Engine.Policy); err != nil {
		return nil, errors.Wrapf(err, "in config file %s", filename)
	}
	if _, err = log.ParseLevel(c.LogLevel); err != nil {
		return nil, errors.Wrapf(err, "in config file %s", filename)
	}
	return &c, nil
}

func sectionType(section string, conf map[string]interface{}) (string, error) {
	typ, ok := conf["type"].(string)
	if !ok {
		return "", fmt.Errorf("%s section missing `type` parameter", section)
	}
	return typ, nil
}

// NewStore creates the content store described by the store section.
func (c *Config) NewStore(ctx context.Context) (dh.Store, error) {
	typ, err := sectionType("store", c.Store)
	if err != nil {
		return nil, err
	}
	s, err := store.Create(ctx, typ, c.Store)
	return s, errors.Wrapf(err, "creating %s-type store", typ)
}

// NewHostStore creates the host store described by the hosts section.
func (c *Config) NewHostStore(ctx context.Context) (dh.HostStore, error) {
	typ, err := sectionType("hosts", c.Hosts)
	if err != nil {
		return nil, err
	}
	s, err := hosts.Create(ctx, typ, c.Hosts)
	return s, errors.Wrapf(err, "creating %s-type host store", typ)
}

// NewLedger creates a ledger backed by the store described by the ledger section.
func (c *Config) NewLedger(ctx context.Context) (*ledger.Ledger, error) {
	typ, err := sectionType("ledger", c.Ledger)
	if err != nil {
		return nil, err
	}
	s, err := ledger.Create(ctx, typ, c.Ledger)
	if err != nil {
		return nil, errors.Wrapf(err, "creating %s-type ledger store", typ)
	}
	return ledger.New(s), nil
}

// NewLocator creates a network client with the configured timeouts and size limit.
func (c *Config) NewLocator() *locator.Client {
	cl := locator.New(time.Duration(c.Engine.ConnectTimeout), time.Duration(c.Engine.ReadTimeout))
	cl.MaxSize = c.Engine.MaxSize
	return cl
}

// Policy is the configured engine policy.
func (c *Config) Policy() engine.Policy {
	p, _ := engine.ParsePolicy(c.Engine.Policy)
	return p
}

// Level is the configured log level.
func (c *Config) Level() log.Level {
	l, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return l
}
