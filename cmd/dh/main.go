// Command dh fetches, verifies, and stores hash-addressed content from a list of peers,
// and keeps a notary ledger of ownership claims.
//
// Usage:
//
//	dh [-config FILE] [-v] SUBCOMMAND [ARGS]
//
// Subcommands:
//
//	sync      scan peers for the identifiers in a list, storing what verifies
//	put       add local files to the store
//	hosts     list the confirmed hosts of a hash
//	peers     check which peers are online
//	notarize  claim ownership of a file hash
//	chain     print (and optionally verify) the notary chain
//	serve     serve the store and ledger over HTTP
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"

	"github.com/bobg/subcmd"
	log "github.com/sirupsen/logrus"

	"github.com/bobg/dh/config"
	_ "github.com/bobg/dh/hosts/file"
	_ "github.com/bobg/dh/hosts/mem"
	_ "github.com/bobg/dh/hosts/pg"
	_ "github.com/bobg/dh/hosts/redis"
	_ "github.com/bobg/dh/hosts/sqlite3"
	_ "github.com/bobg/dh/ledger/file"
	_ "github.com/bobg/dh/ledger/sqlite3"
	_ "github.com/bobg/dh/store/file"
	_ "github.com/bobg/dh/store/gcs"
	_ "github.com/bobg/dh/store/logging"
	_ "github.com/bobg/dh/store/lru"
	_ "github.com/bobg/dh/store/mem"
)

type maincmd struct {
	conf *config.Config
}

func main() {
	var (
		confFile = flag.String("config", config.DefaultFilename, "path to config file")
		verbose  = flag.Bool("v", false, "verbose (debug) logging")
	)
	flag.Parse()

	conf, err := config.Load(*confFile)
	if err != nil {
		log.Fatal(err)
	}
	log.SetLevel(conf.Level())
	if *verbose {
		log.SetLevel(log.DebugLevel)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		sig := <-sigCh
		log.Infof("got signal %s", sig)
		cancel()
	}()

	err = subcmd.Run(ctx, maincmd{conf: conf}, flag.Args())
	if err != nil {
		log.Fatal(err)
	}
}

func (c maincmd) Subcmds() subcmd.Map {
	return subcmd.Commands(
		"chain", c.chain, subcmd.Params(
			"verify", subcmd.Bool, false, "verify chain integrity",
		),
		"hosts", c.hosts, nil,
		"notarize", c.notarize, nil,
		"peers", c.peers, subcmd.Params(
			"workers", subcmd.Int, c.conf.Engine.Workers, "maximum concurrent pings",
		),
		"put", c.put, nil,
		"serve", c.serve, subcmd.Params(
			"addr", subcmd.String, ":8080", "listen address",
			"no-ledger", subcmd.Bool, false, "do not serve the notary",
		),
		"sync", c.sync, subcmd.Params(
			"peers", subcmd.String, "", "comma-separated peer list sources (files, dirs, URLs; default from config)",
			"files", subcmd.String, c.conf.Files, "file listing <hash>.<ext> identifiers, one per line",
			"policy", subcmd.String, c.conf.Engine.Policy, "all or first",
			"workers", subcmd.Int, c.conf.Engine.Workers, "maximum concurrent peer checks",
			"skip-stored", subcmd.Bool, c.conf.Engine.SkipStored, "skip identifiers already in the store",
			"csv", subcmd.String, "", "write per-check results to this CSV file",
			"watch", subcmd.Bool, false, "rerun whenever the identifier or peer lists change",
		),
	)
}
