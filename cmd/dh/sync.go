package main

import (
	"bufio"
	"context"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/bobg/dh/engine"
	"github.com/bobg/dh/peers"
)

func (c maincmd) sync(ctx context.Context, peerSrcs, files, policy string, workers int, skipStored bool, csvFile string, watch bool, _ []string) error {
	p, err := engine.ParsePolicy(policy)
	if err != nil {
		return err
	}

	sources := c.conf.Peers
	if peerSrcs != "" {
		sources = strings.Split(peerSrcs, ",")
	}

	s, err := c.conf.NewStore(ctx)
	if err != nil {
		return err
	}
	hs, err := c.conf.NewHostStore(ctx)
	if err != nil {
		return err
	}

	e := &engine.Engine{
		Store:      s,
		Registry:   &peers.Registry{Hosts: hs},
		Locator:    c.conf.NewLocator(),
		Policy:     p,
		Workers:    workers,
		SkipStored: skipStored,
	}

	runOnce := func() error {
		list, errs := peers.Load(ctx, c.conf.NewLocator(), sources...)
		for _, err := range errs {
			if errors.Is(err, peers.ErrNoSources) {
				return err
			}
		}
		e.Registry.Peers = list

		ids, err := readLines(files)
		if err != nil {
			return err
		}

		rep, err := e.Run(ctx, ids)
		if rep != nil {
			if err := rep.Summary(os.Stdout); err != nil {
				return errors.Wrap(err, "writing summary")
			}
			if csvFile != "" {
				if err := writeCSV(csvFile, rep); err != nil {
					return err
				}
			}
		}
		return err
	}

	if err = runOnce(); err != nil {
		return err
	}
	if !watch {
		return nil
	}
	return watchAndRun(ctx, append([]string{files}, sources...), runOnce)
}

func readLines(filename string) ([]string, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", filename)
	}
	defer f.Close()

	var result []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		result = append(result, sc.Text())
	}
	return result, errors.Wrapf(sc.Err(), "reading %s", filename)
}

func writeCSV(filename string, rep *engine.Report) error {
	f, err := os.Create(filename)
	if err != nil {
		return errors.Wrapf(err, "creating %s", filename)
	}
	defer f.Close()

	if err = rep.WriteCSV(f); err != nil {
		return errors.Wrapf(err, "writing %s", filename)
	}
	return errors.Wrapf(f.Close(), "closing %s", filename)
}

// watchAndRun calls run each time one of the local files in paths changes,
// until ctx is canceled.
// Bursts of events within a second are coalesced.
func watchAndRun(ctx context.Context, paths []string, run func() error) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "creating watcher")
	}
	defer w.Close()

	for _, p := range paths {
		if strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://") {
			continue
		}
		if err := w.Add(p); err != nil {
			log.Warnf("not watching %s: %s", p, err)
		}
	}

	var (
		timer   *time.Timer
		timerCh <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			log.Debugf("change: %s", ev)
			if timer == nil {
				timer = time.NewTimer(time.Second)
				timerCh = timer.C
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warnf("watching: %s", err)

		case <-timerCh:
			timer, timerCh = nil, nil
			if err := run(); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				log.Error(err)
			}
		}
	}
}
