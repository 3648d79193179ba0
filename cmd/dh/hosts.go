package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/bobg/dh"
	"github.com/bobg/dh/peers"
)

func (c maincmd) hosts(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: dh hosts HASH")
	}

	h, err := dh.HashFromHex(args[0])
	if err != nil {
		return err
	}
	hs, err := c.conf.NewHostStore(ctx)
	if err != nil {
		return err
	}
	reg := &peers.Registry{Hosts: hs}
	list, err := reg.HostsFor(ctx, h)
	if err != nil {
		return err
	}
	for _, p := range list {
		fmt.Println(p)
	}
	return nil
}

func (c maincmd) peers(ctx context.Context, workers int, args []string) error {
	sources := c.conf.Peers
	if len(args) > 0 {
		sources = args
	}
	list, errs := peers.Load(ctx, c.conf.NewLocator(), sources...)
	for _, err := range errs {
		if errors.Is(err, peers.ErrNoSources) {
			return err
		}
	}

	var (
		cl     = c.conf.NewLocator()
		status = make([]string, len(list))
		mu     sync.Mutex
		online int
		g      errgroup.Group
	)
	g.SetLimit(workers)
	for i, p := range list {
		g.Go(func() error {
			st := "online"
			if err := cl.Ping(ctx, p); err != nil {
				st = "offline"
			} else {
				mu.Lock()
				online++
				mu.Unlock()
			}
			status[i] = st
			return nil
		})
	}
	_ = g.Wait()

	for i, p := range list {
		fmt.Printf("%-8s %s\n", status[i], p)
	}
	fmt.Printf("%d of %d peers online\n", online, len(list))
	return ctx.Err()
}
