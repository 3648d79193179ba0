package main

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/bobg/dh/server"
)

func (c maincmd) serve(ctx context.Context, addr string, noLedger bool, _ []string) error {
	s, err := c.conf.NewStore(ctx)
	if err != nil {
		return err
	}
	srv := &server.Server{Store: s}
	if !noLedger {
		if srv.Ledger, err = c.conf.NewLedger(ctx); err != nil {
			return err
		}
	}

	e := server.New(srv)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			log.Errorf("shutting down: %s", err)
		}
	}()

	log.Infof("listening on %s", addr)
	err = e.Start(addr)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
