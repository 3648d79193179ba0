package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
)

func (c maincmd) notarize(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: dh notarize ADDRESS FILEHASH")
	}

	l, err := c.conf.NewLedger(ctx)
	if err != nil {
		return err
	}
	b, err := l.Submit(ctx, args[0], args[1])
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(b)
}

func (c maincmd) chain(ctx context.Context, verify bool, _ []string) error {
	l, err := c.conf.NewLedger(ctx)
	if err != nil {
		return err
	}
	blocks, err := l.Chain(ctx)
	if err != nil {
		return err
	}
	for i, b := range blocks {
		fmt.Printf("%d %s %s %s %s\n", i+1, b.BlockHash, time.Unix(b.Timestamp, 0).UTC().Format(time.RFC3339), b.FileHash, b.Address)
	}

	if verify {
		if err := l.Verify(ctx); err != nil {
			return err
		}
		fmt.Printf("%d blocks verified\n", len(blocks))
	}
	return nil
}
