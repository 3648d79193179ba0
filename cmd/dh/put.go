package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/bobg/dh"
)

// DefaultExt is the extension given to files that have none.
const DefaultExt = "bin"

func (c maincmd) put(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: dh put FILE...")
	}

	s, err := c.conf.NewStore(ctx)
	if err != nil {
		return err
	}

	for _, filename := range args {
		data, err := os.ReadFile(filename)
		if err != nil {
			return errors.Wrapf(err, "reading %s", filename)
		}
		id := dh.ID{Hash: dh.HashBytes(data), Ext: extOf(filename)}
		added, err := s.Put(ctx, id, data)
		if err != nil {
			return errors.Wrapf(err, "storing %s", filename)
		}
		fmt.Printf("%s %s (added: %v)\n", id, filename, added)
	}
	return nil
}

// extOf is the extension of filename without its leading dot.
// Only the last extension counts,
// since an identifier splits at its first dot.
func extOf(filename string) string {
	ext := strings.TrimPrefix(filepath.Ext(filename), ".")
	if ext == "" {
		return DefaultExt
	}
	return strings.ToLower(ext)
}
