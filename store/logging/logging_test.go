package logging

import (
	"context"
	"strings"
	"testing"

	log "github.com/sirupsen/logrus"

	"github.com/bobg/dh"
	"github.com/bobg/dh/store/mem"
)

func TestLogging(t *testing.T) {
	var (
		ctx    = context.Background()
		buf    = new(strings.Builder)
		logger = log.New()
		data   = []byte("logged")
		id     = dh.ID{Hash: dh.HashBytes(data), Ext: "txt"}
	)
	logger.Out = buf
	logger.Level = log.DebugLevel

	s := New(mem.New(), logger)
	if _, err := s.Put(ctx, id, data); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(ctx, id); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	for _, want := range []string{"Put 6 bytes, added=true", "Get: 6 bytes", id.Hash.String()} {
		if !strings.Contains(out, want) {
			t.Errorf("log output lacks %q:\n%s", want, out)
		}
	}
}
