package mem

import (
	"context"
	"testing"

	"github.com/bobg/dh/testutil"
)

func TestHosts(t *testing.T) {
	ctx := context.Background()
	testutil.Hosts(ctx, t, New())
	testutil.ConcurrentHosts(ctx, t, New())
}
