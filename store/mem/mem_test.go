package mem

import (
	"context"
	"testing"

	"github.com/bobg/dh/testutil"
)

func TestStore(t *testing.T) {
	ctx := context.Background()
	testutil.ReadWrite(ctx, t, New())
	testutil.Refuse(ctx, t, New())
	testutil.ConcurrentPut(ctx, t, New())
}
