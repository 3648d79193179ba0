package redis

import (
	"context"
	"os"
	"testing"

	goredis "github.com/redis/go-redis/v9"

	"github.com/bobg/dh/testutil"
)

const addrVar = "DH_REDIS_TESTING_ADDR"

func TestHosts(t *testing.T) {
	addr := os.Getenv(addrVar)
	if addr == "" {
		t.Skipf("to run %s, set %s to the address of a scratch Redis server", t.Name(), addrVar)
	}

	var (
		ctx = context.Background()
		rdb = goredis.NewClient(&goredis.Options{Addr: addr})
	)
	defer rdb.Close()

	if err := rdb.FlushDB(ctx).Err(); err != nil {
		t.Fatal(err)
	}
	testutil.Hosts(ctx, t, New(rdb, "dhtest:"))
	testutil.ConcurrentHosts(ctx, t, New(rdb, "dhtest2:"))
}
