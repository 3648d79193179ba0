package gcs

import (
	"context"
	"os"
	"testing"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/bobg/dh/testutil"
)

const (
	credsVar  = "DH_GCS_TESTING_CREDS"
	bucketVar = "DH_GCS_TESTING_BUCKET"
)

func TestStore(t *testing.T) {
	var (
		creds  = os.Getenv(credsVar)
		bucket = os.Getenv(bucketVar)
	)
	if creds == "" || bucket == "" {
		t.Skipf("to run %s, set %s to a credentials file and %s to a scratch bucket", t.Name(), credsVar, bucketVar)
	}

	ctx := context.Background()
	c, err := storage.NewClient(ctx, option.WithCredentialsFile(creds))
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	s := New(c.Bucket(bucket))
	testutil.Refuse(ctx, t, s)
	testutil.ConcurrentPut(ctx, t, s)
}
