package mysql

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/hupe1980/diskstore/blobstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ blobstore.BlobStore = (*Store)(nil)

func TestIntegration_MySQLStore(t *testing.T) {
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		t.Skip("Skipping MySQL integration test: MYSQL_DSN not set")
	}

	ctx := context.Background()
	table := fmt.Sprintf("diskstore_test_%d", time.Now().UnixNano())
	store, err := Open(ctx, dsn, table)
	require.NoError(t, err)
	defer func() {
		_, _ = store.DB().ExecContext(ctx, "DROP TABLE "+table)
		_ = store.Close()
	}()

	require.NoError(t, store.Put(ctx, "app.db", []byte("v1")))
	require.NoError(t, store.Put(ctx, "app.db", []byte("v2")))

	data, err := store.Get(ctx, "app.db")
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"app.db"}, names)

	require.NoError(t, store.Delete(ctx, "app.db"))
	_, err = store.Get(ctx, "app.db")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}
