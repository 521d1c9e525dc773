package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenBackend(t *testing.T) {
	t.Parallel()

	for _, name := range []string{BackendBolt, BackendSQLite} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			b, err := OpenBackend(name, t.TempDir(), "simulated")
			require.NoError(t, err)
			defer b.Close()

			ctx := context.Background()
			require.NoError(t, b.BatchInsert(ctx, storedRange(1, 0, 3)))
			n, err := b.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, 3, n)

			require.NoError(t, b.PutInt("pagesTotal", 4))
			v, err := b.GetInt("pagesTotal", 1)
			require.NoError(t, err)
			assert.Equal(t, 4, v)
		})
	}

	_, err := OpenBackend("redis", t.TempDir(), "")
	assert.Error(t, err)
}
