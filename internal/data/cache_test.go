package data_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"shotclassifier/internal/data"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingObserver struct {
	hits, misses int
}

func (o *countingObserver) CacheHit()  { o.hits++ }
func (o *countingObserver) CacheMiss() { o.misses++ }

func writeCSV(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestCache(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "shots.csv")
	writeCSV(t, path, "a,b\n1,x\n2,y\n")

	obs := &countingObserver{}
	cache := data.NewCache(data.DefaultCSVOptions(), obs)

	first, err := cache.Get(ctx, path)
	require.NoError(t, err)
	second, err := cache.Get(ctx, path)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, obs.hits)
	assert.Equal(t, 1, obs.misses)

	fp, ok := cache.Fingerprint(path)
	require.True(t, ok)
	assert.Equal(t, int64(len("a,b\n1,x\n2,y\n")), fp.Size)
	assert.False(t, cache.Stale(path))

	t.Run("reloads when the file changes", func(t *testing.T) {
		writeCSV(t, path, "a,b\n1,x\n2,y\n3,z\n")
		later := time.Now().Add(time.Minute)
		require.NoError(t, os.Chtimes(path, later, later))
		assert.True(t, cache.Stale(path))

		reloaded, err := cache.Get(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, 3, reloaded.Len())
		assert.Equal(t, 2, obs.misses)
	})

	t.Run("invalidate forces a reload", func(t *testing.T) {
		cache.Invalidate(path)
		_, ok := cache.Fingerprint(path)
		assert.False(t, ok)

		_, err := cache.Get(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, 3, obs.misses)
	})

	t.Run("missing files are not cached", func(t *testing.T) {
		_, err := cache.Get(ctx, filepath.Join(t.TempDir(), "absent.csv"))
		assert.Error(t, err)
	})
}
