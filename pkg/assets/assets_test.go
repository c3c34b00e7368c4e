package assets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-redis/redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFSStore(t *testing.T) {
	ctx := context.Background()
	store := FSStore(t.TempDir())

	_, err := store.Get(ctx, "p1.zip")
	assert.Equal(t, Missing, err)

	err = store.Set(ctx, "nested/p1.zip", []byte("data"))
	require.NoError(t, err)

	data, err := store.Get(ctx, "nested/p1.zip")
	require.NoError(t, err)
	assert.Equal(t, []byte("data"), data)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	require.NoError(t, client.Ping(ctx).Err())

	store := NewRedisStore(client, time.Minute)
	key := "test-" + filepath.Base(t.TempDir())
	defer client.Del(ctx, fmt.Sprintf(PACK_KEY, key))

	_, err := store.Get(ctx, key)
	assert.Equal(t, Missing, err)

	err = store.Set(ctx, key, []byte("data"))
	require.NoError(t, err)

	data, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("data"), data)

	ttl, err := client.TTL(ctx, fmt.Sprintf(PACK_KEY, key)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}

func TestArchive(t *testing.T) {
	data, err := PackArchive([]ArchiveFile{
		{Path: "b1.bundle", Data: []byte("one")},
		{Path: "sub/b2.bundle", Data: []byte("two!")},
	})
	require.NoError(t, err)

	dir := t.TempDir()
	written, err := ExtractArchive(data, dir)
	require.NoError(t, err)
	assert.Equal(t, int64(7), written)

	contents, err := os.ReadFile(filepath.Join(dir, "sub", "b2.bundle"))
	require.NoError(t, err)
	assert.Equal(t, "two!", string(contents))
	assert.True(t, FileExists(filepath.Join(dir, "b1.bundle")))
}

func TestArchiveEscape(t *testing.T) {
	data, err := PackArchive([]ArchiveFile{
		{Path: "../escape.bundle", Data: []byte("nope")},
	})
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "pack")
	_, err = ExtractArchive(data, dir)
	assert.Error(t, err)
	assert.False(t, FileExists(filepath.Join(filepath.Dir(dir), "escape.bundle")))
}

func TestArchiveGarbage(t *testing.T) {
	_, err := ExtractArchive([]byte("not a zip"), t.TempDir())
	assert.Error(t, err)
}
