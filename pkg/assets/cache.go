package assets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-redis/redis/v9"
)

// Store holds pack archives keyed by name.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte) error
}

type FSStore string

var Missing = fmt.Errorf("asset missing")

func (f FSStore) getPath(key string) string {
	return filepath.Join(string(f), key)
}

func (f FSStore) Get(ctx context.Context, key string) ([]byte, error) {
	target := f.getPath(key)

	if !FileExists(target) {
		return nil, Missing
	}

	return os.ReadFile(target)
}

func (f FSStore) Set(ctx context.Context, key string, data []byte) error {
	target := f.getPath(key)
	err := os.MkdirAll(filepath.Dir(target), 0755)
	if err != nil {
		return err
	}
	return WriteBytes(data, target)
}

const (
	PACK_KEY = "packs-%s"
)

type RedisStore struct {
	client *redis.Client
	// Zero means keys never expire.
	expiry time.Duration
}

func NewRedisStore(client *redis.Client, expiry time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		expiry: expiry,
	}
}

func (r *RedisStore) Get(ctx context.Context, id string) ([]byte, error) {
	key := fmt.Sprintf(PACK_KEY, id)
	data, err := r.client.Get(ctx, key).Bytes()

	if err == redis.Nil {
		return nil, Missing
	}

	if err != nil {
		return nil, err
	}

	return data, nil
}

func (r *RedisStore) Set(ctx context.Context, id string, data []byte) error {
	key := fmt.Sprintf(PACK_KEY, id)
	return r.client.Set(ctx, key, data, r.expiry).Err()
}

var _ Store = (*FSStore)(nil)
var _ Store = (*RedisStore)(nil)
