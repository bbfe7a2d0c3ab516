// internal/accounts/store_redis.go
package accounts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const redisListTTL = 90 * 24 * time.Hour

// RedisStore keeps one device's remembered-account list under a device-
// scoped key. Entries expire after long inactivity, mirroring browser
// storage lifetime semantics.
type RedisStore struct {
	client   *redis.Client
	deviceID string
}

func NewRedisStore(client *redis.Client, deviceID string) *RedisStore {
	return &RedisStore{client: client, deviceID: deviceID}
}

func (r *RedisStore) key() string {
	return fmt.Sprintf("accounts:device:%s", r.deviceID)
}

func (r *RedisStore) Load() ([]Identity, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	data, err := r.client.Get(ctx, r.key()).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load account list: %w", err)
	}

	var list []Identity
	if err := json.Unmarshal([]byte(data), &list); err != nil {
		return nil, nil
	}
	return list, nil
}

func (r *RedisStore) Save(list []Identity) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("failed to encode account list: %w", err)
	}
	return r.client.Set(ctx, r.key(), data, redisListTTL).Err()
}
