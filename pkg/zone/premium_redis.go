package zone

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// RedisPremiums implements PremiumIndex backed by Redis, for deployments
// where fee quotes are served from a separate process than the ledger.
// A miss or a Redis error degrades to the zone record, so entries carry
// no TTL and no consistency machinery.
type RedisPremiums struct {
	client *redis.Client
	prefix string
}

func NewRedisPremiums(client *redis.Client, prefix string) *RedisPremiums {
	if prefix == "" {
		prefix = "quietgrid:premium"
	}
	return &RedisPremiums{client: client, prefix: prefix}
}

func (p *RedisPremiums) key(zoneID uint64) string {
	return fmt.Sprintf("%s:%d", p.prefix, zoneID)
}

func (p *RedisPremiums) Set(ctx context.Context, zoneID, premium uint64) error {
	return p.client.Set(ctx, p.key(zoneID), premium, 0).Err()
}

func (p *RedisPremiums) Get(ctx context.Context, zoneID uint64) (uint64, bool, error) {
	val, err := p.client.Get(ctx, p.key(zoneID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, err
	}
	premium, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return 0, false, err
	}
	return premium, true, nil
}
