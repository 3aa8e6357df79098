package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shiptrack/tracking-system/internal/core/domain"
)

const labelTTL = 24 * time.Hour

// LabelCache caches reverse-geocode labels in Redis so repeated reports from
// a slowly moving driver do not hammer the geocoding API.
//
// Coordinates are rounded to 4 decimal places (≈11 m) to form the key, which
// is far finer than the geofence radius: two reports sharing a key resolve to
// the same label for any practical purpose.
// Key format: geocode:<lat>:<lng>
type LabelCache struct {
	client *redis.Client
}

// NewLabelCache creates a LabelCache wrapping the given Redis client.
func NewLabelCache(client *redis.Client) *LabelCache {
	return &LabelCache{client: client}
}

// Get returns the cached label for the position, or "" on a miss.
func (c *LabelCache) Get(ctx context.Context, pos domain.Coordinates) (string, error) {
	label, err := c.client.Get(ctx, c.key(pos)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("label cache get: %w", err)
	}
	return label, nil
}

// Set stores the label for the position (expires after labelTTL).
func (c *LabelCache) Set(ctx context.Context, pos domain.Coordinates, label string) error {
	return c.client.Set(ctx, c.key(pos), label, labelTTL).Err()
}

func (c *LabelCache) key(pos domain.Coordinates) string {
	return fmt.Sprintf("geocode:%.4f:%.4f", pos.Lat, pos.Lng)
}
