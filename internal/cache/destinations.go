package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Destinations caches code to destination mappings. Links never change once
// stored, so entries need no invalidation; the TTL only bounds memory.
type Destinations struct {
	rdb     redis.Cmdable
	ttl     time.Duration
	prefix  string
	metrics *Metrics
}

func NewDestinations(rdb redis.Cmdable, prefix string, ttl time.Duration, metrics *Metrics) *Destinations {
	return &Destinations{
		rdb:     rdb,
		ttl:     ttl,
		prefix:  prefix,
		metrics: metrics,
	}
}

func (d *Destinations) key(code string) string {
	return d.prefix + ":" + code
}

// GetDestination returns the cached destination. GETEX slides the expiry so
// frequently visited codes stay cached.
func (d *Destinations) GetDestination(ctx context.Context, code string) (string, bool, error) {
	val, err := d.rdb.GetEx(ctx, d.key(code), d.ttl).Result()
	switch {
	case err == nil:
		d.metrics.hit(d.prefix)
		return val, true, nil
	case errors.Is(err, redis.Nil):
		d.metrics.miss(d.prefix)
		return "", false, nil
	default:
		d.metrics.failed(d.prefix)
		return "", false, err
	}
}

// SetDestination stores destination for code.
func (d *Destinations) SetDestination(ctx context.Context, code, destination string) error {
	if err := d.rdb.Set(ctx, d.key(code), destination, d.ttl).Err(); err != nil {
		d.metrics.failed(d.prefix)
		return err
	}
	return nil
}
