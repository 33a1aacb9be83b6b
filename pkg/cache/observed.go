package cache

import (
	"context"
	"time"

	"github.com/matzehuels/dmlopt/pkg/observability"
)

type observed struct {
	Cache
}

// Observed wraps c so that lookups and stores are reported to
// [observability.Cache]. The key type is the kind segment of the key.
func Observed(c Cache) Cache {
	if c == nil {
		return nil
	}
	return observed{Cache: c}
}

func (o observed) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, hit, err := o.Cache.Get(ctx, key)
	if err == nil {
		if hit {
			observability.Cache().OnCacheHit(ctx, keyType(key))
		} else {
			observability.Cache().OnCacheMiss(ctx, keyType(key))
		}
	}
	return data, hit, err
}

func (o observed) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	err := o.Cache.Set(ctx, key, data, ttl)
	if err == nil {
		observability.Cache().OnCacheSet(ctx, keyType(key), len(data))
	}
	return err
}
