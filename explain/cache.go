package explain

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// DefaultCacheTTL is how long an explanation is reused for.
const DefaultCacheTTL = time.Hour

// Cached remembers successful explanations so repeated requests for the same
// response and context don't go back to the model.
type Cached struct {
	next  Explainer
	cache *ttlcache.Cache[string, string]
}

// NewCached wraps next with a cache. Call Close to stop the expiry loop.
func NewCached(next Explainer, ttl time.Duration) *Cached {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}

	c := &Cached{
		next:  next,
		cache: ttlcache.New[string, string](ttlcache.WithTTL[string, string](ttl)),
	}
	go c.cache.Start()

	return c
}

// Explain returns the cached explanation for the response and detail,
// asking the wrapped Explainer on a miss. Failures are not cached.
func (c *Cached) Explain(ctx context.Context, rawHex, detail string) (string, error) {
	key := rawHex + "\x00" + detail
	if item := c.cache.Get(key); item != nil {
		return item.Value(), nil
	}

	text, err := c.next.Explain(ctx, rawHex, detail)
	if err != nil {
		return "", err
	}

	c.cache.Set(key, text, ttlcache.DefaultTTL)
	return text, nil
}

// Len returns the number of cached explanations.
func (c *Cached) Len() int {
	return c.cache.Len()
}

// Close stops the cache's expiry loop.
func (c *Cached) Close() {
	c.cache.Stop()
}
