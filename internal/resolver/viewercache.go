package resolver

import (
	"strings"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// ObservedResponse is a document response seen by the client for a page,
// typically the main-frame response behind the built-in PDF viewer.
type ObservedResponse struct {
	URL                string
	ContentType        string
	ContentDisposition string
	At                 time.Time
}

// ViewerCache keeps the most recent document response per page context.
// Entries are bounded in number and expire after a TTL.
type ViewerCache struct {
	cache *ristretto.Cache[string, ObservedResponse]
	ttl   time.Duration
}

// NewViewerCache creates a cache holding at most maxEntries page contexts.
func NewViewerCache(maxEntries int64, ttl time.Duration) (*ViewerCache, error) {
	if maxEntries <= 0 {
		maxEntries = 256
	}
	cache, err := ristretto.NewCache(&ristretto.Config[string, ObservedResponse]{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
		// Each entry costs 1, so MaxCost counts page contexts.
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, err
	}
	return &ViewerCache{cache: cache, ttl: ttl}, nil
}

// Record stores resp for pageContext when it carries a PDF content type.
// It reports whether the response was recorded.
func (c *ViewerCache) Record(pageContext string, resp ObservedResponse) bool {
	if pageContext == "" || resp.URL == "" {
		return false
	}
	if !strings.Contains(strings.ToLower(resp.ContentType), "application/pdf") {
		return false
	}
	if resp.At.IsZero() {
		resp.At = time.Now()
	}
	ok := c.cache.SetWithTTL(pageContext, resp, 1, c.ttl)
	c.cache.Wait()
	return ok
}

// Latest returns the most recent document response for pageContext.
func (c *ViewerCache) Latest(pageContext string) (ObservedResponse, bool) {
	return c.cache.Get(pageContext)
}

// Close stops the cache's background goroutines.
func (c *ViewerCache) Close() {
	c.cache.Close()
}
