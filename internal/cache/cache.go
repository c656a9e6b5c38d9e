package cache

import (
	"strconv"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"mcptoolbox/internal/model"
)

const cleanupInterval = 15 * time.Minute

// AuditCache holds page audits keyed by URL and link-check mode.
type AuditCache struct {
	store *gocache.Cache
}

// New returns a cache whose entries expire after ttl. A non-positive ttl
// disables caching.
func New(ttl time.Duration) *AuditCache {
	if ttl <= 0 {
		return &AuditCache{}
	}
	return &AuditCache{store: gocache.New(ttl, cleanupInterval)}
}

func key(url string, checkLinks bool) string {
	return strconv.FormatBool(checkLinks) + "|" + url
}

func (c *AuditCache) Get(url string, checkLinks bool) (*model.PageAudit, bool) {
	if c == nil || c.store == nil {
		return nil, false
	}
	v, ok := c.store.Get(key(url, checkLinks))
	if !ok {
		return nil, false
	}
	audit, ok := v.(*model.PageAudit)
	return audit, ok
}

func (c *AuditCache) Set(url string, checkLinks bool, audit *model.PageAudit) {
	if c == nil || c.store == nil {
		return
	}
	c.store.SetDefault(key(url, checkLinks), audit)
}

// Len reports the number of cached audits, including expired ones not yet evicted.
func (c *AuditCache) Len() int {
	if c == nil || c.store == nil {
		return 0
	}
	return c.store.ItemCount()
}
