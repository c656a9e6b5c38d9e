package cache

import (
	"testing"
	"time"

	"mcptoolbox/internal/model"
)

func TestAuditCache(t *testing.T) {
	c := New(time.Hour)
	audit := &model.PageAudit{URL: "https://example.com"}

	if _, ok := c.Get("https://example.com", false); ok {
		t.Fatal("Get() on empty cache reported a hit")
	}

	c.Set("https://example.com", false, audit)

	got, ok := c.Get("https://example.com", false)
	if !ok || got != audit {
		t.Errorf("Get() = %v, %v, want cached audit", got, ok)
	}
	if _, ok := c.Get("https://example.com", true); ok {
		t.Error("Get() with other link-check mode should miss")
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestAuditCacheExpiry(t *testing.T) {
	c := New(20 * time.Millisecond)
	c.Set("https://example.com", true, &model.PageAudit{})

	time.Sleep(50 * time.Millisecond)

	if _, ok := c.Get("https://example.com", true); ok {
		t.Error("Get() returned an expired entry")
	}
}

func TestAuditCacheDisabled(t *testing.T) {
	tests := []struct {
		name  string
		cache *AuditCache
	}{
		{name: "Zero ttl", cache: New(0)},
		{name: "Nil cache", cache: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cache.Set("https://example.com", false, &model.PageAudit{})
			if _, ok := tt.cache.Get("https://example.com", false); ok {
				t.Error("Get() hit on a disabled cache")
			}
			if tt.cache.Len() != 0 {
				t.Errorf("Len() = %d, want 0", tt.cache.Len())
			}
		})
	}
}
