package scan

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheHitWithinTTL(t *testing.T) {
	c := NewCache(5 * time.Minute)
	qs := []Question{{Text: "First Name", FieldType: FieldText, Locator: "#fn"}}

	c.Put("https://jobs.example.com/apply", qs)

	got, ok := c.Get("https://jobs.example.com/apply")
	require.True(t, ok)
	assert.Equal(t, qs, got)

	_, ok = c.Get("https://jobs.example.com/other")
	assert.False(t, ok)
}

func TestCacheExpiry(t *testing.T) {
	now := time.Now()
	c := NewCache(5 * time.Minute)
	c.now = func() time.Time { return now }

	c.Put("url", []Question{{Text: "Email"}})

	now = now.Add(4 * time.Minute)
	_, ok := c.Get("url")
	assert.True(t, ok, "entry fresh before TTL")

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("url")
	assert.False(t, ok, "entry expired after TTL")
}

func TestCacheDisabledWithZeroTTL(t *testing.T) {
	c := NewCache(0)
	c.Put("url", []Question{{Text: "Email"}})
	_, ok := c.Get("url")
	assert.False(t, ok)
}

func TestCacheInvalidate(t *testing.T) {
	c := NewCache(time.Minute)
	c.Put("url", []Question{{Text: "Email"}})
	c.Invalidate("url")
	_, ok := c.Get("url")
	assert.False(t, ok)
}

func TestCacheReturnsCopy(t *testing.T) {
	c := NewCache(time.Minute)
	c.Put("url", []Question{{Text: "Email"}})

	got, ok := c.Get("url")
	require.True(t, ok)
	got[0].Text = "mutated"

	again, ok := c.Get("url")
	require.True(t, ok)
	assert.Equal(t, "Email", again[0].Text, "callers must not share backing arrays")
}

func TestNilCacheIsSafe(t *testing.T) {
	var c *Cache
	c.Put("url", nil)
	_, ok := c.Get("url")
	assert.False(t, ok)
	c.Invalidate("url")
}
