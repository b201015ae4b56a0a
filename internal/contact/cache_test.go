package contact

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/brooks-street/outreach-pipeline/internal/model"
)

func TestMemoryCache_RoundTrip(t *testing.T) {
	c := NewMemoryCache(time.Hour)
	c.Set("123 main st", &model.ResolvedContact{Score: 8, Verified: true})

	got, ok := c.Get("123 main st")
	assert.True(t, ok)
	assert.Equal(t, 8, got.Score)

	_, ok = c.Get("456 other st")
	assert.False(t, ok)
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache(time.Hour)
	now := time.Now()
	c.now = func() time.Time { return now }

	c.Set("123 main st", &model.ResolvedContact{Score: 5})

	now = now.Add(30 * time.Minute)
	_, ok := c.Get("123 main st")
	assert.True(t, ok)

	now = now.Add(time.Hour)
	_, ok = c.Get("123 main st")
	assert.False(t, ok)
}

func TestMemoryCache_CopiesOnGet(t *testing.T) {
	c := NewMemoryCache(time.Hour)
	c.Set("k", &model.ResolvedContact{Score: 8})

	got, _ := c.Get("k")
	got.Score = 1

	again, _ := c.Get("k")
	assert.Equal(t, 8, again.Score)
}

func TestMemoryCache_NilSetIgnored(t *testing.T) {
	c := NewMemoryCache(time.Hour)
	c.Set("k", nil)
	_, ok := c.Get("k")
	assert.False(t, ok)
}
