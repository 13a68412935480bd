package cachemem

import (
	"testing"
	"time"

	"assetguard/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_SetGet(t *testing.T) {
	c := New(time.Minute)
	_, ok := c.Get("k")
	assert.False(t, ok)

	threats := []string{"phishing"}
	c.Set("k", domain.RiskSignal{Score: 40, ThreatTypes: threats})
	threats[0] = "mutated"

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, 40, got.Score)
	assert.Equal(t, []string{"phishing"}, got.ThreatTypes)
	assert.Equal(t, 1, c.Len())
}

func TestCache_Expiry(t *testing.T) {
	c := New(20 * time.Millisecond)
	c.Set("k", domain.RiskSignal{Score: 90})
	time.Sleep(40 * time.Millisecond)
	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestCache_NilSafe(t *testing.T) {
	var c *Cache
	c.Set("k", domain.RiskSignal{})
	_, ok := c.Get("k")
	assert.False(t, ok)
}
