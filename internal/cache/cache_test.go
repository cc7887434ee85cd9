package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache_SetGet(t *testing.T) {
	c := NewMemory()
	ctx := context.Background()

	c.Set(ctx, "k", []byte("v"), time.Minute)
	got, ok := c.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, []byte("v"), got)

	_, ok = c.Get(ctx, "missing")
	assert.False(t, ok)
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemory()
	ctx := context.Background()

	c.Set(ctx, "k", []byte("v"), time.Nanosecond)
	time.Sleep(5 * time.Millisecond)

	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestMemoryCache_ZeroTTLNeverExpires(t *testing.T) {
	c := NewMemory()
	ctx := context.Background()

	c.Set(ctx, "k", []byte("v"), 0)
	_, ok := c.Get(ctx, "k")
	assert.True(t, ok)
}

func TestKey_Deterministic(t *testing.T) {
	a := Key("elexon", "demand/actual/total", map[string]string{"from": "2024-01-01", "to": "2024-01-02"})
	b := Key("elexon", "demand/actual/total", map[string]string{"to": "2024-01-02", "from": "2024-01-01"})
	assert.Equal(t, a, b)
	assert.Equal(t, "elexon:demand/actual/total:from=2024-01-01:to=2024-01-02", a)
}

func TestTTLFor(t *testing.T) {
	assert.Equal(t, 30*time.Minute, TTLFor("prices"))
	assert.Equal(t, 5*time.Minute, TTLFor("unknown-category"))
}

func TestJSONRoundTrip(t *testing.T) {
	c := NewMemory()
	ctx := context.Background()

	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	SetJSON(ctx, c, "k", payload{Name: "wind", Count: 3}, time.Minute)

	var out payload
	require.True(t, GetJSON(ctx, c, "k", &out))
	assert.Equal(t, payload{Name: "wind", Count: 3}, out)

	assert.False(t, GetJSON(ctx, c, "missing", &out))
}
