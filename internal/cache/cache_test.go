package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSetGet(t *testing.T) {
	c := New[string, int]()
	c.Set("a", 1, 0)

	v, ok := c.Get("a")
	require.True(t, ok)
	require.Equal(t, 1, v)

	_, ok = c.Get("missing")
	require.False(t, ok)
}

func TestExpiration(t *testing.T) {
	base := time.Now()
	now = func() time.Time { return base }
	defer func() { now = time.Now }()

	c := New[string, string]()
	c.Set("k", "v", time.Minute)

	_, ok := c.Get("k")
	require.True(t, ok)

	now = func() time.Time { return base.Add(2 * time.Minute) }
	_, ok = c.Get("k")
	require.False(t, ok)

	require.Equal(t, 0, c.Len())
	c.PurgeExpired()
	_, ok = c.Get("k")
	require.False(t, ok)
}

func TestDelete(t *testing.T) {
	c := New[int, int]()
	c.Set(1, 10, 0)
	c.Delete(1)
	_, ok := c.Get(1)
	require.False(t, ok)
}
