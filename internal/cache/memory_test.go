package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cached struct {
	Title string `json:"title"`
}

func TestMemoryGetSetExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return now }

	require.NoError(t, m.Set(ctx, CardKey("c1"), cached{Title: "Dragon"}, 5*time.Minute))

	var got cached
	ok, err := m.Get(ctx, CardKey("c1"), &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Dragon", got.Title)

	now = now.Add(6 * time.Minute)
	ok, err = m.Get(ctx, CardKey("c1"), &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryDeleteAndMiss(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Set(ctx, "k", cached{Title: "x"}, 0))
	require.NoError(t, m.Delete(ctx, "k"))

	var got cached
	ok, err := m.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryCounters(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	n, err := m.Counter(ctx, CardViewsKey("c1"))
	require.NoError(t, err)
	assert.Zero(t, n)

	for i := 0; i < 3; i++ {
		_, err = m.Incr(ctx, CardViewsKey("c1"))
		require.NoError(t, err)
	}

	n, err = m.Counter(ctx, CardViewsKey("c1"))
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestNewWithoutURLUsesMemory(t *testing.T) {
	c, err := New("")
	require.NoError(t, err)
	_, ok := c.(*Memory)
	assert.True(t, ok)
}
