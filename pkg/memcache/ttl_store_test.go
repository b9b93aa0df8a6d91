package memcache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestStore_GetAfterSet(t *testing.T) {
	s := NewStore[string](time.Minute, 10)

	s.Set("a", "1")
	v, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, "1", v)

	_, ok = s.Get("missing")
	assert.False(t, ok)
}

func TestStore_EvictsOldestWhenFull(t *testing.T) {
	s := NewStore[int](time.Minute, 2)

	s.Set("a", 1)
	s.Set("b", 2)
	s.Set("a", 10) // refresh moves a behind b
	s.Set("c", 3)

	_, ok := s.Get("b")
	assert.False(t, ok, "b was the oldest entry")
	v, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, 10, v)
	assert.Equal(t, 2, s.Len())
}

func TestStore_ExpiresEntries(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	s := NewStore[string](time.Hour, 10, WithClock(clock.now))

	s.Set("a", "1")
	clock.advance(30 * time.Minute)
	s.Set("b", "2")

	clock.advance(31 * time.Minute)
	_, ok := s.Get("a")
	assert.False(t, ok)
	_, ok = s.Get("b")
	assert.True(t, ok)
}

func TestStore_Sweep(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	s := NewStore[string](time.Minute, 10, WithClock(clock.now))

	s.Set("a", "1")
	s.Set("b", "2")
	clock.advance(2 * time.Minute)
	s.Set("c", "3")

	assert.Equal(t, 2, s.Sweep())
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, 0, s.Sweep())
}

func TestStore_Delete(t *testing.T) {
	s := NewStore[string](time.Minute, 10)
	s.Set("a", "1")
	s.Delete("a")
	s.Delete("never-set")

	_, ok := s.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
}

func TestStore_CloseIsIdempotent(t *testing.T) {
	s := NewStore[string](time.Minute, 10)
	s.StartJanitor(time.Millisecond)
	s.Close()
	s.Close()
}
