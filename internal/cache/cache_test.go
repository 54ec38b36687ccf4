package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCache(t *testing.T) {
	c := New()
	assert.Nil(t, c.Get())
	assert.True(t, c.UpdatedAt().IsZero())

	c.Set([]byte(`{"periods":[]}`))
	assert.Equal(t, []byte(`{"periods":[]}`), c.Get())
	assert.False(t, c.UpdatedAt().IsZero())

	// Get returns a copy; mutating it must not touch the cache
	got := c.Get()
	got[0] = 'X'
	assert.Equal(t, byte('{'), c.Get()[0])

	c.Invalidate()
	assert.Nil(t, c.Get())
}
