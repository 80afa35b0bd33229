package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewULID(t *testing.T) {
	prev := NewULID()
	assert.Len(t, prev, 26)
	assert.True(t, IsULID(prev))

	for i := 0; i < 100; i++ {
		next := NewULID()
		assert.Greater(t, next, prev)
		prev = next
	}
}

func TestIsULID(t *testing.T) {
	assert.False(t, IsULID(""))
	assert.False(t, IsULID("not-a-ulid"))
	assert.False(t, IsULID("01ARZ3NDEKTSV4RRFFQ69G5FAVX"))
	assert.True(t, IsULID("01ARZ3NDEKTSV4RRFFQ69G5FAV"))
}
