package utils

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestIsUUID(t *testing.T) {
	assert.True(t, IsUUID(uuid.NewString()))
	assert.False(t, IsUUID(""))
	assert.False(t, IsUUID("ev1"))
	assert.False(t, IsUUID("urn:uuid:"+uuid.NewString()))
}

func TestCacheKeys(t *testing.T) {
	assert.Equal(t, "events:v1:active", ActiveEventsCacheKey())
	assert.Equal(t, EventCacheKey("ABC "), EventCacheKey("abc"))
	assert.NotEqual(t, ActiveEventsCacheKey(), EventCacheKey("active"))
}
