package utils

import "strings"

const cacheKeyPrefix = "events:v1:"

// ActiveEventsCacheKey is the key of the public list of active events.
func ActiveEventsCacheKey() string {
	return cacheKeyPrefix + "active"
}

func EventCacheKey(id string) string {
	return cacheKeyPrefix + "id=" + strings.ToLower(strings.TrimSpace(id))
}
