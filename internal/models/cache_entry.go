package models

import (
	"fmt"
	"strings"
	"time"
)

// CacheEntry is a stored search result.
// Timestamp is Unix milliseconds, matching the persisted store format.
type CacheEntry struct {
	Key       string         `json:"-"`
	Data      []DetailRecord `json:"data"`
	Timestamp int64          `json:"timestamp"`
	Query     string         `json:"query"`
	Count     int            `json:"count"`
}

// CacheKey builds the normalized cache key for a query and result count
func CacheKey(query string, count int) string {
	return fmt.Sprintf("%s:%d", strings.ToLower(strings.TrimSpace(query)), count)
}

// StoredAt returns the entry timestamp as a time.Time
func (e *CacheEntry) StoredAt() time.Time {
	return time.UnixMilli(e.Timestamp)
}

// IsExpired reports whether the entry is older than ttl at now
func (e *CacheEntry) IsExpired(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.StoredAt()) > ttl
}

// CacheEntrySummary describes one entry without its payload
type CacheEntrySummary struct {
	Key      string    `json:"key"`
	Query    string    `json:"query"`
	Count    int       `json:"count"`
	StoredAt time.Time `json:"stored_at"`
}

// CacheStats reports cache size and age bounds
type CacheStats struct {
	Total  int                `json:"total"`
	Oldest *CacheEntrySummary `json:"oldest,omitempty"`
	Newest *CacheEntrySummary `json:"newest,omitempty"`
}
