package models

import (
	"time"
)

// CacheEntry represents a cached value stored in the database key space.
// Rows with a zero ExpiresAt never expire; the dataset cache judges staleness
// from its own capture timestamp instead.
type CacheEntry struct {
	Key       string    `gorm:"primaryKey;size:256"`
	Value     []byte    `gorm:"type:blob"`
	ExpiresAt time.Time `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
