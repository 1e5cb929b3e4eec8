package models

import "time"

// UsageStats counts successful upstream calls per user.
type UsageStats struct {
	UserID     string
	TotalCalls int64
	LastUsedAt *time.Time
}
