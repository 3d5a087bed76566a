package service

import (
	"time"
)

// GetExpiresAt converts an expires_in value in seconds into an absolute time.
// Non-positive values mean the token does not expire.
func GetExpiresAt(now time.Time, expiresIn int64) time.Time {
	if expiresIn <= 0 {
		return time.Time{}
	}
	return now.Add(time.Duration(expiresIn) * time.Second)
}
