package cache

import (
	"fmt"
	"time"
)

// Cache key constants
const (
	UserEventsKey        = "events:user:%d"
	ReconstructedKey     = "events:reconstructed:%d"
	UserEventsPatternKey = "events:*:%d"
)

// Cache expiration times
const (
	ShortExpiration  = 5 * time.Minute
	MediumExpiration = 30 * time.Minute
)

func UserEventsCacheKey(userID int64) string {
	return fmt.Sprintf(UserEventsKey, userID)
}

func ReconstructedBalanceCacheKey(userID int64) string {
	return fmt.Sprintf(ReconstructedKey, userID)
}

func UserEventsPattern(userID int64) string {
	return fmt.Sprintf(UserEventsPatternKey, userID)
}
