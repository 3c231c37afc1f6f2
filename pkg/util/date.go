package util

import (
	"strconv"
	"time"
)

// ParseTime tries RFC3339, RFC3339Nano, then unix seconds or milliseconds.
// Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		if ts > 1e11 {
			return time.UnixMilli(ts), true
		}
		return time.Unix(ts, 0), true
	}
	return time.Time{}, false
}

// BucketStart truncates unix seconds ts to the start of a bucket of length d.
func BucketStart(ts int64, d time.Duration) int64 {
	step := int64(d / time.Second)
	if step <= 0 {
		return ts
	}
	return ts - ts%step
}
