package util

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	require.True(t, ok)
	assert.Equal(t, s, got.UTC().Format(time.RFC3339))
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	require.True(t, ok)
	assert.Equal(t, ts, got.Unix())

	got, ok = ParseTime(strconv.FormatInt(ts*1000, 10))
	require.True(t, ok)
	assert.Equal(t, ts, got.Unix(), "milliseconds are detected")
}

func TestBucketStart(t *testing.T) {
	assert.Equal(t, int64(1_700_000_100), BucketStart(1_700_000_123, 5*time.Minute))
	assert.Equal(t, int64(1_699_999_200), BucketStart(1_700_000_123, time.Hour))
	assert.Equal(t, int64(42), BucketStart(42, 0))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, SplitList(" a, ,b ,"))
	assert.Empty(t, SplitList(""))
}
