package timezone

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDayBounds(t *testing.T) {
	cases := []struct {
		now         time.Time
		expectStart time.Time
		expectEnd   time.Time
	}{
		{
			now:         time.Date(2025, time.March, 14, 9, 26, 53, 0, Location),
			expectStart: time.Date(2025, time.March, 14, 0, 0, 0, 0, Location),
			expectEnd:   time.Date(2025, time.March, 14, 23, 59, 59, 0, Location),
		},
		{
			now:         time.Date(2025, time.December, 31, 23, 59, 59, 0, Location),
			expectStart: time.Date(2025, time.December, 31, 0, 0, 0, 0, Location),
			expectEnd:   time.Date(2025, time.December, 31, 23, 59, 59, 0, Location),
		},
	}

	for _, test := range cases {
		require.Equal(t, test.expectStart, StartOfDay(test.now))
		require.Equal(t, test.expectEnd, EndOfDay(test.now))
	}
}

func TestStartOfDayConvertsZone(t *testing.T) {
	// 2025-03-14 18:00 UTC is already 2025-03-15 in Beijing
	utc := time.Date(2025, time.March, 14, 18, 0, 0, 0, time.UTC)
	require.Equal(
		t,
		time.Date(2025, time.March, 15, 0, 0, 0, 0, Location),
		StartOfDay(utc),
	)
}
