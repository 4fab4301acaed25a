package publisher

import (
	"testing"
	"time"

	"bidwatch/lib/timezone"

	"github.com/stretchr/testify/require"
)

func at(hour, minute int) time.Time {
	return time.Date(2025, 3, 14, hour, minute, 0, 0, timezone.Location)
}

func TestHourRangeContains(t *testing.T) {
	daytime := HourRange{From: 8, To: 22}
	require.True(t, daytime.contains(8))
	require.True(t, daytime.contains(21))
	require.False(t, daytime.contains(22))
	require.False(t, daytime.contains(7))

	overnight := HourRange{From: 22, To: 6}
	require.True(t, overnight.contains(23))
	require.True(t, overnight.contains(0))
	require.True(t, overnight.contains(5))
	require.False(t, overnight.contains(6))
	require.False(t, overnight.contains(12))
}

func TestRuleAllows(t *testing.T) {
	rule := Rule{Hours: []HourRange{{From: 8, To: 12}, {From: 14, To: 22}}}
	require.True(t, rule.Allows(at(9, 30)))
	require.True(t, rule.Allows(at(14, 0)))
	require.False(t, rule.Allows(at(12, 30)))
	require.False(t, rule.Allows(at(3, 0)))

	// no windows means always
	require.True(t, Rule{}.Allows(at(3, 0)))
}

func TestRuleInterval(t *testing.T) {
	require.Equal(t, 30*time.Minute, Rule{}.Interval())
	require.Equal(t, 10*time.Minute, Rule{EveryMinutes: 10}.Interval())
}

func TestRuleNext(t *testing.T) {
	rule := Rule{Hours: []HourRange{{From: 8, To: 22}}, EveryMinutes: 30}

	// inside the window, the next run is one interval later
	require.Equal(t, at(10, 30), rule.Next(at(10, 0)))

	// the last tick of the day rolls over to the next window
	next := rule.Next(at(21, 45))
	require.Equal(t, 8, next.In(timezone.Location).Hour())
	require.Equal(t, 15, next.In(timezone.Location).Day())

	// without windows the interval always applies
	require.Equal(t, at(3, 30), Rule{EveryMinutes: 30}.Next(at(3, 0)))
}
