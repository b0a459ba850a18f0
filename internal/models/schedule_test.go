package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeOfDay(t *testing.T) {
	cases := []struct {
		raw  string
		want time.Duration
	}{
		{"08:00:00", 8 * time.Hour},
		{"08:15", 8*time.Hour + 15*time.Minute},
		{"23:59:59", 23*time.Hour + 59*time.Minute + 59*time.Second},
		{"00:00", 0},
	}
	for _, tc := range cases {
		got, err := ParseTimeOfDay(tc.raw)
		require.NoError(t, err, tc.raw)
		assert.Equal(t, tc.want, got, tc.raw)
	}
}

func TestParseTimeOfDayRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"", "abc", "25:00", "08:61", "-1:00"} {
		_, err := ParseTimeOfDay(raw)
		assert.Error(t, err, raw)
	}
}

func TestFormatTimeOfDay(t *testing.T) {
	assert.Equal(t, "08:05", FormatTimeOfDay(8*time.Hour+5*time.Minute))
	assert.Equal(t, "00:00", FormatTimeOfDay(0))
}

func TestDayOfWeekForMatchesCalendar(t *testing.T) {
	assert.Equal(t, DaySunday, DayOfWeekFor(time.Sunday))
	assert.Equal(t, DayMonday, DayOfWeekFor(time.Monday))
	assert.Equal(t, DaySaturday, DayOfWeekFor(time.Saturday))
}

func TestDayOfWeekValidity(t *testing.T) {
	assert.True(t, DayOfWeek("Wednesday").Valid())
	assert.False(t, DayOfWeek("wednesday").Valid())
	assert.Equal(t, -1, DayOfWeek("Funday").Index())
}
