package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartOfWeekIsMonday(t *testing.T) {
	sunday := time.Date(2024, 3, 31, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 3, 25, 0, 0, 0, 0, time.UTC), StartOfWeek(sunday, time.UTC))

	monday := time.Date(2024, 3, 25, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, monday, StartOfWeek(monday, time.UTC))
}

func TestDayKeyUsesLocation(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	late := time.Date(2024, 3, 26, 2, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-03-26", DayKey(late, time.UTC))
	assert.Equal(t, "2024-03-25", DayKey(late, loc))
}

func TestDaysBetweenAcrossDST(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	before := time.Date(2024, 3, 9, 12, 0, 0, 0, loc)
	after := time.Date(2024, 3, 11, 12, 0, 0, 0, loc)
	assert.Equal(t, 2, DaysBetween(before, after, loc))
	assert.Equal(t, -2, DaysBetween(after, before, loc))
}

func TestParseDayAndWeekday(t *testing.T) {
	d, err := ParseDay("2024-03-27", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, "Wed", ShortWeekday(d, time.UTC))

	_, err = ParseDay("2024-13-01", time.UTC)
	assert.Error(t, err)
}
