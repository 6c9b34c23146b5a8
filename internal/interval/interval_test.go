package interval

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(h, m int) time.Time {
	return time.Date(2025, 3, 10, h, m, 0, 0, time.UTC)
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name         string
		aStart, aEnd time.Time
		bStart, bEnd time.Time
		want         bool
	}{
		{"touching", at(9, 0), at(10, 0), at(10, 0), at(11, 0), false},
		{"partial", at(9, 0), at(10, 30), at(10, 0), at(11, 0), true},
		{"contained", at(9, 0), at(12, 0), at(10, 0), at(11, 0), true},
		{"identical", at(9, 0), at(10, 0), at(9, 0), at(10, 0), true},
		{"disjoint", at(8, 0), at(9, 0), at(10, 0), at(11, 0), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Overlaps(tt.aStart, tt.aEnd, tt.bStart, tt.bEnd))
			assert.Equal(t, tt.want, Overlaps(tt.bStart, tt.bEnd, tt.aStart, tt.aEnd), "symmetric")
		})
	}
}

func TestStartOfWeek(t *testing.T) {
	wed := time.Date(2025, 1, 1, 15, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 12, 29, 0, 0, 0, 0, time.UTC), StartOfWeek(wed, time.Sunday, time.UTC))
	assert.Equal(t, time.Date(2024, 12, 30, 0, 0, 0, 0, time.UTC), StartOfWeek(wed, time.Monday, time.UTC))

	sun := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, sun, StartOfWeek(sun, time.Sunday, time.UTC))
}

func TestMonthGridBounds(t *testing.T) {
	start, end := MonthGridBounds(time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), time.Sunday, time.UTC)
	assert.Equal(t, time.Date(2024, 12, 29, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, 2, 2, 0, 0, 0, 0, time.UTC), end)
	assert.Equal(t, 35, DaysBetween(start, end))

	// March 2025 starts on a Saturday and needs six rows with a Sunday start.
	start, end = MonthGridBounds(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), time.Sunday, time.UTC)
	assert.Equal(t, time.Date(2025, 2, 23, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, 42, DaysBetween(start, end))
}

func TestAddMonthsClipped(t *testing.T) {
	y, m, d := AddMonthsClipped(2025, time.January, 31, 1)
	assert.Equal(t, []int{2025, 2, 28}, []int{y, int(m), d})

	y, m, d = AddMonthsClipped(2024, time.January, 31, 1)
	assert.Equal(t, []int{2024, 2, 29}, []int{y, int(m), d})

	y, m, d = AddMonthsClipped(2025, time.November, 30, 3)
	assert.Equal(t, []int{2026, 2, 28}, []int{y, int(m), d})

	y, m, d = AddMonthsClipped(2025, time.March, 15, -3)
	assert.Equal(t, []int{2024, 12, 15}, []int{y, int(m), d})
}

func TestAllDaySpan(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2025, 6, d, 0, 0, 0, 0, time.UTC) }

	first, end := AllDaySpan(day(10), day(12), time.UTC)
	assert.Equal(t, day(10), first)
	assert.Equal(t, day(13), end)

	first, end = AllDaySpan(day(10), day(10), time.UTC)
	assert.Equal(t, day(10), first)
	assert.Equal(t, day(11), end)

	_, end = AllDaySpan(day(10), time.Date(2025, 6, 12, 23, 59, 0, 0, time.UTC), time.UTC)
	assert.Equal(t, day(13), end)

	first, end = AllDaySpan(day(10), day(9), time.UTC)
	assert.Equal(t, day(10), first)
	assert.Equal(t, day(11), end)
}

func TestAddDaysAcrossDST(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	before := time.Date(2025, 3, 8, 0, 0, 0, 0, ny)
	after := AddDays(before, 2)
	assert.Equal(t, 0, after.Hour())
	assert.Equal(t, 10, after.Day())
	assert.Equal(t, 2, DaysBetween(before, after))
}

func TestParseWeekday(t *testing.T) {
	d, err := ParseWeekday("Sunday")
	require.NoError(t, err)
	assert.Equal(t, time.Sunday, d)

	d, err = ParseWeekday("mon")
	require.NoError(t, err)
	assert.Equal(t, time.Monday, d)

	_, err = ParseWeekday("someday")
	assert.Error(t, err)
}
