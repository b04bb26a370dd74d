package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMonthWindowClosedInterval(t *testing.T) {
	w := MonthWindow(2026, time.February, time.UTC)
	assert.Equal(t, time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC), w.Start)
	assert.Equal(t, time.Date(2026, time.February, 28, 0, 0, 0, 0, time.UTC), w.End)

	leap := MonthWindow(2028, time.February, time.UTC)
	assert.Equal(t, 29, leap.End.Day())
}

func TestPreviousMonthWindowYearBoundary(t *testing.T) {
	w := PreviousMonthWindow(time.Date(2026, time.January, 15, 10, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2025, time.December, 1, 0, 0, 0, 0, time.UTC), w.Start)
	assert.Equal(t, time.Date(2025, time.December, 31, 0, 0, 0, 0, time.UTC), w.End)
}

func TestWeekWindowStartsSunday(t *testing.T) {
	// A Wednesday mid-week.
	w := WeekWindow(time.Date(2026, time.February, 4, 23, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Sunday, w.Start.Weekday())
	assert.Equal(t, time.Saturday, w.End.Weekday())
	assert.Equal(t, time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC), w.Start)
}

func TestAttribution(t *testing.T) {
	group := "g1"
	assert.Equal(t, AttributionNone, (&TimeLog{}).Attribution())
	assert.Equal(t, AttributionGroup, (&TimeLog{GroupID: &group}).Attribution())
	assert.Equal(t, AttributionStudents, (&TimeLog{StudentIDs: []string{"s1"}}).Attribution())
}
