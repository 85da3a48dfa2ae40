package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLastNDaysAnchorsToYesterday(t *testing.T) {
	now := time.Date(2026, 8, 30, 15, 4, 5, 0, time.UTC)
	p := LastNDays(28, now)

	assert.Equal(t, "2026-08-29", p.EndDate())
	assert.Equal(t, "2026-08-02", p.StartDate())
	assert.Equal(t, 28, p.Days())
}

func TestLastNDaysSingleDay(t *testing.T) {
	now := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	p := LastNDays(1, now)

	assert.Equal(t, p.StartDate(), p.EndDate())
	assert.Equal(t, "2026-08-29", p.EndDate())
	assert.Equal(t, 1, p.Days())
}

func TestLastNDaysCrossesMonth(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	p := LastNDays(7, now)

	assert.Equal(t, "2026-03-01", p.EndDate())
	assert.Equal(t, "2026-02-23", p.StartDate())
}

func TestPeriodString(t *testing.T) {
	p := Period{
		Start: time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC),
	}
	assert.Equal(t, "2026-08-02..2026-08-29", p.String())
}
