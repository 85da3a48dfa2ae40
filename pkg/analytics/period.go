package analytics

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// Period is a closed date range in the channel's reporting timeline.
type Period struct {
	Start time.Time
	End   time.Time
}

// LastNDays returns the n-day period ending yesterday. The Analytics API
// trails realtime by about two days, and an end date of "today" quietly
// returns partial rows, so reports are always anchored to yesterday.
func LastNDays(n int, now time.Time) Period {
	end := now.AddDate(0, 0, -1)
	start := end.AddDate(0, 0, -(n - 1))
	return Period{Start: start, End: end}
}

func (p Period) StartDate() string { return p.Start.Format(dateLayout) }
func (p Period) EndDate() string   { return p.End.Format(dateLayout) }

// Days counts the days in the period, endpoints included.
func (p Period) Days() int {
	return int(p.End.Sub(p.Start).Hours()/24) + 1
}

func (p Period) String() string {
	return fmt.Sprintf("%s..%s", p.StartDate(), p.EndDate())
}
