package main

import (
	"fmt"
	"io"
	"strconv"
)

// formatCount renders 1234567 as "1,234,567".
func formatCount(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := false
	if len(s) > 0 && s[0] == '-' {
		neg = true
		s = s[1:]
	}
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	if neg {
		return "-" + s
	}
	return s
}

// formatWatch renders minutes of watch time as "34h 17m".
func formatWatch(minutes int64) string {
	h := minutes / 60
	m := minutes % 60
	if h == 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dh %dm", h, m)
}

// formatDuration renders seconds as "4:05".
func formatDuration(sec int64) string {
	return fmt.Sprintf("%d:%02d", sec/60, sec%60)
}

// renderReport prints a report the way the dashboards laid one out:
// lifetime header, period totals, top videos, traffic sources.
func renderReport(w io.Writer, rep *Report) {
	fmt.Fprintf(w, "%s (%s)  %s\n", rep.Name, rep.ChannelID, rep.Period)
	if rep.Lifetime != nil {
		fmt.Fprintf(w, "  lifetime: %s subscribers, %s views, %s videos\n",
			formatCount(int64(rep.Lifetime.Subscribers)),
			formatCount(int64(rep.Lifetime.TotalViews)),
			formatCount(int64(rep.Lifetime.VideoCount)))
	}
	if t := rep.Totals; t != nil {
		fmt.Fprintf(w, "  views %s  watch %s  avg view %s (%.1f%%)\n",
			formatCount(t.Views), formatWatch(t.WatchMinutes),
			formatDuration(t.AvgViewDurationSec), t.AvgViewPercentage)
		fmt.Fprintf(w, "  likes %s  comments %s  shares %s  subs %+d\n",
			formatCount(t.Likes), formatCount(t.Comments), formatCount(t.Shares),
			t.SubscribersGained-t.SubscribersLost)
	}
	if len(rep.TopVideos) > 0 {
		fmt.Fprintln(w, "  top videos:")
		for i, v := range rep.TopVideos {
			title := v.Title
			if title == "" {
				title = v.VideoID
			}
			fmt.Fprintf(w, "    %2d. %s - %s views, %s watch\n",
				i+1, title, formatCount(v.Views), formatWatch(v.WatchMinutes))
		}
	}
	if len(rep.Traffic) > 0 {
		fmt.Fprintln(w, "  traffic:")
		for _, src := range rep.Traffic {
			fmt.Fprintf(w, "    %-24s %s views\n", src.Source, formatCount(src.Views))
		}
	}
}

func renderOverview(w io.Writer, ov *Overview) {
	for _, rep := range ov.Reports {
		renderReport(w, rep)
		fmt.Fprintln(w)
	}
	for key, msg := range ov.Errors {
		fmt.Fprintf(w, "  %s: FAILED: %s\n", key, msg)
	}
}
