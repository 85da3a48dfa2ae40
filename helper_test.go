package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dentalytics/pkg/analytics"
)

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse("2006-01-02", s)
	require.NoError(t, err)
	return ts
}

func TestFormatCount(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{7, "7"},
		{999, "999"},
		{1000, "1,000"},
		{1234567, "1,234,567"},
		{-4521, "-4,521"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatCount(tt.in), "formatCount(%d)", tt.in)
	}
}

func TestFormatWatch(t *testing.T) {
	assert.Equal(t, "45m", formatWatch(45))
	assert.Equal(t, "1h 0m", formatWatch(60))
	assert.Equal(t, "34h 17m", formatWatch(2057))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0:09", formatDuration(9))
	assert.Equal(t, "4:05", formatDuration(245))
}

func TestRenderReport(t *testing.T) {
	rep := &Report{
		Name:      "Smile Clinic",
		ChannelID: "UCsmile",
		Period:    analytics.LastNDays(7, mustTime(t, "2026-08-30")),
		Totals: &analytics.Totals{
			Views:              12345,
			WatchMinutes:       2057,
			AvgViewDurationSec: 245,
			AvgViewPercentage:  41.2,
			Likes:              321,
			Comments:           45,
			Shares:             12,
			SubscribersGained:  80,
			SubscribersLost:    5,
		},
		TopVideos: []analytics.VideoStats{
			{VideoID: "abc123", Title: "Flossing myths", Views: 4000, WatchMinutes: 900},
			{VideoID: "def456", Views: 2000, WatchMinutes: 300}, // untitled: falls back to id
		},
		Traffic: []analytics.TrafficSource{
			{Source: "YT_SEARCH", Views: 6000},
		},
		Lifetime: &analytics.ChannelStats{Subscribers: 15400, TotalViews: 2100000, VideoCount: 180},
	}

	var buf bytes.Buffer
	renderReport(&buf, rep)
	out := buf.String()

	assert.Contains(t, out, "Smile Clinic (UCsmile)")
	assert.Contains(t, out, "12,345")
	assert.Contains(t, out, "34h 17m")
	assert.Contains(t, out, "4:05")
	assert.Contains(t, out, "subs +75")
	assert.Contains(t, out, "Flossing myths")
	assert.Contains(t, out, "def456")
	assert.Contains(t, out, "YT_SEARCH")
	assert.Contains(t, out, "2,100,000")
}

func TestRenderOverviewIncludesFailures(t *testing.T) {
	ov := &Overview{
		Reports: []*Report{{Name: "Smile Clinic", ChannelID: "UCsmile"}},
		Errors:  map[string]string{"molarcare": "quota exhausted"},
	}
	var buf bytes.Buffer
	renderOverview(&buf, ov)

	assert.Contains(t, buf.String(), "Smile Clinic")
	assert.True(t, strings.Contains(buf.String(), "molarcare: FAILED: quota exhausted"))
}
