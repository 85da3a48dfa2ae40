// Package analytics wraps the YouTube Analytics and Data API queries the
// reports are built from.
package analytics

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/api/youtube/v3"
	youtubeanalytics "google.golang.org/api/youtubeanalytics/v2"

	"dentalytics/pkg/auth"
	"dentalytics/pkg/retry"
)

// totalsMetrics is every metric the dashboards chart, fetched in one query
// to keep the quota cost at a single unit.
const totalsMetrics = "views,estimatedMinutesWatched,averageViewDuration,averageViewPercentage,likes,comments,shares,subscribersGained,subscribersLost"

const dailyMetrics = "views,estimatedMinutesWatched,likes,comments"

// Client runs rate-limited, retried queries for one channel session.
type Client struct {
	sess    *auth.Session
	retryer *retry.Retryer
	limiter *rate.Limiter
	log     *zap.Logger
}

// New builds a Client with the default quota-friendly policy: 4 calls/sec
// and up to 3 backoff retries on transient failures.
func New(sess *auth.Session, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	policy := retry.DefaultPolicy()
	policy.Retryable = auth.Retryable
	return &Client{
		sess:    sess,
		retryer: retry.New(policy, logger),
		limiter: rate.NewLimiter(rate.Limit(4), 1),
		log:     logger.With(zap.String("channel", sess.Channel)),
	}
}

// Totals holds the period-wide engagement numbers for a channel.
type Totals struct {
	Views              int64   `json:"views"`
	WatchMinutes       int64   `json:"watchMinutes"`
	AvgViewDurationSec int64   `json:"avgViewDurationSec"`
	AvgViewPercentage  float64 `json:"avgViewPercentage"`
	Likes              int64   `json:"likes"`
	Comments           int64   `json:"comments"`
	Shares             int64   `json:"shares"`
	SubscribersGained  int64   `json:"subscribersGained"`
	SubscribersLost    int64   `json:"subscribersLost"`
}

// DayStats is one day of the daily series.
type DayStats struct {
	Day          string `json:"day"`
	Views        int64  `json:"views"`
	WatchMinutes int64  `json:"watchMinutes"`
	Likes        int64  `json:"likes"`
	Comments     int64  `json:"comments"`
}

// VideoStats ranks a single video within the period.
type VideoStats struct {
	VideoID            string `json:"videoId"`
	Title              string `json:"title"`
	Views              int64  `json:"views"`
	WatchMinutes       int64  `json:"watchMinutes"`
	AvgViewDurationSec int64  `json:"avgViewDurationSec"`
	Likes              int64  `json:"likes"`
}

// TrafficSource is one row of the traffic-source breakdown.
type TrafficSource struct {
	Source       string `json:"source"`
	Views        int64  `json:"views"`
	WatchMinutes int64  `json:"watchMinutes"`
}

// ChannelStats are the lifetime numbers from the Data API.
type ChannelStats struct {
	ChannelID   string `json:"channelId"`
	Title       string `json:"title"`
	Subscribers uint64 `json:"subscribers"`
	TotalViews  uint64 `json:"totalViews"`
	VideoCount  uint64 `json:"videoCount"`
}

// run wraps a single API call with the limiter and the retry policy.
func (c *Client) run(ctx context.Context, op string, call func() error) error {
	return c.retryer.Do(ctx, op, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		return call()
	})
}

func (c *Client) query(ctx context.Context, op string, build func(*youtubeanalytics.ReportsQueryCall) *youtubeanalytics.ReportsQueryCall) (*resultTable, error) {
	var resp *youtubeanalytics.QueryResponse
	err := c.run(ctx, op, func() error {
		call := c.sess.Reports.Reports.Query().
			Ids("channel==" + c.sess.ChannelID).
			Context(ctx)
		var err error
		resp, err = build(call).Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return newResultTable(resp), nil
}

// Totals fetches the period totals in a single query.
func (c *Client) Totals(ctx context.Context, p Period) (*Totals, error) {
	table, err := c.query(ctx, "totals", func(call *youtubeanalytics.ReportsQueryCall) *youtubeanalytics.ReportsQueryCall {
		return call.
			StartDate(p.StartDate()).
			EndDate(p.EndDate()).
			Metrics(totalsMetrics)
	})
	if err != nil {
		return nil, err
	}

	t := &Totals{}
	if len(table.rows) == 0 {
		// a channel with zero activity in the period returns no rows
		return t, nil
	}
	row := table.rows[0]
	t.Views = table.cellInt(row, "views")
	t.WatchMinutes = table.cellInt(row, "estimatedMinutesWatched")
	t.AvgViewDurationSec = table.cellInt(row, "averageViewDuration")
	t.AvgViewPercentage = table.cellFloat(row, "averageViewPercentage")
	t.Likes = table.cellInt(row, "likes")
	t.Comments = table.cellInt(row, "comments")
	t.Shares = table.cellInt(row, "shares")
	t.SubscribersGained = table.cellInt(row, "subscribersGained")
	t.SubscribersLost = table.cellInt(row, "subscribersLost")
	return t, nil
}

// Daily fetches the per-day series for the period, sorted by day.
func (c *Client) Daily(ctx context.Context, p Period) ([]DayStats, error) {
	table, err := c.query(ctx, "daily", func(call *youtubeanalytics.ReportsQueryCall) *youtubeanalytics.ReportsQueryCall {
		return call.
			StartDate(p.StartDate()).
			EndDate(p.EndDate()).
			Metrics(dailyMetrics).
			Dimensions("day").
			Sort("day")
	})
	if err != nil {
		return nil, err
	}

	days := make([]DayStats, 0, len(table.rows))
	for _, row := range table.rows {
		days = append(days, DayStats{
			Day:          table.cellString(row, "day"),
			Views:        table.cellInt(row, "views"),
			WatchMinutes: table.cellInt(row, "estimatedMinutesWatched"),
			Likes:        table.cellInt(row, "likes"),
			Comments:     table.cellInt(row, "comments"),
		})
	}
	return days, nil
}

// TopVideos fetches the n most-viewed videos of the period and resolves
// their titles through the Data API.
func (c *Client) TopVideos(ctx context.Context, p Period, n int) ([]VideoStats, error) {
	if n <= 0 {
		n = 10
	}
	table, err := c.query(ctx, "top_videos", func(call *youtubeanalytics.ReportsQueryCall) *youtubeanalytics.ReportsQueryCall {
		return call.
			StartDate(p.StartDate()).
			EndDate(p.EndDate()).
			Metrics("views,estimatedMinutesWatched,averageViewDuration,likes").
			Dimensions("video").
			Sort("-views").
			MaxResults(int64(n))
	})
	if err != nil {
		return nil, err
	}

	videos := make([]VideoStats, 0, len(table.rows))
	ids := make([]string, 0, len(table.rows))
	for _, row := range table.rows {
		v := VideoStats{
			VideoID:            table.cellString(row, "video"),
			Views:              table.cellInt(row, "views"),
			WatchMinutes:       table.cellInt(row, "estimatedMinutesWatched"),
			AvgViewDurationSec: table.cellInt(row, "averageViewDuration"),
			Likes:              table.cellInt(row, "likes"),
		}
		videos = append(videos, v)
		ids = append(ids, v.VideoID)
	}
	if len(ids) == 0 {
		return videos, nil
	}

	titles, err := c.videoTitles(ctx, ids)
	if err != nil {
		// titles are decoration; the ranking is still usable
		c.log.Warn("resolving video titles failed", zap.Error(err))
		return videos, nil
	}
	for i := range videos {
		videos[i].Title = titles[videos[i].VideoID]
	}
	return videos, nil
}

func (c *Client) videoTitles(ctx context.Context, ids []string) (map[string]string, error) {
	var resp *youtube.VideoListResponse
	err := c.run(ctx, "video_titles", func() error {
		var err error
		resp, err = c.sess.Data.Videos.
			List([]string{"snippet"}).
			Id(ids...).
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		return nil, err
	}
	titles := make(map[string]string, len(resp.Items))
	for _, item := range resp.Items {
		if item.Snippet != nil {
			titles[item.Id] = item.Snippet.Title
		}
	}
	return titles, nil
}

// TrafficSources fetches the traffic-source breakdown for the period.
func (c *Client) TrafficSources(ctx context.Context, p Period) ([]TrafficSource, error) {
	table, err := c.query(ctx, "traffic_sources", func(call *youtubeanalytics.ReportsQueryCall) *youtubeanalytics.ReportsQueryCall {
		return call.
			StartDate(p.StartDate()).
			EndDate(p.EndDate()).
			Metrics("views,estimatedMinutesWatched").
			Dimensions("insightTrafficSourceType").
			Sort("-views")
	})
	if err != nil {
		return nil, err
	}

	sources := make([]TrafficSource, 0, len(table.rows))
	for _, row := range table.rows {
		sources = append(sources, TrafficSource{
			Source:       table.cellString(row, "insightTrafficSourceType"),
			Views:        table.cellInt(row, "views"),
			WatchMinutes: table.cellInt(row, "estimatedMinutesWatched"),
		})
	}
	return sources, nil
}

// ChannelStats fetches the lifetime statistics from the Data API.
func (c *Client) ChannelStats(ctx context.Context) (*ChannelStats, error) {
	var resp *youtube.ChannelListResponse
	err := c.run(ctx, "channel_stats", func() error {
		var err error
		resp, err = c.sess.Data.Channels.
			List([]string{"snippet", "statistics"}).
			Id(c.sess.ChannelID).
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Items) == 0 {
		return nil, errors.New("channel not found")
	}

	item := resp.Items[0]
	stats := &ChannelStats{ChannelID: item.Id}
	if item.Snippet != nil {
		stats.Title = item.Snippet.Title
	}
	if item.Statistics != nil {
		stats.Subscribers = item.Statistics.SubscriberCount
		stats.TotalViews = item.Statistics.ViewCount
		stats.VideoCount = item.Statistics.VideoCount
	}
	return stats, nil
}
