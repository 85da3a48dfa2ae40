package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"dentalytics/pkg/analytics"
	"dentalytics/pkg/auth"
)

// Report is one fetched view of a channel over a period. It is what the
// store persists and the server serves.
type Report struct {
	RunID     string                    `json:"runId"`
	Channel   string                    `json:"channel"`
	Name      string                    `json:"name"`
	ChannelID string                    `json:"channelId"`
	Period    analytics.Period          `json:"period"`
	FetchedAt time.Time                 `json:"fetchedAt"`
	Totals    *analytics.Totals         `json:"totals"`
	Daily     []analytics.DayStats      `json:"daily"`
	TopVideos []analytics.VideoStats    `json:"topVideos"`
	Traffic   []analytics.TrafficSource `json:"traffic"`
	Lifetime  *analytics.ChannelStats   `json:"lifetime"`
}

// App wires the registry, auth manager, snapshot store and logger together
// for the CLI commands and the HTTP server.
type App struct {
	cfg      *Config
	registry *Registry
	store    *Store
	log      *zap.Logger

	// fetch overrides the API fetch path; nil means fetchReport.
	fetch func(ctx context.Context, ch Channel, period analytics.Period, topN int) (*Report, error)

	// the auth manager is built on first use so commands that never touch
	// Google (channels, prune) work without client secrets
	authOnce sync.Once
	authMgr  *auth.Manager
	authErr  error
}

func (a *App) authManager() (*auth.Manager, error) {
	a.authOnce.Do(func() {
		a.authMgr, a.authErr = auth.NewManager(auth.Config{
			SecretsFile: a.cfg.SecretsFile,
			TokenDir:    a.cfg.TokenDir,
			Logger:      a.log,
		})
	})
	return a.authMgr, a.authErr
}

// BuildReport returns the report for one channel, serving a fresh-enough
// snapshot from the store unless force is set.
func (a *App) BuildReport(ctx context.Context, key string, days, topN int, force bool) (*Report, error) {
	ch, ok := a.registry.Get(key)
	if !ok {
		return nil, fmt.Errorf("unknown channel %q", key)
	}
	period := analytics.LastNDays(days, time.Now())

	if !force {
		cached, err := a.store.Latest(key, period)
		if err != nil {
			a.log.Warn("snapshot lookup failed", zap.String("channel", key), zap.Error(err))
		} else if cached != nil && time.Since(cached.FetchedAt) < a.cfg.SnapshotTTL {
			reportsServed.WithLabelValues(key, "snapshot").Inc()
			a.log.Debug("serving snapshot",
				zap.String("channel", key),
				zap.Time("fetched_at", cached.FetchedAt))
			return cached, nil
		}
	}

	fetch := a.fetch
	if fetch == nil {
		fetch = a.fetchReport
	}

	rep, err := fetch(ctx, ch, period, topN)
	if err != nil && auth.Classify(err) == auth.ClassAuthExpired {
		// the cached session may hold a token revoked after its last
		// refresh; rebuild it once, the forced token fetch does the rest
		a.log.Info("auth expired mid-report, rebuilding session", zap.String("channel", key))
		if mgr, mErr := a.authManager(); mErr == nil {
			mgr.Invalidate(key)
		}
		rep, err = fetch(ctx, ch, period, topN)
	}
	if err != nil {
		apiErrors.WithLabelValues(key, auth.Classify(err).String()).Inc()
		return nil, err
	}
	reportsServed.WithLabelValues(key, "api").Inc()

	if err := a.store.Save(rep); err != nil {
		a.log.Warn("saving snapshot failed", zap.String("channel", key), zap.Error(err))
	}
	return rep, nil
}

func (a *App) fetchReport(ctx context.Context, ch Channel, period analytics.Period, topN int) (*Report, error) {
	mgr, err := a.authManager()
	if err != nil {
		return nil, err
	}
	sess, err := mgr.Session(ctx, ch.Key)
	if err != nil {
		return nil, err
	}
	if ch.ID != "" && ch.ID != sess.ChannelID {
		// token works but belongs to a different account than the registry claims
		a.log.Warn("probe returned unexpected channel id",
			zap.String("channel", ch.Key),
			zap.String("expected", ch.ID),
			zap.String("got", sess.ChannelID))
	}

	client := analytics.New(sess, a.log)

	totals, err := client.Totals(ctx, period)
	if err != nil {
		return nil, fmt.Errorf("channel %q: %w", ch.Key, err)
	}
	daily, err := client.Daily(ctx, period)
	if err != nil {
		return nil, fmt.Errorf("channel %q: %w", ch.Key, err)
	}
	topVideos, err := client.TopVideos(ctx, period, topN)
	if err != nil {
		return nil, fmt.Errorf("channel %q: %w", ch.Key, err)
	}
	traffic, err := client.TrafficSources(ctx, period)
	if err != nil {
		return nil, fmt.Errorf("channel %q: %w", ch.Key, err)
	}
	lifetime, err := client.ChannelStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("channel %q: %w", ch.Key, err)
	}

	name := ch.Name
	if name == "" {
		name = sess.Title
	}
	return &Report{
		RunID:     uuid.NewString(),
		Channel:   ch.Key,
		Name:      name,
		ChannelID: sess.ChannelID,
		Period:    period,
		FetchedAt: time.Now().UTC(),
		Totals:    totals,
		Daily:     daily,
		TopVideos: topVideos,
		Traffic:   traffic,
		Lifetime:  lifetime,
	}, nil
}

// Overview builds reports for every registered channel, sequentially (the
// rate limiter makes parallel fetches pointless at this fleet size). A
// failing channel is reported in Errors and doesn't stop the rest.
type Overview struct {
	Reports []*Report         `json:"reports"`
	Errors  map[string]string `json:"errors,omitempty"`
}

func (a *App) BuildOverview(ctx context.Context, days, topN int, force bool) (*Overview, error) {
	ov := &Overview{Errors: make(map[string]string)}
	for _, key := range a.registry.Keys() {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		rep, err := a.BuildReport(ctx, key, days, topN, force)
		if err != nil {
			a.log.Error("overview: channel failed",
				zap.String("channel", key),
				zap.String("class", auth.Classify(err).String()),
				zap.Error(err))
			ov.Errors[key] = err.Error()
			continue
		}
		ov.Reports = append(ov.Reports, rep)
	}
	if len(ov.Errors) == 0 {
		ov.Errors = nil
	}
	return ov, nil
}
