// Package auth manages per-channel OAuth sessions against the YouTube Data
// and Analytics APIs: token load, validation, refresh, interactive exchange,
// client construction and a probe query.
package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
	youtubeanalytics "google.golang.org/api/youtubeanalytics/v2"
)

// ErrAuthRequired means there is no usable token and nobody present to run
// the interactive flow.
var ErrAuthRequired = errors.New("interactive authorization required")

// SecretsEnvVar holds the client_secrets JSON when deployed; it wins over
// the secrets file.
const SecretsEnvVar = "YT_CLIENT_SECRETS_JSON"

// Scopes are read-only on purpose: the reports never mutate anything.
var Scopes = []string{
	youtube.YoutubeReadonlyScope,
	youtubeanalytics.YtAnalyticsReadonlyScope,
}

// Authorizer drives the installed-app flow: it receives the authorization
// URL, gets the user there, and returns the code they were given.
type Authorizer func(authURL string) (code string, err error)

// Config locates credentials for the Manager.
type Config struct {
	SecretsFile string // client_secrets.json path, used when SecretsEnvVar is unset
	TokenDir    string // per-channel token files, <dir>/<channel>.json
	Logger      *zap.Logger
}

// Manager builds and caches one Session per channel.
type Manager struct {
	cfg   Config
	oauth *oauth2.Config
	log   *zap.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// Session is an authorized set of API clients for one channel.
type Session struct {
	Channel   string // registry key
	ChannelID string // UC... id confirmed by the probe
	Title     string // channel title from the probe

	Data    *youtube.Service
	Reports *youtubeanalytics.Service
}

// NewManager reads the client secrets (env first, then file) and prepares
// the OAuth config. No network traffic happens here.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	raw, from, err := readSecrets(cfg)
	if err != nil {
		return nil, err
	}
	conf, err := google.ConfigFromJSON(raw, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("parsing client secrets (%s): %w", from, err)
	}

	cfg.Logger.Info("oauth config loaded", zap.String("source", from))
	return &Manager{
		cfg:      cfg,
		oauth:    conf,
		log:      cfg.Logger,
		sessions: make(map[string]*Session),
	}, nil
}

func readSecrets(cfg Config) ([]byte, string, error) {
	if raw := os.Getenv(SecretsEnvVar); raw != "" {
		return []byte(raw), SecretsEnvVar, nil
	}
	b, err := os.ReadFile(cfg.SecretsFile)
	if err != nil {
		return nil, "", fmt.Errorf("reading client secrets file: %w", err)
	}
	return b, cfg.SecretsFile, nil
}

// Session returns a healthy session for the channel, establishing one if
// needed. It never prompts; with no usable token it fails with
// ErrAuthRequired so the caller can tell the operator to run `auth`.
func (m *Manager) Session(ctx context.Context, channel string) (*Session, error) {
	return m.session(ctx, channel, nil)
}

// Authorize establishes a session, running the interactive flow through
// prompt whenever the stored token is missing or beyond refreshing.
func (m *Manager) Authorize(ctx context.Context, channel string, prompt Authorizer) (*Session, error) {
	if prompt == nil {
		return nil, errors.New("nil Authorizer")
	}
	m.Invalidate(channel)
	return m.session(ctx, channel, prompt)
}

// Invalidate drops the cached session so the next call rebuilds it.
func (m *Manager) Invalidate(channel string) {
	m.mu.Lock()
	delete(m.sessions, channel)
	m.mu.Unlock()
}

func (m *Manager) session(ctx context.Context, channel string, prompt Authorizer) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[channel]; ok {
		return s, nil
	}

	s, err := m.establish(ctx, channel, prompt)
	if err != nil {
		return nil, err
	}
	m.sessions[channel] = s
	return s, nil
}

// establish is the load → validate → refresh → (exchange) → build → probe
// pipeline.
func (m *Manager) establish(ctx context.Context, channel string, prompt Authorizer) (*Session, error) {
	st, err := loadToken(m.cfg.TokenDir, channel)
	switch {
	case errors.Is(err, ErrNoToken):
		if prompt == nil {
			return nil, fmt.Errorf("channel %q: %w", channel, ErrAuthRequired)
		}
		st, err = m.exchange(ctx, channel, prompt)
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	}

	src := newPersistingSource(m.oauth.TokenSource(ctx, st.tok), st, channel, m.log)

	// Force a token fetch now. This is where an expired access token gets
	// refreshed, and where a dead refresh token surfaces as invalid_grant
	// instead of failing later inside a report.
	if _, err := src.Token(); err != nil {
		if Classify(err) != ClassAuthExpired {
			return nil, fmt.Errorf("channel %q: validating token: %w", channel, err)
		}
		if prompt == nil {
			return nil, fmt.Errorf("channel %q: token beyond refresh: %w", channel, ErrAuthRequired)
		}
		m.log.Info("refresh token rejected, re-running authorization", zap.String("channel", channel))
		st, err = m.exchange(ctx, channel, prompt)
		if err != nil {
			return nil, err
		}
		src = newPersistingSource(m.oauth.TokenSource(ctx, st.tok), st, channel, m.log)
		if _, err := src.Token(); err != nil {
			return nil, fmt.Errorf("channel %q: token invalid after exchange: %w", channel, err)
		}
	}

	client := oauth2.NewClient(ctx, src)
	data, err := youtube.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("building youtube service: %w", err)
	}
	reports, err := youtubeanalytics.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("building analytics service: %w", err)
	}

	s := &Session{Channel: channel, Data: data, Reports: reports}
	if err := m.probe(ctx, s); err != nil {
		return nil, fmt.Errorf("channel %q: probe failed: %w", channel, err)
	}

	m.log.Info("session established",
		zap.String("channel", channel),
		zap.String("channel_id", s.ChannelID),
		zap.String("title", s.Title),
		zap.String("token_source", st.origin.String()),
	)
	return s, nil
}

// exchange runs the installed-app flow and saves the resulting token to the
// channel's token file.
func (m *Manager) exchange(ctx context.Context, channel string, prompt Authorizer) (*storedToken, error) {
	authURL := m.oauth.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	code, err := prompt(authURL)
	if err != nil {
		return nil, fmt.Errorf("authorization flow: %w", err)
	}
	tok, err := m.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchanging authorization code: %w", err)
	}

	st := &storedToken{tok: tok, origin: originFile, path: tokenPath(m.cfg.TokenDir, channel)}
	if err := saveToken(st.path, tok); err != nil {
		return nil, fmt.Errorf("saving token: %w", err)
	}
	m.log.Info("token saved", zap.String("channel", channel), zap.String("path", st.path))
	return st, nil
}

// probe runs the cheapest authorized Data API call and records the channel
// identity it proves access to.
func (m *Manager) probe(ctx context.Context, s *Session) error {
	resp, err := s.Data.Channels.List([]string{"id", "snippet"}).Mine(true).Context(ctx).Do()
	if err != nil {
		return err
	}
	if len(resp.Items) == 0 {
		return errors.New("token grants access to no channel")
	}
	s.ChannelID = resp.Items[0].Id
	if resp.Items[0].Snippet != nil {
		s.Title = resp.Items[0].Snippet.Title
	}
	return nil
}
