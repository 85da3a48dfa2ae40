package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// ErrNoToken means no stored token exists for the channel in any source.
var ErrNoToken = errors.New("no stored token")

// tokenEnvPrefix is the prefix for deployed-environment token blobs, e.g.
// YT_TOKEN_SMILECLINIC holds the token JSON for channel key "smileclinic".
const tokenEnvPrefix = "YT_TOKEN_"

// TokenEnvVar returns the environment variable that may hold the token JSON
// for a channel key.
func TokenEnvVar(channel string) string {
	up := strings.ToUpper(channel)
	var b strings.Builder
	for _, r := range up {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return tokenEnvPrefix + b.String()
}

type tokenOrigin int

const (
	originFile tokenOrigin = iota
	originEnv
)

func (o tokenOrigin) String() string {
	if o == originEnv {
		return "env"
	}
	return "file"
}

// storedToken is a token plus where it came from, which decides whether a
// refreshed token can be written back.
type storedToken struct {
	tok    *oauth2.Token
	origin tokenOrigin
	path   string // token file path; set for originFile, and the save target for new tokens
}

// loadToken finds the token for a channel. The environment wins over the
// token directory so a deployed instance never picks up a stale local file.
func loadToken(tokenDir, channel string) (*storedToken, error) {
	path := tokenPath(tokenDir, channel)

	if raw := os.Getenv(TokenEnvVar(channel)); raw != "" {
		tok := &oauth2.Token{}
		if err := json.Unmarshal([]byte(raw), tok); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", TokenEnvVar(channel), err)
		}
		return &storedToken{tok: tok, origin: originEnv, path: path}, nil
	}

	tok, err := tokenFromFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("channel %q: %w", channel, ErrNoToken)
	}
	if err != nil {
		return nil, err
	}
	return &storedToken{tok: tok, origin: originFile, path: path}, nil
}

func tokenPath(tokenDir, channel string) string {
	return filepath.Join(tokenDir, channel+".json")
}

func tokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("decoding token file %s: %w", path, err)
	}
	return tok, nil
}

func saveToken(path string, tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return err
	}
	// 0600: the refresh token is a long-lived credential
	return os.WriteFile(path, data, 0o600)
}

// persistingSource wraps an oauth2.TokenSource and writes refreshed tokens
// back to the token file, so a refresh done mid-report survives a restart.
// Env-sourced tokens are refreshed in memory only.
type persistingSource struct {
	base    oauth2.TokenSource
	st      *storedToken
	logger  *zap.Logger
	mu      sync.Mutex
	last    string // last persisted access token
	warned  bool
	channel string
}

func newPersistingSource(base oauth2.TokenSource, st *storedToken, channel string, logger *zap.Logger) *persistingSource {
	return &persistingSource{
		base:    base,
		st:      st,
		logger:  logger,
		last:    st.tok.AccessToken,
		channel: channel,
	}
}

func (s *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken == s.last {
		return tok, nil
	}
	s.last = tok.AccessToken

	if s.st.origin == originEnv {
		if !s.warned {
			s.warned = true
			s.logger.Warn("token refreshed but source is env-only, refresh will repeat next run",
				zap.String("channel", s.channel))
		}
		return tok, nil
	}

	if err := saveToken(s.st.path, tok); err != nil {
		s.logger.Warn("persisting refreshed token failed",
			zap.String("channel", s.channel),
			zap.String("path", s.st.path),
			zap.Error(err))
		return tok, nil
	}
	s.logger.Info("refreshed token persisted",
		zap.String("channel", s.channel),
		zap.String("path", s.st.path))
	return tok, nil
}
