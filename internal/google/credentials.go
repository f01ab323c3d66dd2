package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/teemow/meetingbooker/internal/instrumentation"
	"github.com/teemow/meetingbooker/internal/logging"
)

// CredentialStore supplies a valid access token for the service identity.
// It is safe for concurrent use and implements oauth2.TokenSource.
type CredentialStore struct {
	conf    *oauth2.Config
	store   TokenStore
	logger  *slog.Logger
	metrics *instrumentation.Metrics

	// refreshCtx carries the HTTP client used for token refreshes.
	refreshCtx     context.Context
	refreshTimeout time.Duration
	refreshes      singleflight.Group

	mu          sync.Mutex
	token       *oauth2.Token
	lastRefresh time.Time
	lastError   error
}

// CredentialOption configures a CredentialStore.
type CredentialOption func(*CredentialStore)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) CredentialOption {
	return func(s *CredentialStore) { s.logger = logger }
}

// WithMetrics records token refreshes.
func WithMetrics(m *instrumentation.Metrics) CredentialOption {
	return func(s *CredentialStore) { s.metrics = m }
}

// WithRefreshContext sets the context used for refresh requests.
// Use oauth2.HTTPClient as key to supply a custom HTTP client.
func WithRefreshContext(ctx context.Context) CredentialOption {
	return func(s *CredentialStore) { s.refreshCtx = ctx }
}

// WithRefreshTimeout bounds each refresh request. Callers waiting on a
// refresh share its result, so none of them waits longer than timeout.
func WithRefreshTimeout(timeout time.Duration) CredentialOption {
	return func(s *CredentialStore) { s.refreshTimeout = timeout }
}

// NewCredentialStore creates a store and loads the initial token from store.
// A missing token is not an error: the store stays empty until SetToken is called.
func NewCredentialStore(conf *oauth2.Config, store TokenStore, opts ...CredentialOption) (*CredentialStore, error) {
	s := &CredentialStore{
		conf:       conf,
		store:      store,
		logger:     slog.Default(),
		refreshCtx: context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.WithComponent(s.logger, "credentials")

	if store == nil {
		return s, nil
	}

	tok, err := store.Load()
	switch {
	case errors.Is(err, ErrNoToken):
		s.logger.Warn("no stored Google token, authorization required", slog.String("store", store.Name()))
	case err != nil:
		return nil, fmt.Errorf("failed to load token: %w", err)
	default:
		s.token = tok
		s.logger.Info("loaded Google token",
			slog.String("store", store.Name()),
			slog.String("access_token", logging.SanitizeToken(tok.AccessToken)),
			slog.Bool("has_refresh_token", tok.RefreshToken != ""))
	}
	return s, nil
}

// Token returns a valid access token, refreshing it when it expired.
// Concurrent callers share a single refresh request.
func (s *CredentialStore) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	tok := s.token
	s.mu.Unlock()

	if tok == nil {
		return nil, ErrNoToken
	}
	if tok.Valid() {
		return tok, nil
	}
	if tok.RefreshToken == "" {
		return nil, fmt.Errorf("access token expired and no refresh token available: %w", ErrNoToken)
	}

	v, err, _ := s.refreshes.Do(tok.RefreshToken, func() (any, error) {
		return s.refresh(tok.RefreshToken)
	})
	if err != nil {
		return nil, err
	}
	return v.(*oauth2.Token), nil
}

func (s *CredentialStore) refresh(refreshToken string) (*oauth2.Token, error) {
	s.mu.Lock()
	if s.token != nil && s.token.Valid() {
		tok := s.token
		s.mu.Unlock()
		return tok, nil
	}
	s.mu.Unlock()

	ctx := s.refreshCtx
	if s.refreshTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.refreshTimeout)
		defer cancel()
	}
	tok, err := s.conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.lastError = err
		s.metrics.RecordOAuthTokenRefresh(s.refreshCtx, instrumentation.OAuthResultFailure)
		s.logger.Error("token refresh failed", logging.Err(err))
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}

	// Google usually omits the refresh token on refresh responses.
	if tok.RefreshToken == "" {
		tok.RefreshToken = refreshToken
	}
	s.lastRefresh = time.Now()
	s.lastError = nil
	s.metrics.RecordOAuthTokenRefresh(s.refreshCtx, instrumentation.OAuthResultSuccess)
	s.logger.Info("token refreshed", slog.Time("expiry", tok.Expiry))

	// SetToken may have installed a new pair while the request was in flight.
	if s.token != nil && s.token.RefreshToken != refreshToken {
		return tok, nil
	}
	s.token = tok
	s.persist(tok)
	return tok, nil
}

// SetToken installs a new token pair, typically right after the authorization
// code exchange, and persists it.
func (s *CredentialStore) SetToken(tok *oauth2.Token) error {
	if tok == nil || (tok.AccessToken == "" && tok.RefreshToken == "") {
		return errors.New("token is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if tok.RefreshToken == "" && s.token != nil {
		tok.RefreshToken = s.token.RefreshToken
	}
	s.token = tok
	s.lastError = nil
	s.logger.Info("installed new Google token",
		slog.String("access_token", logging.SanitizeToken(tok.AccessToken)),
		slog.Bool("has_refresh_token", tok.RefreshToken != ""))

	if s.store == nil {
		return nil
	}
	if err := s.store.Save(tok); err != nil {
		return fmt.Errorf("failed to persist token: %w", err)
	}
	return nil
}

func (s *CredentialStore) persist(tok *oauth2.Token) {
	if s.store == nil {
		return
	}
	if err := s.store.Save(tok); err != nil {
		s.logger.Warn("failed to persist refreshed token", logging.Err(err))
	}
}

// TokenStatus describes the held token without exposing it.
type TokenStatus struct {
	HasAccessToken  bool      `json:"hasAccessToken"`
	HasRefreshToken bool      `json:"hasRefreshToken"`
	Valid           bool      `json:"valid"`
	Expiry          time.Time `json:"expiry,omitempty"`
	LastRefresh     time.Time `json:"lastRefresh,omitempty"`
	LastError       string    `json:"lastError,omitempty"`
	Store           string    `json:"store"`
}

// Status reports the current token state.
func (s *CredentialStore) Status() TokenStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := TokenStatus{LastRefresh: s.lastRefresh}
	if s.store != nil {
		st.Store = s.store.Name()
	}
	if s.lastError != nil {
		st.LastError = s.lastError.Error()
	}
	if s.token != nil {
		st.HasAccessToken = s.token.AccessToken != ""
		st.HasRefreshToken = s.token.RefreshToken != ""
		st.Valid = s.token.Valid()
		if !s.token.Expiry.Equal(time.Unix(1, 0)) {
			st.Expiry = s.token.Expiry
		}
	}
	return st
}

// HasToken reports whether any token pair is installed.
func (s *CredentialStore) HasToken() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token != nil
}
