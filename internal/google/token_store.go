package google

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2"
)

// ErrNoToken is returned when no token pair is available.
var ErrNoToken = errors.New("no Google OAuth token available, run the auth flow first")

// TokenStore loads and persists the token pair of the service identity.
type TokenStore interface {
	Load() (*oauth2.Token, error)
	Save(tok *oauth2.Token) error
	// Name identifies the store in logs and status output.
	Name() string
}

// EnvTokenStore serves a token pair provided through configuration.
// It cannot persist refreshed tokens; Save is a no-op.
type EnvTokenStore struct {
	AccessToken  string
	RefreshToken string
}

func (s *EnvTokenStore) Name() string { return "env" }

// Load returns the configured pair. When only a refresh token is known, or
// the expiry is unknown, the token is marked expired so the first use refreshes it.
func (s *EnvTokenStore) Load() (*oauth2.Token, error) {
	if s.AccessToken == "" && s.RefreshToken == "" {
		return nil, ErrNoToken
	}
	tok := &oauth2.Token{
		AccessToken:  s.AccessToken,
		TokenType:    "Bearer",
		RefreshToken: s.RefreshToken,
	}
	if s.RefreshToken != "" {
		tok.Expiry = time.Unix(1, 0)
	}
	return tok, nil
}

func (s *EnvTokenStore) Save(*oauth2.Token) error { return nil }

// FileTokenStore keeps the token pair as JSON in a file readable only by the owner.
type FileTokenStore struct {
	Path string
}

func NewFileTokenStore(path string) *FileTokenStore {
	if path == "" {
		path = DefaultTokenFile()
	}
	return &FileTokenStore{Path: path}
}

func (s *FileTokenStore) Name() string { return "file" }

func (s *FileTokenStore) Load() (*oauth2.Token, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoToken
		}
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("invalid token file %s: %w", s.Path, err)
	}
	if tok.AccessToken == "" && tok.RefreshToken == "" {
		return nil, ErrNoToken
	}
	return &tok, nil
}

func (s *FileTokenStore) Save(tok *oauth2.Token) error {
	if tok == nil {
		return errors.New("token is nil")
	}
	if err := os.MkdirAll(filepath.Dir(s.Path), 0700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}

	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	if err := os.Rename(tmp, s.Path); err != nil {
		return fmt.Errorf("failed to replace token file: %w", err)
	}
	return nil
}

// ChainTokenStore loads from the first store that has a token and saves to all of them.
type ChainTokenStore []TokenStore

func (c ChainTokenStore) Name() string {
	for _, s := range c {
		if _, err := s.Load(); err == nil {
			return s.Name()
		}
	}
	return "none"
}

func (c ChainTokenStore) Load() (*oauth2.Token, error) {
	for _, s := range c {
		tok, err := s.Load()
		if err == nil {
			return tok, nil
		}
		if !errors.Is(err, ErrNoToken) {
			return nil, err
		}
	}
	return nil, ErrNoToken
}

func (c ChainTokenStore) Save(tok *oauth2.Token) error {
	var errs []error
	for _, s := range c {
		if err := s.Save(tok); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}
