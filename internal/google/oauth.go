package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// OOBRedirectURL is used by the interactive auth command when no redirect URL is configured.
const OOBRedirectURL = "urn:ietf:wg:oauth:2.0:oob"

// ClientConfig identifies the OAuth client registered with Google.
type ClientConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
}

// Validate reports missing client settings.
func (c ClientConfig) Validate() error {
	var errs []error
	if c.ClientID == "" {
		errs = append(errs, errors.New("client ID is required"))
	}
	if c.ClientSecret == "" {
		errs = append(errs, errors.New("client secret is required"))
	}
	return errors.Join(errs...)
}

// OAuthConfig builds the oauth2 configuration for Google's endpoint.
func (c ClientConfig) OAuthConfig() *oauth2.Config {
	redirect := c.RedirectURL
	if redirect == "" {
		redirect = OOBRedirectURL
	}
	scopes := c.Scopes
	if len(scopes) == 0 {
		scopes = CalendarScopes
	}
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  redirect,
		Scopes:       scopes,
	}
}

// AuthURL returns the consent URL. Offline access and a forced consent prompt
// guarantee that Google returns a refresh token.
func AuthURL(conf *oauth2.Config, state string) string {
	return conf.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades an authorization code for a token pair.
func Exchange(ctx context.Context, conf *oauth2.Config, code string) (*oauth2.Token, error) {
	if code == "" {
		return nil, errors.New("authorization code is required")
	}
	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange auth code: %w", err)
	}
	return tok, nil
}

// NewHTTPClient returns an HTTP client that authorizes requests with ts.
// The client is forced to HTTP/1.1 and bounded by timeout when it is positive.
func NewHTTPClient(ts oauth2.TokenSource, timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: &oauth2.Transport{
			Source: ts,
			Base: &http.Transport{
				Proxy:             http.ProxyFromEnvironment,
				ForceAttemptHTTP2: false,
			},
		},
		Timeout: timeout,
	}
}

// DefaultTokenFile returns the token path under the user cache directory.
func DefaultTokenFile() string {
	return filepath.Join(userCacheDir(), "meetingbooker", "google.token")
}

func userCacheDir() string {
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(homeDir(), "Library", "Caches")
	case "windows":
		for _, ev := range []string{"TEMP", "TMP"} {
			if v := os.Getenv(ev); v != "" {
				return v
			}
		}
		return os.TempDir()
	}
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return xdg
	}
	return filepath.Join(homeDir(), ".cache")
}

func homeDir() string {
	if runtime.GOOS == "windows" {
		return os.Getenv("HOMEDRIVE") + os.Getenv("HOMEPATH")
	}
	return os.Getenv("HOME")
}
