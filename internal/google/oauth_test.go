package google

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestClientConfig_Validate(t *testing.T) {
	assert.Error(t, ClientConfig{}.Validate())
	assert.Error(t, ClientConfig{ClientID: "id"}.Validate())
	assert.NoError(t, ClientConfig{ClientID: "id", ClientSecret: "secret"}.Validate())
}

func TestClientConfig_OAuthConfigDefaults(t *testing.T) {
	conf := ClientConfig{ClientID: "id", ClientSecret: "secret"}.OAuthConfig()

	assert.Equal(t, OOBRedirectURL, conf.RedirectURL)
	assert.Equal(t, CalendarScopes, conf.Scopes)
}

func TestAuthURL(t *testing.T) {
	conf := ClientConfig{
		ClientID:     "id",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost:5001/oauth2callback",
		Scopes:       Scopes(false),
	}.OAuthConfig()

	u, err := url.Parse(AuthURL(conf, "state-1"))
	require.NoError(t, err)

	q := u.Query()
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "consent", q.Get("prompt"))
	assert.Equal(t, "state-1", q.Get("state"))
	assert.Equal(t, "http://localhost:5001/oauth2callback", q.Get("redirect_uri"))
	assert.Contains(t, q.Get("scope"), "https://www.googleapis.com/auth/calendar.events")
}

func TestScopes(t *testing.T) {
	assert.Len(t, Scopes(false), 2)
	withGmail := Scopes(true)
	assert.Len(t, withGmail, 3)
	assert.Contains(t, withGmail, "https://www.googleapis.com/auth/gmail.send")
	assert.Len(t, CalendarScopes, 2, "Scopes must not mutate CalendarScopes")
}

func TestExchange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		w.Header().Set("Content-Type", "application/json")
		if r.PostForm.Get("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"a","refresh_token":"r","token_type":"Bearer","expires_in":3600}`))
	}))
	defer srv.Close()

	conf := testOAuthConfig(srv.URL)
	ctx := t.Context()

	_, err := Exchange(ctx, conf, "")
	assert.Error(t, err)

	_, err = Exchange(ctx, conf, "bad-code")
	assert.Error(t, err)

	tok, err := Exchange(ctx, conf, "good-code")
	require.NoError(t, err)
	assert.Equal(t, "r", tok.RefreshToken)
}

func TestNewHTTPClient(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
	}))
	defer srv.Close()

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "abc", TokenType: "Bearer"})
	client := NewHTTPClient(ts, 5*time.Second)
	assert.Equal(t, 5*time.Second, client.Timeout)

	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, "Bearer abc", gotAuth)
}
