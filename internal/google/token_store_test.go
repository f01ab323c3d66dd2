package google

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestEnvTokenStore(t *testing.T) {
	_, err := (&EnvTokenStore{}).Load()
	assert.ErrorIs(t, err, ErrNoToken)

	tok, err := (&EnvTokenStore{AccessToken: "a", RefreshToken: "r"}).Load()
	require.NoError(t, err)
	assert.False(t, tok.Valid(), "env tokens with refresh token start expired")

	tok, err = (&EnvTokenStore{AccessToken: "a"}).Load()
	require.NoError(t, err)
	assert.True(t, tok.Valid(), "access-only token without expiry is used as is")
}

func TestFileTokenStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dir", "google.token")
	store := NewFileTokenStore(path)

	_, err := store.Load()
	assert.ErrorIs(t, err, ErrNoToken)

	expiry := time.Now().Add(time.Hour).Truncate(time.Second)
	require.NoError(t, store.Save(&oauth2.Token{AccessToken: "a", RefreshToken: "r", Expiry: expiry}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	tok, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "r", tok.RefreshToken)
	assert.True(t, tok.Expiry.Equal(expiry))
}

func TestFileTokenStore_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "google.token")
	require.NoError(t, os.WriteFile(path, []byte("access refresh"), 0600))

	_, err := NewFileTokenStore(path).Load()
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoToken)
}

func TestChainTokenStore(t *testing.T) {
	file := NewFileTokenStore(filepath.Join(t.TempDir(), "google.token"))
	chain := ChainTokenStore{&EnvTokenStore{}, file}

	_, err := chain.Load()
	assert.ErrorIs(t, err, ErrNoToken)
	assert.Equal(t, "none", chain.Name())

	require.NoError(t, chain.Save(&oauth2.Token{AccessToken: "a", RefreshToken: "r"}))

	tok, err := chain.Load()
	require.NoError(t, err)
	assert.Equal(t, "a", tok.AccessToken)
	assert.Equal(t, "file", chain.Name())
}

func TestNewFileTokenStore_DefaultPath(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/cache")
	store := NewFileTokenStore("")
	assert.Equal(t, "google.token", filepath.Base(store.Path))
	assert.Equal(t, "meetingbooker", filepath.Base(filepath.Dir(store.Path)))
}
