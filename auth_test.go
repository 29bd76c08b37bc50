package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestDeviceAuthenticatorUsesCachedToken(t *testing.T) {
	tokenFile := filepath.Join(t.TempDir(), "token.json")

	noLogin := func(ctx context.Context, verificationURL string) error {
		t.Fatal("login must not run when a valid token is cached")
		return nil
	}
	auth := NewDeviceAuthenticator(tokenFile, noLogin, testLogger())

	cached := &oauth2.Token{
		AccessToken:  "cached-access",
		RefreshToken: "cached-refresh",
		TokenType:    "bearer",
		Expiry:       time.Now().Add(time.Hour),
	}
	auth.saveToken(cached)

	got, err := auth.Token(context.Background())
	require.NoError(t, err)
	require.Equal(t, "cached-access", got.AccessToken)

	// The token is persisted back after use.
	reloaded := auth.loadToken()
	require.NotNil(t, reloaded)
	require.Equal(t, "cached-access", reloaded.AccessToken)
	require.Equal(t, "cached-refresh", reloaded.RefreshToken)
}

func TestTokenCacheRoundTrip(t *testing.T) {
	tokenFile := filepath.Join(t.TempDir(), "token.json")
	auth := NewDeviceAuthenticator(tokenFile, nil, testLogger())

	require.Nil(t, auth.loadToken(), "missing cache file yields no token")

	token := &oauth2.Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		TokenType:    "bearer",
		Expiry:       time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	auth.saveToken(token)

	got := auth.loadToken()
	require.NotNil(t, got)
	require.Equal(t, token.AccessToken, got.AccessToken)
	require.Equal(t, token.RefreshToken, got.RefreshToken)
	require.True(t, token.Expiry.Equal(got.Expiry))
}

func TestTokenCacheDiscardsCorruptFile(t *testing.T) {
	tokenFile := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, os.WriteFile(tokenFile, []byte("not json"), 0600))

	auth := NewDeviceAuthenticator(tokenFile, nil, testLogger())
	require.Nil(t, auth.loadToken())
}

func TestNewDeviceAuthenticatorDefaults(t *testing.T) {
	auth := NewDeviceAuthenticator("", nil, testLogger())
	require.Equal(t, defaultTokenFile, auth.TokenFile)
	require.Equal(t, tadoClientID, auth.Config.ClientID)
	require.NotEmpty(t, auth.Config.Endpoint.DeviceAuthURL)
}
