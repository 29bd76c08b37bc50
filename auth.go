package main

import (
	"context"
	"encoding/json"
	"os"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// Tado's public device-code client, the same one its web app uses.
const tadoClientID = "1bb50063-6b0c-4d11-bd99-387f4a91cc46"

var tadoOAuthEndpoint = oauth2.Endpoint{
	AuthURL:       "https://login.tado.com/oauth2/authorize",
	TokenURL:      "https://login.tado.com/oauth2/token",
	DeviceAuthURL: "https://login.tado.com/oauth2/device_authorize",
}

const defaultTokenFile = "/tmp/tado-refresh-token"

// authenticator yields the session credential the Tado pushes run under.
type authenticator interface {
	Token(ctx context.Context) (*oauth2.Token, error)
}

// loginFunc completes the identity-provider login for a device-activation
// verification URL. The default is the chromedp driver in browser.go; tests
// substitute their own.
type loginFunc func(ctx context.Context, verificationURL string) error

// DeviceAuthenticator obtains a Tado session through the OAuth device
// authorization grant, caching the token on disk between runs.
type DeviceAuthenticator struct {
	Config    *oauth2.Config
	TokenFile string
	Login     loginFunc
	Log       *zap.SugaredLogger
}

func NewDeviceAuthenticator(tokenFile string, login loginFunc, log *zap.SugaredLogger) *DeviceAuthenticator {
	if tokenFile == "" {
		tokenFile = defaultTokenFile
	}
	return &DeviceAuthenticator{
		Config: &oauth2.Config{
			ClientID: tadoClientID,
			Endpoint: tadoOAuthEndpoint,
			Scopes:   []string{"offline_access"},
		},
		TokenFile: tokenFile,
		Login:     login,
		Log:       log,
	}
}

// Token returns a cached token when one is still usable, otherwise runs the
// device-activation flow. An activation failure is logged, not returned: the
// run proceeds unauthenticated and the first push surfaces the real error.
func (a *DeviceAuthenticator) Token(ctx context.Context) (*oauth2.Token, error) {
	if cached := a.loadToken(); cached != nil {
		token, err := a.Config.TokenSource(ctx, cached).Token()
		if err == nil {
			a.saveToken(token)
			return token, nil
		}
		a.Log.Warnf("Cached Tado token unusable, reactivating: %v", err)
	}

	token := a.activate(ctx)
	if token == nil {
		return &oauth2.Token{}, nil
	}
	a.saveToken(token)
	return token, nil
}

// activate runs the device-authorization handshake: fetch a verification URL,
// drive the interactive login against it, then poll until a terminal status.
func (a *DeviceAuthenticator) activate(ctx context.Context) *oauth2.Token {
	resp, err := a.Config.DeviceAuth(ctx)
	if err != nil {
		a.Log.Errorf("Device authorization request failed: %v", err)
		return nil
	}

	verificationURL := resp.VerificationURIComplete
	if verificationURL == "" {
		verificationURL = resp.VerificationURI
	}
	a.Log.Infof("Completing Tado login at %s", verificationURL)

	if a.Login != nil {
		if err := a.Login(ctx, verificationURL); err != nil {
			// The poll below still runs: the login may have been completed
			// manually in another browser.
			a.Log.Errorf("Browser login failed: %v", err)
		}
	}

	token, err := a.Config.DeviceAccessToken(ctx, resp)
	if err != nil {
		a.Log.Errorf("Device activation did not complete: %v", err)
		return nil
	}

	a.Log.Info("Login successful")
	return token
}

func (a *DeviceAuthenticator) loadToken() *oauth2.Token {
	data, err := os.ReadFile(a.TokenFile)
	if err != nil {
		return nil
	}
	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		a.Log.Warnf("Discarding unreadable token cache %s: %v", a.TokenFile, err)
		return nil
	}
	return &token
}

func (a *DeviceAuthenticator) saveToken(token *oauth2.Token) {
	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		a.Log.Errorf("Failed to encode token cache: %v", err)
		return
	}
	if err := os.WriteFile(a.TokenFile, data, 0600); err != nil {
		a.Log.Errorf("Failed to write token cache %s: %v", a.TokenFile, err)
	}
}
