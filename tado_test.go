package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type staticAuth struct {
	token *oauth2.Token
}

func (s staticAuth) Token(ctx context.Context) (*oauth2.Token, error) {
	return s.token, nil
}

func testToken() *oauth2.Token {
	return &oauth2.Token{
		AccessToken: "test-token",
		TokenType:   "bearer",
		Expiry:      time.Now().Add(time.Hour),
	}
}

func TestTadoServicePushes(t *testing.T) {
	var gotTariff, gotReading map[string]any
	mockRoundTripper := &MockRoundTripper{
		Handler: func(req *http.Request) (*http.Response, error) {
			require.Equal(t, "Bearer test-token", req.Header.Get("Authorization"))

			switch {
			case req.URL.Path == "/api/v2/me":
				return jsonResponse(http.StatusOK, `{"homes": [{"id": 42, "name": "Home"}]}`), nil
			case strings.HasSuffix(req.URL.Path, "/homes/42/tariffs"):
				body, err := io.ReadAll(req.Body)
				require.NoError(t, err)
				require.NoError(t, json.Unmarshal(body, &gotTariff))
				return jsonResponse(http.StatusOK, `{}`), nil
			case strings.HasSuffix(req.URL.Path, "/homes/42/meterReadings"):
				body, err := io.ReadAll(req.Body)
				require.NoError(t, err)
				require.NoError(t, json.Unmarshal(body, &gotReading))
				return jsonResponse(http.StatusOK, `{}`), nil
			}
			t.Fatalf("unhandled request %s", req.URL)
			return nil, nil
		},
	}

	ctx := context.Background()
	service := NewTadoService(ctx, mockRoundTripper, staticAuth{testToken()}, testLogger())
	require.Equal(t, int64(42), service.homeID)

	window := TariffWindow{From: d(2025, 1, 1), To: d(2025, 1, 31), Price: decimal.NewFromFloat(0.063)}
	require.NoError(t, service.PushTariff(ctx, window))
	require.Equal(t, 6.3, gotTariff["tariffInCents"])
	require.Equal(t, "kWh", gotTariff["unit"])
	require.Equal(t, "2025-01-01", gotTariff["startDate"])
	require.Equal(t, "2025-01-31", gotTariff["endDate"])

	require.NoError(t, service.PushMeterReading(ctx, d(2025, 3, 5), 1234))
	require.Equal(t, "2025-03-05", gotReading["date"])
	require.Equal(t, float64(1234), gotReading["reading"])
}

func TestTadoServicePushErrorSurfaces(t *testing.T) {
	mockRoundTripper := &MockRoundTripper{
		Handler: func(req *http.Request) (*http.Response, error) {
			if req.URL.Path == "/api/v2/me" {
				return jsonResponse(http.StatusOK, `{"homes": [{"id": 42, "name": "Home"}]}`), nil
			}
			return jsonResponse(http.StatusUnprocessableEntity, `{"errors": [{"code": "tariffOverlap"}]}`), nil
		},
	}

	ctx := context.Background()
	service := NewTadoService(ctx, mockRoundTripper, staticAuth{testToken()}, testLogger())

	err := service.PushTariff(ctx, TariffWindow{From: d(2025, 1, 1), To: d(2025, 1, 31), Price: decimal.NewFromFloat(0.063)})
	require.Error(t, err)
	require.Contains(t, err.Error(), "422")
	require.Contains(t, err.Error(), "tariffOverlap")
}

type brokenBody struct{}

func (brokenBody) Read([]byte) (int, error) {
	return 0, errors.New("connection reset")
}

func (brokenBody) Close() error {
	return nil
}

func TestTadoServicePushBodyReadErrorSurfaces(t *testing.T) {
	mockRoundTripper := &MockRoundTripper{
		Handler: func(req *http.Request) (*http.Response, error) {
			if req.URL.Path == "/api/v2/me" {
				return jsonResponse(http.StatusOK, `{"homes": [{"id": 42, "name": "Home"}]}`), nil
			}
			return &http.Response{
				StatusCode: http.StatusUnprocessableEntity,
				Body:       brokenBody{},
				Header:     make(http.Header),
			}, nil
		},
	}

	ctx := context.Background()
	service := NewTadoService(ctx, mockRoundTripper, staticAuth{testToken()}, testLogger())

	// A body that dies mid-read reports the read failure, not an empty body.
	err := service.PushMeterReading(ctx, d(2025, 3, 5), 1234)
	require.Error(t, err)
	require.Contains(t, err.Error(), "connection reset")
}

func TestTadoServiceHomeLookupFailureDefers(t *testing.T) {
	mockRoundTripper := &MockRoundTripper{
		Handler: func(req *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusUnauthorized, `{"errors": [{"code": "unauthorized"}]}`), nil
		},
	}

	ctx := context.Background()
	// Construction still succeeds; the auth failure comes back per push.
	service := NewTadoService(ctx, mockRoundTripper, staticAuth{testToken()}, testLogger())
	require.Equal(t, int64(0), service.homeID)

	err := service.PushMeterReading(ctx, d(2025, 3, 5), 1234)
	require.Error(t, err)
	require.Contains(t, err.Error(), "401")
}
