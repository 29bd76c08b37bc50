package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-openapi/strfmt"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const (
	tadoAPIBaseURL            = "https://my.tado.com/api/v2"
	tadoEnergyInsightsBaseURL = "https://energy-insights.tado.com/api"
)

var centsInUnit = decimal.NewFromInt(100)

// TadoService is an authenticated Energy IQ session for one Tado home.
type TadoService struct {
	client  *http.Client
	homeID  int64
	apiBase string
	eiqBase string
	log     *zap.SugaredLogger
}

// NewTadoService obtains a token from the authenticator and resolves the home
// the tariffs and readings belong to. A failed lookup is logged rather than
// returned: the session stays usable and the real failure surfaces on the
// first push.
func NewTadoService(ctx context.Context, rt http.RoundTripper, auth authenticator, log *zap.SugaredLogger) *TadoService {
	token, err := auth.Token(ctx)
	if err != nil {
		log.Errorf("Failed to obtain Tado session token: %v", err)
		token = &oauth2.Token{}
	}

	cctx := context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Transport: rt})
	svc := &TadoService{
		client:  oauth2.NewClient(cctx, oauth2.StaticTokenSource(token)),
		apiBase: tadoAPIBaseURL,
		eiqBase: tadoEnergyInsightsBaseURL,
		log:     log,
	}

	if err := svc.resolveHome(ctx); err != nil {
		log.Errorf("Failed to resolve Tado home: %v", err)
	}
	return svc
}

// resolveHome looks up the account's first home, which Energy IQ data is
// pushed against.
func (s *TadoService) resolveHome(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.apiBase+"/me", nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d: %s", resp.StatusCode, body)
	}

	var me struct {
		Homes []struct {
			ID   int64  `json:"id"`
			Name string `json:"name"`
		} `json:"homes"`
	}
	if err := json.Unmarshal(body, &me); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	if len(me.Homes) == 0 {
		return fmt.Errorf("no homes on the account")
	}

	s.homeID = me.Homes[0].ID
	s.log.Infof("Using Tado home %d (%s)", me.Homes[0].ID, me.Homes[0].Name)
	return nil
}

// PushTariff records one tariff period in Energy IQ. The API prices in cents.
func (s *TadoService) PushTariff(ctx context.Context, w TariffWindow) error {
	payload := map[string]any{
		"tariffInCents": w.Price.Mul(centsInUnit).InexactFloat64(),
		"unit":          "kWh",
		"startDate":     w.From.String(),
		"endDate":       w.To.String(),
	}
	return s.post(ctx, fmt.Sprintf("%s/homes/%d/tariffs", s.eiqBase, s.homeID), payload)
}

// PushMeterReading records one cumulative meter reading in Energy IQ.
func (s *TadoService) PushMeterReading(ctx context.Context, date strfmt.Date, reading int64) error {
	payload := map[string]any{
		"date":    date.String(),
		"reading": reading,
	}
	return s.post(ctx, fmt.Sprintf("%s/homes/%d/meterReadings", s.eiqBase, s.homeID), payload)
}

func (s *TadoService) post(ctx context.Context, u string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("status %d: %s", resp.StatusCode, respBody)
	}
	return nil
}
