package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

const octopusBaseURL = "https://api.octopus.energy/v1"

// Consumption grouping granularities and the fixed epoch each one backfills
// from when no explicit start is given.
const (
	GroupByDay     = "day"
	GroupByQuarter = "quarter"
)

var defaultPeriodFrom = map[string]time.Time{
	GroupByDay:     time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC),
	GroupByQuarter: time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
}

// OctopusService handles interactions with the Octopus Energy API.
type OctopusService struct {
	client  *http.Client
	apiKey  string
	baseURL string
	log     *zap.SugaredLogger
}

// NewOctopusService creates a new OctopusService with pre-configured authentication.
func NewOctopusService(rt http.RoundTripper, apiKey string, log *zap.SugaredLogger) *OctopusService {
	return &OctopusService{
		client:  &http.Client{Transport: rt},
		apiKey:  apiKey,
		baseURL: octopusBaseURL,
		log:     log,
	}
}

type consumptionPage struct {
	Results []ConsumptionInterval `json:"results"`
	Next    string                `json:"next"`
}

type ratesPage struct {
	Results []RateRecord `json:"results"`
}

// GetGasConsumption retrieves gas consumption for the given meter point and
// serial number, following the pagination cursor until exhausted. Fetching is
// best effort: a transport failure or non-success status ends the walk and
// whatever accumulated so far is returned, never an error.
func (s *OctopusService) GetGasConsumption(ctx context.Context, mprn, serial, groupBy string, periodFrom time.Time) []ConsumptionInterval {
	if periodFrom.IsZero() {
		periodFrom = defaultPeriodFrom[groupBy]
	}

	query := url.Values{}
	query.Set("group_by", groupBy)
	query.Set("order_by", "period")
	query.Set("period_from", periodFrom.UTC().Format(time.RFC3339))
	next := fmt.Sprintf("%s/gas-meter-points/%s/meters/%s/consumption/?%s",
		s.baseURL, url.PathEscape(mprn), url.PathEscape(serial), query.Encode())

	var consumption []ConsumptionInterval
	for next != "" {
		var page consumptionPage
		if !s.get(ctx, next, &page) {
			break
		}
		consumption = append(consumption, page.Results...)
		next = page.Next
	}

	s.log.Infof("Consumption data retrieved: %d records", len(consumption))
	return consumption
}

// GetGasRates retrieves the standard unit rates for the given gas product.
// Best effort, like GetGasConsumption: any failure yields an empty slice.
func (s *OctopusService) GetGasRates(ctx context.Context, shortCode, longCode string) []RateRecord {
	u := fmt.Sprintf("%s/products/%s/gas-tariffs/%s/standard-unit-rates/",
		s.baseURL, url.PathEscape(shortCode), url.PathEscape(longCode))

	var page ratesPage
	if !s.get(ctx, u, &page) {
		return nil
	}

	s.log.Infof("Fetched %d gas rate records", len(page.Results))
	return page.Results
}

// get performs one authenticated GET and decodes the body into out. It
// reports whether the call succeeded; failures are logged, never returned.
func (s *OctopusService) get(ctx context.Context, u string, out any) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		s.log.Errorf("Error building Octopus request: %v", err)
		return false
	}
	req.SetBasicAuth(s.apiKey, "")

	resp, err := s.client.Do(req)
	if err != nil {
		s.log.Errorf("Error querying Octopus data: %v", err)
		return false
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		s.log.Errorf("Error reading Octopus response: %v", err)
		return false
	}
	if resp.StatusCode != http.StatusOK {
		s.log.Errorf("Failed to retrieve Octopus data. Status code: %d, Message: %s", resp.StatusCode, body)
		return false
	}
	if err := json.Unmarshal(body, out); err != nil {
		s.log.Errorf("Error decoding Octopus response: %v", err)
		return false
	}
	return true
}
