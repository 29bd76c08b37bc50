package main

import (
	"github.com/go-openapi/strfmt"
	"github.com/shopspring/decimal"
)

// ConsumptionInterval is one metering period's usage delta as returned by the
// Octopus consumption endpoint. Order matters downstream: the cumulative
// builder folds intervals in the order they arrive.
type ConsumptionInterval struct {
	IntervalStart strfmt.DateTime `json:"interval_start"`
	IntervalEnd   strfmt.DateTime `json:"interval_end"`
	Consumption   float64         `json:"consumption"`
}

// RateRecord is a tariff unit price, in pence per kWh, over the half-open
// window [ValidFrom, ValidTo). A zero ValidTo means the rate is still open.
type RateRecord struct {
	ValidFrom   strfmt.DateTime `json:"valid_from"`
	ValidTo     strfmt.DateTime `json:"valid_to"`
	ValueIncVat float64         `json:"value_inc_vat"`
}

// TariffWindow is a RateRecord folded onto inclusive calendar days, priced in
// currency per kWh, ready for Energy IQ.
type TariffWindow struct {
	From  strfmt.Date
	To    strfmt.Date
	Price decimal.Decimal
}

// CumulativeReading is the running consumption total up to and including the
// interval ending on Date.
type CumulativeReading struct {
	Date  strfmt.Date
	Total float64
}

// ItemError records a single failed submission and why.
type ItemError struct {
	Item string
	Err  error
}

// SubmitSummary aggregates per-item outcomes for one submission pass.
type SubmitSummary struct {
	Attempted int
	Succeeded int
	Failures  []ItemError
}

func (s SubmitSummary) Failed() int {
	return len(s.Failures)
}
