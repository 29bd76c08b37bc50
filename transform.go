package main

import (
	"fmt"
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/shopspring/decimal"
)

var penceInPound = decimal.NewFromInt(100)

// normalizeRateWindow converts a rate's half-open validity interval into the
// inclusive calendar-day range Energy IQ expects: the exclusive valid_to
// becomes the previous day. A rate with no end closes at today. The price
// comes back in currency per kWh rather than pence.
func normalizeRateWindow(r RateRecord, today strfmt.Date) (TariffWindow, error) {
	from := strfmt.Date(time.Time(r.ValidFrom))

	var to strfmt.Date
	if time.Time(r.ValidTo).IsZero() {
		to = today
	} else {
		to = strfmt.Date(time.Time(r.ValidTo).AddDate(0, 0, -1))
	}

	if truncateToMidnight(time.Time(to)).Before(truncateToMidnight(time.Time(from))) {
		return TariffWindow{}, fmt.Errorf("rate window inverts: valid_from %s, valid_to %s", r.ValidFrom, r.ValidTo)
	}

	return TariffWindow{
		From:  from,
		To:    to,
		Price: decimal.NewFromFloat(r.ValueIncVat).Div(penceInPound),
	}, nil
}

// buildCumulativeReadings folds per-interval deltas into the running total the
// Energy IQ meter-reading API expects, keyed by each interval's end date.
// Input order is significant and preserved. A negative delta would break the
// monotonic total, so the fold stops there and returns the valid prefix along
// with the error.
func buildCumulativeReadings(intervals []ConsumptionInterval) ([]CumulativeReading, error) {
	readings := make([]CumulativeReading, 0, len(intervals))
	total := 0.0

	for i, iv := range intervals {
		if iv.Consumption < 0 {
			return readings, fmt.Errorf("negative consumption %f for interval ending %s (index %d)", iv.Consumption, iv.IntervalEnd, i)
		}
		total += iv.Consumption
		readings = append(readings, CumulativeReading{
			Date:  strfmt.Date(time.Time(iv.IntervalEnd)),
			Total: total,
		})
	}

	return readings, nil
}

func truncateToMidnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
