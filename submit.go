package main

import (
	"context"
	"fmt"

	"github.com/go-openapi/strfmt"
	"go.uber.org/zap"
)

// energyIQSession is the authenticated capability the submission driver needs
// from the target system.
type energyIQSession interface {
	PushTariff(ctx context.Context, w TariffWindow) error
	PushMeterReading(ctx context.Context, date strfmt.Date, reading int64) error
}

// submitter pushes transformed items one at a time. A failed item is recorded
// in the summary and the loop moves on; one bad item never aborts the rest.
// There is no retry and no deduplication: re-pushing the same date or window
// is the target system's concern.
type submitter struct {
	session energyIQSession
	log     *zap.SugaredLogger
}

// SubmitTariffs pushes each tariff window and reports per-item outcomes.
func (s *submitter) SubmitTariffs(ctx context.Context, windows []TariffWindow) SubmitSummary {
	summary := SubmitSummary{Attempted: len(windows)}
	for _, w := range windows {
		item := fmt.Sprintf("%s to %s", w.From, w.To)
		if err := s.session.PushTariff(ctx, w); err != nil {
			s.log.Errorf("Error sending rate for %s: %v", item, err)
			summary.Failures = append(summary.Failures, ItemError{Item: item, Err: err})
			continue
		}
		s.log.Infof("Rate sent successfully for %s", item)
		summary.Succeeded++
	}
	return summary
}

// SubmitReadings pushes each cumulative reading, truncated to the integer
// value the meter-reading API expects.
func (s *submitter) SubmitReadings(ctx context.Context, readings []CumulativeReading) SubmitSummary {
	summary := SubmitSummary{Attempted: len(readings)}
	for _, r := range readings {
		if err := s.session.PushMeterReading(ctx, r.Date, int64(r.Total)); err != nil {
			s.log.Errorf("Error sending reading for %s: %v", r.Date, err)
			summary.Failures = append(summary.Failures, ItemError{Item: r.Date.String(), Err: err})
			continue
		}
		s.log.Infof("Reading sent successfully for %s: %d", r.Date, int64(r.Total))
		summary.Succeeded++
	}
	return summary
}
