package reconciliation

import (
	"context"
	"fmt"
	"time"

	"github.com/dpo-global/issuance-backend/pkg/enums"
)

// Report summarizes settlement statuses over a settled_at window. An empty
// Scope means all settlement systems.
type Report struct {
	Scope         string        `json:"scope,omitempty"`
	WindowStart   time.Time     `json:"window_start"`
	WindowEnd     time.Time     `json:"window_end"`
	Total         int           `json:"total"`
	Reconciled    int           `json:"reconciled"`
	Pending       int           `json:"pending"`
	Discrepant    int           `json:"discrepant"`
	Discrepancies []Discrepancy `json:"discrepancies"`
	GeneratedAt   time.Time     `json:"generated_at"`
}

// Discrepancy describes one record a report reader has to chase: a
// confirmed mismatch or a record that exhausted verification.
type Discrepancy struct {
	ExternalReference string `json:"external_reference"`
	Reason            string `json:"reason,omitempty"`
}

// BuildReport aggregates persisted settlement statuses over the window.
// It reads what previous sweeps wrote; it never calls a depository.
func (s *Service) BuildReport(ctx context.Context, scope *enums.CSDSystem, start, end time.Time) (*Report, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("report window end %s precedes start %s", end.Format(time.RFC3339), start.Format(time.RFC3339))
	}

	counts, err := s.repo.StatusCountsInWindow(ctx, scope, start, end)
	if err != nil {
		return nil, fmt.Errorf("build report: %w", err)
	}
	records, err := s.repo.DiscrepanciesInWindow(ctx, scope, start, end)
	if err != nil {
		return nil, fmt.Errorf("build report: %w", err)
	}

	report := &Report{
		WindowStart:   start,
		WindowEnd:     end,
		Reconciled:    counts[enums.SettlementStatusReconciled],
		Pending:       counts[enums.SettlementStatusPending],
		Discrepant:    counts[enums.SettlementStatusDiscrepant] + counts[enums.SettlementStatusFailed],
		Discrepancies: make([]Discrepancy, 0, len(records)),
		GeneratedAt:   s.now().UTC(),
	}
	if scope != nil {
		report.Scope = scope.String()
	}
	for _, count := range counts {
		report.Total += count
	}
	for _, record := range records {
		item := Discrepancy{ExternalReference: record.ExternalReference}
		if record.StatusReason != nil {
			item.Reason = *record.StatusReason
		}
		report.Discrepancies = append(report.Discrepancies, item)
	}
	return report, nil
}
