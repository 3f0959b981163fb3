package reconciliation

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/dpo-global/issuance-backend/internal/csd"
	"github.com/dpo-global/issuance-backend/pkg/db/models"
	"github.com/dpo-global/issuance-backend/pkg/enums"
	"github.com/dpo-global/issuance-backend/pkg/logger"
	"github.com/dpo-global/issuance-backend/pkg/metrics"
)

const defaultSweepLimit = 500

// auditSink is the subset of the BigQuery client a sweep needs to export
// its outcome audit rows.
type auditSink interface {
	InsertRows(ctx context.Context, table string, rows []any) error
}

// Service drives reconciliation sweeps: it selects candidate records,
// pairs them with depository mappings, runs the verification engine, and
// persists the classified outcomes plus a run summary.
type Service struct {
	repo       Repository
	engine     *Engine
	audit      auditSink
	auditTable string
	metrics    *metrics.ReconciliationMetrics
	logg       *logger.Logger
	now        func() time.Time
}

// ServiceParams configures NewService. Audit and Metrics are optional;
// sweeps run without them.
type ServiceParams struct {
	Repository Repository
	Engine     *Engine
	Audit      auditSink
	AuditTable string
	Metrics    *metrics.ReconciliationMetrics
	Logger     *logger.Logger
}

// NewService validates dependencies and builds a reconciliation service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if params.Engine == nil {
		return nil, fmt.Errorf("engine is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Service{
		repo:       params.Repository,
		engine:     params.Engine,
		audit:      params.Audit,
		auditTable: params.AuditTable,
		metrics:    params.Metrics,
		logg:       params.Logger,
		now:        time.Now,
	}, nil
}

// SweepOptions scopes one sweep.
type SweepOptions struct {
	Scope         *enums.CSDSystem
	Trigger       enums.ReconciliationTrigger
	Limit         int
	MaxConcurrent int64
}

// Sweep runs one reconciliation pass and returns the persisted run
// summary. Records whose provider could not answer keep their current
// status and are retried by the next sweep. Once verification calls are
// in flight their outcomes are always persisted, even if ctx is cancelled
// mid-sweep.
func (s *Service) Sweep(ctx context.Context, opts SweepOptions) (*models.ReconciliationRun, error) {
	trigger := opts.Trigger
	if trigger == "" {
		trigger = enums.TriggerWorker
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultSweepLimit
	}
	started := s.now().UTC()

	run := &models.ReconciliationRun{
		TriggeredBy: trigger,
		StartedAt:   started,
	}
	if opts.Scope != nil {
		scope := opts.Scope.String()
		run.Scope = &scope
	}
	if err := s.repo.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("create reconciliation run: %w", err)
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"run_id":  run.ID,
		"trigger": trigger,
	})

	records, err := s.repo.PendingRecords(ctx, opts.Scope, limit)
	if err != nil {
		return nil, fmt.Errorf("sweep %s: %w", run.ID, err)
	}
	mappings, err := s.repo.ActiveMappings(ctx)
	if err != nil {
		return nil, fmt.Errorf("sweep %s: %w", run.ID, err)
	}

	pairs, skipped := s.pairRecords(logCtx, records, mappings)
	outcomes := s.engine.ReconcileBatch(ctx, pairs, opts.MaxConcurrent)

	run.Total = len(records)
	applyCtx := context.WithoutCancel(logCtx)
	audit := make([]any, 0, len(outcomes))
	systems := map[string]struct{}{}
	for _, pair := range pairs {
		outcome, ok := outcomes[pair.Record.ExternalReference]
		if !ok {
			continue
		}
		systems[pair.Record.SettlementSystem.String()] = struct{}{}
		s.metrics.IncOutcome(pair.Record.SettlementSystem.String(), outcome.Status.String())
		verifiedAt := s.now().UTC()
		s.applyOutcome(applyCtx, run, pair.Record, outcome, verifiedAt)
		audit = append(audit, buildAuditRow(run.ID, pair.Record, outcome, verifiedAt))
	}

	run.Systems = sortedSystems(systems)
	finished := s.now().UTC()
	run.FinishedAt = &finished
	if err := s.repo.FinishRun(applyCtx, run); err != nil {
		return nil, fmt.Errorf("finish reconciliation run %s: %w", run.ID, err)
	}

	s.exportAudit(applyCtx, audit)
	s.metrics.ObserveSweep(trigger.String(), finished.Sub(started))

	s.logg.Info(s.logg.WithFields(logCtx, map[string]any{
		"total":       run.Total,
		"reconciled":  run.Reconciled,
		"mismatched":  run.Mismatched,
		"unavailable": run.Unavailable,
		"failed":      run.Failed,
		"no_mapping":  skipped,
		"duration_ms": finished.Sub(started).Milliseconds(),
	}), "reconciliation sweep complete")

	return run, nil
}

// pairRecords joins each record with the freshest active mapping for its
// settlement system. Records without a mapping are left untouched; they
// surface again once operations activates one.
func (s *Service) pairRecords(ctx context.Context, records []models.SettlementRecord, mappings []models.CSDMapping) ([]Pair, int) {
	mappingBySystem := make(map[enums.CSDSystem]*models.CSDMapping, len(mappings))
	for i := range mappings {
		mapping := &mappings[i]
		if _, ok := mappingBySystem[mapping.CSDSystem]; !ok {
			mappingBySystem[mapping.CSDSystem] = mapping
		}
	}

	pairs := make([]Pair, 0, len(records))
	skipped := 0
	for i := range records {
		record := &records[i]
		mapping, ok := mappingBySystem[record.SettlementSystem]
		if !ok {
			skipped++
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
				"external_reference": record.ExternalReference,
				"system":             record.SettlementSystem,
			}), "no active mapping for settlement record")
			continue
		}
		pairs = append(pairs, Pair{Record: record, Mapping: mapping})
	}
	return pairs, skipped
}

// applyOutcome translates one verification outcome into a status
// transition and tallies it on the run. PROVIDER_UNAVAILABLE never touches
// the record.
func (s *Service) applyOutcome(ctx context.Context, run *models.ReconciliationRun, record *models.SettlementRecord, outcome csd.Outcome, verifiedAt time.Time) {
	var status enums.SettlementStatus
	switch outcome.Status {
	case enums.VerificationReconciled:
		run.Reconciled++
		status = enums.SettlementStatusReconciled
	case enums.VerificationMismatch:
		run.Mismatched++
		status = enums.SettlementStatusDiscrepant
	case enums.VerificationNotConfigured, enums.VerificationUnsupportedProvider:
		run.Failed++
		status = enums.SettlementStatusFailed
	case enums.VerificationProviderUnavailable:
		run.Unavailable++
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"external_reference": record.ExternalReference,
			"system":             record.SettlementSystem,
			"reason":             outcome.Reason,
		}), "depository unavailable, record left for next sweep")
		return
	default:
		run.Failed++
		status = enums.SettlementStatusFailed
	}

	var reason *string
	if outcome.Reason != "" {
		value := outcome.Reason
		reason = &value
	}
	if err := s.repo.ApplyVerification(ctx, record.ID, status, reason, verifiedAt); err != nil {
		s.logg.Error(s.logg.WithField(ctx, "external_reference", record.ExternalReference),
			"failed to persist verification outcome", err)
	}
}

func (s *Service) exportAudit(ctx context.Context, rows []any) {
	if s.audit == nil || s.auditTable == "" || len(rows) == 0 {
		return
	}
	if err := s.audit.InsertRows(ctx, s.auditTable, rows); err != nil {
		s.logg.Error(s.logg.WithField(ctx, "rows", len(rows)),
			"failed to export reconciliation audit rows", err)
	}
}

func sortedSystems(systems map[string]struct{}) pq.StringArray {
	out := make(pq.StringArray, 0, len(systems))
	for system := range systems {
		out = append(out, system)
	}
	sort.Strings(out)
	return out
}

type outcomeAuditRow struct {
	RunID             string    `bigquery:"run_id"`
	RecordID          string    `bigquery:"record_id"`
	ExternalReference string    `bigquery:"external_reference"`
	SettlementSystem  string    `bigquery:"settlement_system"`
	Units             string    `bigquery:"units"`
	Outcome           string    `bigquery:"outcome"`
	Reason            *string   `bigquery:"reason"`
	VerifiedAt        time.Time `bigquery:"verified_at"`
}

func buildAuditRow(runID uuid.UUID, record *models.SettlementRecord, outcome csd.Outcome, verifiedAt time.Time) *outcomeAuditRow {
	var reason *string
	if outcome.Reason != "" {
		value := outcome.Reason
		reason = &value
	}
	return &outcomeAuditRow{
		RunID:             runID.String(),
		RecordID:          record.ID.String(),
		ExternalReference: record.ExternalReference,
		SettlementSystem:  record.SettlementSystem.String(),
		Units:             record.Units.String(),
		Outcome:           outcome.Status.String(),
		Reason:            reason,
		VerifiedAt:        verifiedAt,
	}
}
