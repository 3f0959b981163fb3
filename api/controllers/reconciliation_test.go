package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/dpo-global/issuance-backend/internal/reconciliation"
	"github.com/dpo-global/issuance-backend/pkg/db/models"
	"github.com/dpo-global/issuance-backend/pkg/enums"
	pkgerrors "github.com/dpo-global/issuance-backend/pkg/errors"
	"github.com/dpo-global/issuance-backend/pkg/logger"
)

type testReconciliationService struct {
	sweepFn  func(ctx context.Context, opts reconciliation.SweepOptions) (*models.ReconciliationRun, error)
	reportFn func(ctx context.Context, scope *enums.CSDSystem, start, end time.Time) (*reconciliation.Report, error)
}

func (t *testReconciliationService) Sweep(ctx context.Context, opts reconciliation.SweepOptions) (*models.ReconciliationRun, error) {
	if t.sweepFn != nil {
		return t.sweepFn(ctx, opts)
	}
	return &models.ReconciliationRun{ID: uuid.New(), TriggeredBy: opts.Trigger, StartedAt: time.Now()}, nil
}

func (t *testReconciliationService) BuildReport(ctx context.Context, scope *enums.CSDSystem, start, end time.Time) (*reconciliation.Report, error) {
	if t.reportFn != nil {
		return t.reportFn(ctx, scope, start, end)
	}
	return &reconciliation.Report{WindowStart: start, WindowEnd: end, GeneratedAt: time.Now()}, nil
}

func TestTriggerReconciliationRunDefaults(t *testing.T) {
	var seen *reconciliation.SweepOptions
	finished := time.Date(2026, 5, 10, 9, 30, 0, 0, time.UTC)
	svc := &testReconciliationService{
		sweepFn: func(_ context.Context, opts reconciliation.SweepOptions) (*models.ReconciliationRun, error) {
			seen = &opts
			return &models.ReconciliationRun{
				ID:          uuid.New(),
				TriggeredBy: opts.Trigger,
				Total:       4,
				Reconciled:  3,
				Mismatched:  1,
				Systems:     []string{"CLEARSTREAM", "DTCC"},
				StartedAt:   finished.Add(-time.Minute),
				FinishedAt:  &finished,
			}, nil
		},
	}
	handler := TriggerReconciliationRun(svc, logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))

	req := httptest.NewRequest(http.MethodPost, "/v1/reconciliation/runs", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if seen == nil {
		t.Fatal("expected sweep invoked")
	}
	if seen.Trigger != enums.TriggerAPI {
		t.Fatalf("expected api trigger got %q", seen.Trigger)
	}
	if seen.Scope != nil {
		t.Fatalf("expected nil scope got %v", *seen.Scope)
	}
	if seen.Limit != 0 || seen.MaxConcurrent != 0 {
		t.Fatalf("expected zero overrides got limit=%d max_concurrent=%d", seen.Limit, seen.MaxConcurrent)
	}

	var envelope struct {
		Data runSummary `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data.TriggeredBy != "api" {
		t.Fatalf("expected api got %q", envelope.Data.TriggeredBy)
	}
	if envelope.Data.Total != 4 || envelope.Data.Reconciled != 3 || envelope.Data.Mismatched != 1 {
		t.Fatalf("unexpected counts %+v", envelope.Data)
	}
	if len(envelope.Data.Systems) != 2 {
		t.Fatalf("unexpected systems %v", envelope.Data.Systems)
	}
	if envelope.Data.FinishedAt == nil {
		t.Fatal("expected finished_at in summary")
	}
}

func TestTriggerReconciliationRunForwardsOverrides(t *testing.T) {
	var seen *reconciliation.SweepOptions
	svc := &testReconciliationService{
		sweepFn: func(_ context.Context, opts reconciliation.SweepOptions) (*models.ReconciliationRun, error) {
			seen = &opts
			return &models.ReconciliationRun{ID: uuid.New(), TriggeredBy: opts.Trigger, StartedAt: time.Now()}, nil
		},
	}
	handler := TriggerReconciliationRun(svc, logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))

	body := `{"scope":"DTCC","limit":25,"max_concurrent":2}`
	req := httptest.NewRequest(http.MethodPost, "/v1/reconciliation/runs", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if seen == nil {
		t.Fatal("expected sweep invoked")
	}
	if seen.Scope == nil || *seen.Scope != enums.CSDSystemDTCC {
		t.Fatalf("unexpected scope %v", seen.Scope)
	}
	if seen.Limit != 25 || seen.MaxConcurrent != 2 {
		t.Fatalf("unexpected overrides limit=%d max_concurrent=%d", seen.Limit, seen.MaxConcurrent)
	}
}

func TestTriggerReconciliationRunRejectsUnknownScope(t *testing.T) {
	invoked := false
	svc := &testReconciliationService{
		sweepFn: func(_ context.Context, opts reconciliation.SweepOptions) (*models.ReconciliationRun, error) {
			invoked = true
			return nil, nil
		},
	}
	handler := TriggerReconciliationRun(svc, logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))

	req := httptest.NewRequest(http.MethodPost, "/v1/reconciliation/runs", strings.NewReader(`{"scope":"LCH"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if invoked {
		t.Fatal("sweep should not run for an unknown scope")
	}
}

func TestTriggerReconciliationRunSurfacesSweepError(t *testing.T) {
	svc := &testReconciliationService{
		sweepFn: func(context.Context, reconciliation.SweepOptions) (*models.ReconciliationRun, error) {
			return nil, pkgerrors.New(pkgerrors.CodeDependency, "record sweep run")
		},
	}
	handler := TriggerReconciliationRun(svc, logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))

	req := httptest.NewRequest(http.MethodPost, "/v1/reconciliation/runs", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
}

func TestReconciliationReportForwardsWindow(t *testing.T) {
	var seenScope *enums.CSDSystem
	var seenStart, seenEnd time.Time
	svc := &testReconciliationService{
		reportFn: func(_ context.Context, scope *enums.CSDSystem, start, end time.Time) (*reconciliation.Report, error) {
			seenScope = scope
			seenStart = start
			seenEnd = end
			return &reconciliation.Report{
				Scope:       scope.String(),
				WindowStart: start,
				WindowEnd:   end,
				Total:       7,
				Reconciled:  6,
				Discrepant:  1,
				GeneratedAt: time.Now(),
			}, nil
		},
	}
	handler := ReconciliationReport(svc, logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))

	target := "/v1/reconciliation/report?scope=CLEARSTREAM&start=2026-05-01T00:00:00Z&end=2026-05-31T00:00:00Z"
	req := httptest.NewRequest(http.MethodGet, target, nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if seenScope == nil || *seenScope != enums.CSDSystemClearstream {
		t.Fatalf("unexpected scope %v", seenScope)
	}
	if !seenStart.Equal(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected start %s", seenStart)
	}
	if !seenEnd.Equal(time.Date(2026, 5, 31, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected end %s", seenEnd)
	}
	var envelope struct {
		Data reconciliation.Report `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data.Total != 7 || envelope.Data.Reconciled != 6 {
		t.Fatalf("unexpected report %+v", envelope.Data)
	}
}

func TestReconciliationReportRejectsInvertedWindow(t *testing.T) {
	invoked := false
	svc := &testReconciliationService{
		reportFn: func(_ context.Context, scope *enums.CSDSystem, start, end time.Time) (*reconciliation.Report, error) {
			invoked = true
			return nil, nil
		},
	}
	handler := ReconciliationReport(svc, logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))

	target := "/v1/reconciliation/report?start=2026-05-31T00:00:00Z&end=2026-05-01T00:00:00Z"
	req := httptest.NewRequest(http.MethodGet, target, nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if invoked {
		t.Fatal("report should not run for an inverted window")
	}
}

func TestReconciliationReportRequiresWindow(t *testing.T) {
	handler := ReconciliationReport(&testReconciliationService{}, logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))

	req := httptest.NewRequest(http.MethodGet, "/v1/reconciliation/report", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
