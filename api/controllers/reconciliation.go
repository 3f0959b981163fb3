package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/dpo-global/issuance-backend/api/responses"
	"github.com/dpo-global/issuance-backend/api/validators"
	"github.com/dpo-global/issuance-backend/internal/reconciliation"
	"github.com/dpo-global/issuance-backend/pkg/db/models"
	"github.com/dpo-global/issuance-backend/pkg/enums"
	pkgerrors "github.com/dpo-global/issuance-backend/pkg/errors"
	"github.com/dpo-global/issuance-backend/pkg/logger"
)

// ReconciliationService triggers sweeps and aggregates windowed reports.
type ReconciliationService interface {
	Sweep(ctx context.Context, opts reconciliation.SweepOptions) (*models.ReconciliationRun, error)
	BuildReport(ctx context.Context, scope *enums.CSDSystem, start, end time.Time) (*reconciliation.Report, error)
}

type triggerRunRequest struct {
	Scope         string `json:"scope"`
	Limit         int    `json:"limit" validate:"omitempty,min=1"`
	MaxConcurrent int64  `json:"max_concurrent" validate:"omitempty,min=1"`
}

type runSummary struct {
	ID          string     `json:"id"`
	Scope       string     `json:"scope,omitempty"`
	TriggeredBy string     `json:"triggered_by"`
	Total       int        `json:"total"`
	Reconciled  int        `json:"reconciled"`
	Mismatched  int        `json:"mismatched"`
	Unavailable int        `json:"unavailable"`
	Failed      int        `json:"failed"`
	Systems     []string   `json:"systems,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
}

// TriggerReconciliationRun starts a sweep over pending settlement records,
// optionally scoped to one depository, and returns the run summary.
func TriggerReconciliationRun(svc ReconciliationService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reconciliation service unavailable"))
			return
		}

		var req triggerRunRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &req); err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
		}

		scope, err := parseScope(req.Scope)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		run, err := svc.Sweep(ctx, reconciliation.SweepOptions{
			Scope:         scope,
			Trigger:       enums.TriggerAPI,
			Limit:         req.Limit,
			MaxConcurrent: req.MaxConcurrent,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, summarizeRun(run))
	}
}

// ReconciliationReport aggregates persisted settlement statuses over an
// RFC3339 window, optionally scoped to one depository.
func ReconciliationReport(svc ReconciliationService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reconciliation service unavailable"))
			return
		}

		scope, err := parseScope(r.URL.Query().Get("scope"))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		start, err := validators.ParseQueryTime(r, "start")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		end, err := validators.ParseQueryTime(r, "end")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if end.Before(start) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "report window end precedes start"))
			return
		}

		report, err := svc.BuildReport(ctx, scope, start, end)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, report)
	}
}

func parseScope(raw string) (*enums.CSDSystem, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, nil
	}
	system, err := enums.ParseCSDSystem(trimmed)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid scope").WithDetails(map[string]any{"field": "scope"})
	}
	return &system, nil
}

func summarizeRun(run *models.ReconciliationRun) runSummary {
	if run == nil {
		return runSummary{}
	}

	summary := runSummary{
		ID:          run.ID.String(),
		TriggeredBy: run.TriggeredBy.String(),
		Total:       run.Total,
		Reconciled:  run.Reconciled,
		Mismatched:  run.Mismatched,
		Unavailable: run.Unavailable,
		Failed:      run.Failed,
		Systems:     run.Systems,
		StartedAt:   run.StartedAt,
		FinishedAt:  run.FinishedAt,
	}
	if run.Scope != nil {
		summary.Scope = *run.Scope
	}
	return summary
}
