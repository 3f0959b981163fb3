package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/dpo-global/issuance-backend/internal/reconciliation"
	"github.com/dpo-global/issuance-backend/pkg/db/models"
	"github.com/dpo-global/issuance-backend/pkg/enums"
	"github.com/dpo-global/issuance-backend/pkg/logger"
)

const defaultSweepInterval = 15 * time.Minute

// sweeper runs one reconciliation pass.
type sweeper interface {
	Sweep(ctx context.Context, opts reconciliation.SweepOptions) (*models.ReconciliationRun, error)
}

type ReconciliationSweepJobParams struct {
	Logger        *logger.Logger
	Sweeper       sweeper
	Interval      time.Duration
	BatchLimit    int
	MaxConcurrent int
}

// NewReconciliationSweepJob builds the scheduled sweep. Batch limit and
// concurrency fall through to the service defaults when unset.
func NewReconciliationSweepJob(params ReconciliationSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Sweeper == nil {
		return nil, fmt.Errorf("sweeper required")
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &reconciliationSweepJob{
		logg:          params.Logger,
		sweeper:       params.Sweeper,
		interval:      interval,
		batchLimit:    params.BatchLimit,
		maxConcurrent: params.MaxConcurrent,
	}, nil
}

type reconciliationSweepJob struct {
	logg          *logger.Logger
	sweeper       sweeper
	interval      time.Duration
	batchLimit    int
	maxConcurrent int
}

func (j *reconciliationSweepJob) Name() string { return "reconciliation-sweep" }

func (j *reconciliationSweepJob) Interval() time.Duration { return j.interval }

func (j *reconciliationSweepJob) Run(ctx context.Context) error {
	run, err := j.sweeper.Sweep(ctx, reconciliation.SweepOptions{
		Trigger:       enums.TriggerWorker,
		Limit:         j.batchLimit,
		MaxConcurrent: int64(j.maxConcurrent),
	})
	if err != nil {
		return fmt.Errorf("reconciliation sweep: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"run_id":     run.ID,
		"total":      run.Total,
		"reconciled": run.Reconciled,
	})
	j.logg.Info(logCtx, "sweep run recorded")
	return nil
}
