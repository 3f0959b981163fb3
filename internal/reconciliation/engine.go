package reconciliation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/dpo-global/issuance-backend/internal/csd"
	"github.com/dpo-global/issuance-backend/pkg/db/models"
	"github.com/dpo-global/issuance-backend/pkg/enums"
	"github.com/dpo-global/issuance-backend/pkg/logger"
)

const (
	defaultMaxConcurrent int64 = 5
	defaultVerifyTimeout       = 30 * time.Second
)

// Pair joins one settlement record with the active depository mapping it
// is verified against.
type Pair struct {
	Record  *models.SettlementRecord
	Mapping *models.CSDMapping
}

// Engine fans verification calls out to the registered depository
// adapters. Each record is checked in isolation; one provider outage never
// blocks the rest of the batch.
type Engine struct {
	verifiers     map[enums.CSDSystem]csd.Verifier
	verifyTimeout time.Duration
	logg          *logger.Logger
}

// EngineParams configures NewEngine.
type EngineParams struct {
	Verifiers     map[enums.CSDSystem]csd.Verifier
	VerifyTimeout time.Duration
	Logger        *logger.Logger
}

// NewEngine validates dependencies and builds an Engine.
func NewEngine(params EngineParams) (*Engine, error) {
	if len(params.Verifiers) == 0 {
		return nil, fmt.Errorf("at least one verifier is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	timeout := params.VerifyTimeout
	if timeout <= 0 {
		timeout = defaultVerifyTimeout
	}
	return &Engine{
		verifiers:     params.Verifiers,
		verifyTimeout: timeout,
		logg:          params.Logger,
	}, nil
}

// ReconcileOne verifies a single record against its depository. Systems
// with no registered verifier classify as UNSUPPORTED_PROVIDER.
func (e *Engine) ReconcileOne(ctx context.Context, pair Pair) csd.Outcome {
	verifier, ok := e.verifiers[pair.Mapping.CSDSystem]
	if !ok {
		return csd.Unsupported(pair.Mapping.CSDSystem)
	}
	callCtx, cancel := context.WithTimeout(ctx, e.verifyTimeout)
	defer cancel()
	return verifier.Verify(callCtx, pair.Record, pair.Mapping)
}

// ReconcileBatch verifies a batch of pairs with bounded concurrency and
// returns outcomes keyed by external reference. Cancelling ctx stops
// admitting new verifications; calls already in flight run to completion
// under their own timeout and their outcomes are kept.
func (e *Engine) ReconcileBatch(ctx context.Context, pairs []Pair, maxConcurrent int64) map[string]csd.Outcome {
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrent
	}
	sem := semaphore.NewWeighted(maxConcurrent)
	verifyCtx := context.WithoutCancel(ctx)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results = make(map[string]csd.Outcome, len(pairs))
	)
	for i, pair := range pairs {
		if err := sem.Acquire(ctx, 1); err != nil {
			e.logg.Warn(e.logg.WithField(ctx, "skipped", len(pairs)-i),
				"verification admission stopped")
			break
		}
		wg.Add(1)
		go func(pair Pair) {
			defer wg.Done()
			defer sem.Release(1)
			outcome := e.ReconcileOne(verifyCtx, pair)
			mu.Lock()
			results[pair.Record.ExternalReference] = outcome
			mu.Unlock()
		}(pair)
	}
	wg.Wait()
	return results
}
