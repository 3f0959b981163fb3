package reconciliation

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dpo-global/issuance-backend/internal/csd"
	"github.com/dpo-global/issuance-backend/pkg/db/models"
	"github.com/dpo-global/issuance-backend/pkg/enums"
	"github.com/dpo-global/issuance-backend/pkg/logger"
)

type stubVerifier struct {
	system enums.CSDSystem
	verify func(ctx context.Context, record *models.SettlementRecord, mapping *models.CSDMapping) csd.Outcome

	mu    sync.Mutex
	calls int
}

func (v *stubVerifier) System() enums.CSDSystem { return v.system }

func (v *stubVerifier) Verify(ctx context.Context, record *models.SettlementRecord, mapping *models.CSDMapping) csd.Outcome {
	v.mu.Lock()
	v.calls++
	v.mu.Unlock()
	if v.verify != nil {
		return v.verify(ctx, record, mapping)
	}
	return csd.Reconciled()
}

func (v *stubVerifier) callCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.calls
}

func newTestEngine(t *testing.T, verifiers map[enums.CSDSystem]csd.Verifier) *Engine {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "reconciliation-test", Output: io.Discard})
	engine, err := NewEngine(EngineParams{Verifiers: verifiers, Logger: logg})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return engine
}

func enginePair(system enums.CSDSystem, ref string) Pair {
	return Pair{
		Record: &models.SettlementRecord{
			ID:                uuid.New(),
			InvestorID:        uuid.New(),
			Units:             decimal.NewFromInt(100),
			SettlementSystem:  system,
			ExternalReference: ref,
			TxHash:            "0xfeed",
			SettledAt:         time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC),
			Status:            enums.SettlementStatusPending,
		},
		Mapping: &models.CSDMapping{
			ID:           uuid.New(),
			IdentifierID: uuid.New(),
			CSDSystem:    system,
			SecurityID:   "SEC-001",
			Active:       true,
		},
	}
}

func TestReconcileOneUnsupportedSystem(t *testing.T) {
	engine := newTestEngine(t, map[enums.CSDSystem]csd.Verifier{
		enums.CSDSystemClearstream: &stubVerifier{system: enums.CSDSystemClearstream},
	})

	outcome := engine.ReconcileOne(context.Background(), enginePair(enums.CSDSystemDTCC, "REF-1"))
	if outcome.Status != enums.VerificationUnsupportedProvider {
		t.Fatalf("unexpected status %s", outcome.Status)
	}
	if outcome.Reason == "" {
		t.Fatal("expected a reason naming the system")
	}
}

func TestReconcileBatchBoundsConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int64
	verifier := &stubVerifier{
		system: enums.CSDSystemClearstream,
		verify: func(ctx context.Context, record *models.SettlementRecord, mapping *models.CSDMapping) csd.Outcome {
			current := inFlight.Add(1)
			for {
				observed := peak.Load()
				if current <= observed || peak.CompareAndSwap(observed, current) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			inFlight.Add(-1)
			return csd.Reconciled()
		},
	}
	engine := newTestEngine(t, map[enums.CSDSystem]csd.Verifier{
		enums.CSDSystemClearstream: verifier,
	})

	pairs := make([]Pair, 0, 8)
	for i := 0; i < 8; i++ {
		pairs = append(pairs, enginePair(enums.CSDSystemClearstream, fmt.Sprintf("REF-%d", i)))
	}

	results := engine.ReconcileBatch(context.Background(), pairs, 2)
	if len(results) != 8 {
		t.Fatalf("expected 8 outcomes, got %d", len(results))
	}
	if got := peak.Load(); got > 2 {
		t.Fatalf("concurrency bound exceeded: peak %d", got)
	}
	if verifier.callCount() != 8 {
		t.Fatalf("expected 8 verifier calls, got %d", verifier.callCount())
	}
}

func TestReconcileBatchIsolatesFailures(t *testing.T) {
	clearstream := &stubVerifier{
		system: enums.CSDSystemClearstream,
		verify: func(ctx context.Context, record *models.SettlementRecord, mapping *models.CSDMapping) csd.Outcome {
			return csd.Unavailable("connection refused")
		},
	}
	euroclear := &stubVerifier{system: enums.CSDSystemEuroclear}
	dtcc := &stubVerifier{system: enums.CSDSystemDTCC}
	engine := newTestEngine(t, map[enums.CSDSystem]csd.Verifier{
		enums.CSDSystemClearstream: clearstream,
		enums.CSDSystemEuroclear:   euroclear,
		enums.CSDSystemDTCC:        dtcc,
	})

	pairs := []Pair{
		enginePair(enums.CSDSystemEuroclear, "REF-EC"),
		enginePair(enums.CSDSystemClearstream, "REF-CS"),
		enginePair(enums.CSDSystemDTCC, "REF-DTCC"),
	}
	results := engine.ReconcileBatch(context.Background(), pairs, 5)

	if results["REF-EC"].Status != enums.VerificationReconciled {
		t.Fatalf("unexpected euroclear status %s", results["REF-EC"].Status)
	}
	if results["REF-CS"].Status != enums.VerificationProviderUnavailable {
		t.Fatalf("unexpected clearstream status %s", results["REF-CS"].Status)
	}
	if results["REF-DTCC"].Status != enums.VerificationReconciled {
		t.Fatalf("unexpected dtcc status %s", results["REF-DTCC"].Status)
	}
}

func TestReconcileBatchCancelledContextStopsAdmission(t *testing.T) {
	verifier := &stubVerifier{system: enums.CSDSystemClearstream}
	engine := newTestEngine(t, map[enums.CSDSystem]csd.Verifier{
		enums.CSDSystemClearstream: verifier,
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pairs := []Pair{
		enginePair(enums.CSDSystemClearstream, "REF-1"),
		enginePair(enums.CSDSystemClearstream, "REF-2"),
	}
	results := engine.ReconcileBatch(ctx, pairs, 1)
	if len(results) != 0 {
		t.Fatalf("expected no admissions after cancel, got %d", len(results))
	}
	if verifier.callCount() != 0 {
		t.Fatalf("expected no verifier calls, got %d", verifier.callCount())
	}
}

func TestReconcileBatchInFlightSurvivesCancel(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	verifier := &stubVerifier{
		system: enums.CSDSystemClearstream,
		verify: func(ctx context.Context, record *models.SettlementRecord, mapping *models.CSDMapping) csd.Outcome {
			close(started)
			<-release
			if err := ctx.Err(); err != nil {
				return csd.Unavailable(err.Error())
			}
			return csd.Reconciled()
		},
	}
	engine := newTestEngine(t, map[enums.CSDSystem]csd.Verifier{
		enums.CSDSystemClearstream: verifier,
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
		close(release)
	}()

	results := engine.ReconcileBatch(ctx, []Pair{enginePair(enums.CSDSystemClearstream, "REF-1")}, 1)
	if results["REF-1"].Status != enums.VerificationReconciled {
		t.Fatalf("in-flight call should complete after cancel, got %s", results["REF-1"].Status)
	}
}
