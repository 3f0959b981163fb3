package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dpo-global/issuance-backend/internal/issuance"
	"github.com/dpo-global/issuance-backend/pkg/db/models"
	"github.com/dpo-global/issuance-backend/pkg/enums"
	apperrors "github.com/dpo-global/issuance-backend/pkg/errors"
	"github.com/dpo-global/issuance-backend/pkg/logger"
)

type settlementRecordedHandler struct {
	repo issuance.Repository
	logg *logger.Logger
	now  func() time.Time
}

func newSettlementRecordedHandler(repo issuance.Repository, logg *logger.Logger) Handler {
	return &settlementRecordedHandler{repo: repo, logg: logg, now: time.Now}
}

// Handle appends a settlement fact in PENDING status. The settlement
// system is stored verbatim; systems without a registered verifier are
// surfaced during reconciliation, not rejected here.
func (h *settlementRecordedHandler) Handle(ctx context.Context, envelope Envelope, payload any) error {
	event, ok := payload.(*SettlementRecordedEvent)
	if !ok {
		return fmt.Errorf("invalid payload for SettlementRecorded")
	}

	if strings.TrimSpace(event.Investor) == "" {
		return apperrors.New(apperrors.CodeValidation, "investor wallet is required")
	}
	if strings.TrimSpace(event.ExternalReference) == "" {
		return apperrors.New(apperrors.CodeValidation, "external_reference is required")
	}

	logCtx := h.logg.WithFields(ctx, map[string]any{
		"event":              envelope.Event,
		"wallet":             issuance.NormalizeWallet(event.Investor),
		"settlement_system":  event.SettlementSystem,
		"external_reference": event.ExternalReference,
	})

	investor, err := h.repo.EnsureInvestor(ctx, event.Investor)
	if err != nil {
		h.logg.Error(logCtx, "failed to ensure investor", err)
		return apperrors.Wrap(apperrors.CodeDependency, err, "ensure investor")
	}

	record := &models.SettlementRecord{
		InvestorID:        investor.ID,
		Units:             event.Units,
		SettlementSystem:  enums.CSDSystem(strings.ToUpper(strings.TrimSpace(event.SettlementSystem))),
		ExternalReference: event.ExternalReference,
		TxHash:            event.TransactionHash,
		SettledAt:         h.now().UTC(),
		Status:            enums.SettlementStatusPending,
	}
	if err := h.repo.CreateSettlementRecord(ctx, record); err != nil {
		h.logg.Error(logCtx, "failed to create settlement record", err)
		return apperrors.Wrap(apperrors.CodeDependency, err, "create settlement record")
	}

	h.logg.Info(logCtx, "settlement recorded")
	return nil
}
