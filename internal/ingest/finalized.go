package ingest

import (
	"context"
	"fmt"
	"strings"

	"github.com/dpo-global/issuance-backend/internal/issuance"
	apperrors "github.com/dpo-global/issuance-backend/pkg/errors"
	"github.com/dpo-global/issuance-backend/pkg/logger"
)

type finalizedHandler struct {
	repo issuance.Repository
	logg *logger.Logger
}

func newFinalizedHandler(repo issuance.Repository, logg *logger.Logger) Handler {
	return &finalizedHandler{repo: repo, logg: logg}
}

// Handle closes an offering and freezes its totals. Correlation prefers
// the internal asset id; when the payload carries only a transaction
// hash the update falls back to matching last_event_tx_hash. Offerings
// already finalized are never touched again.
func (h *finalizedHandler) Handle(ctx context.Context, envelope Envelope, payload any) error {
	event, ok := payload.(*FinalizedEvent)
	if !ok {
		return fmt.Errorf("invalid payload for Finalized")
	}

	assetID := strings.TrimSpace(event.InternalAssetID)
	txHash := strings.TrimSpace(event.TransactionHash)
	if assetID == "" && txHash == "" {
		return apperrors.New(apperrors.CodeValidation, "internal_asset_id or transaction_hash is required")
	}

	logCtx := h.logg.WithFields(ctx, map[string]any{
		"event":             envelope.Event,
		"internal_asset_id": assetID,
		"tx_hash":           txHash,
	})

	totals := issuance.FinalizeTotals{
		TotalCommitted:   event.TotalCommitted,
		TotalUnitsIssued: event.TotalUnitsIssued,
		FinalizedAt:      event.FinalizedAt,
	}

	var (
		affected int64
		err      error
	)
	if assetID != "" {
		affected, err = h.repo.FinalizeOfferingsByAssetID(ctx, assetID, totals)
	} else {
		h.logg.Warn(logCtx, "finalizing by transaction hash correlation only")
		affected, err = h.repo.FinalizeOfferingsByTxHash(ctx, txHash, totals)
	}
	if err != nil {
		h.logg.Error(logCtx, "failed to finalize offering", err)
		return apperrors.Wrap(apperrors.CodeDependency, err, "finalize offering")
	}

	if affected == 0 {
		h.logg.Info(logCtx, "finalization matched no offerings")
		return nil
	}

	h.logg.Info(logCtx, "offering finalized")
	return nil
}
