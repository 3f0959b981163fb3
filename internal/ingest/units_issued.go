package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dpo-global/issuance-backend/internal/issuance"
	"github.com/dpo-global/issuance-backend/pkg/db/models"
	apperrors "github.com/dpo-global/issuance-backend/pkg/errors"
	"github.com/dpo-global/issuance-backend/pkg/logger"
	"github.com/google/uuid"
)

type unitsIssuedHandler struct {
	repo issuance.Repository
	logg *logger.Logger
	now  func() time.Time
}

func newUnitsIssuedHandler(repo issuance.Repository, logg *logger.Logger) Handler {
	return &unitsIssuedHandler{repo: repo, logg: logg, now: time.Now}
}

// Handle appends an issuance fact. Identifier codes are denormalized onto
// the row so historical issuances keep the codes they were announced with
// even if the identifier record changes later.
func (h *unitsIssuedHandler) Handle(ctx context.Context, envelope Envelope, payload any) error {
	event, ok := payload.(*UnitsIssuedEvent)
	if !ok {
		return fmt.Errorf("invalid payload for UnitsIssued")
	}

	if strings.TrimSpace(event.Investor) == "" {
		return apperrors.New(apperrors.CodeValidation, "investor wallet is required")
	}

	logCtx := h.logg.WithFields(ctx, map[string]any{
		"event":   envelope.Event,
		"wallet":  issuance.NormalizeWallet(event.Investor),
		"tx_hash": event.TransactionHash,
	})

	investor, err := h.repo.EnsureInvestor(ctx, event.Investor)
	if err != nil {
		h.logg.Error(logCtx, "failed to ensure investor", err)
		return apperrors.Wrap(apperrors.CodeDependency, err, "ensure investor")
	}

	var identifierID *uuid.UUID
	if strings.TrimSpace(event.Identifiers.InternalAssetID) != "" {
		identifier, err := h.repo.EnsureIdentifier(ctx, event.Identifiers.InternalAssetID)
		if err != nil {
			h.logg.Error(logCtx, "failed to ensure identifier", err)
			return apperrors.Wrap(apperrors.CodeDependency, err, "ensure identifier")
		}
		identifierID = &identifier.ID
	}

	issued := &models.UnitsIssued{
		InvestorID:    investor.ID,
		Units:         event.Units,
		LockupRelease: event.LockupRelease,
		ISIN:          event.Identifiers.ISIN,
		LEI:           event.Identifiers.LEI,
		UPI:           event.Identifiers.UPI,
		IdentifierID:  identifierID,
		TxHash:        event.TransactionHash,
		IssuedAt:      h.now().UTC(),
	}
	if err := h.repo.CreateUnitsIssued(ctx, issued); err != nil {
		h.logg.Error(logCtx, "failed to create units issued", err)
		return apperrors.Wrap(apperrors.CodeDependency, err, "create units issued")
	}

	h.logg.Info(logCtx, "units issuance recorded")
	return nil
}
