package ingest

import (
	"context"
	"fmt"
	"strings"

	"github.com/dpo-global/issuance-backend/internal/issuance"
	"github.com/dpo-global/issuance-backend/pkg/db/models"
	apperrors "github.com/dpo-global/issuance-backend/pkg/errors"
	"github.com/dpo-global/issuance-backend/pkg/logger"
)

type investorWhitelistedHandler struct {
	repo issuance.Repository
	logg *logger.Logger
}

func newInvestorWhitelistedHandler(repo issuance.Repository, logg *logger.Logger) Handler {
	return &investorWhitelistedHandler{repo: repo, logg: logg}
}

func (h *investorWhitelistedHandler) Handle(ctx context.Context, envelope Envelope, payload any) error {
	event, ok := payload.(*InvestorWhitelistedEvent)
	if !ok {
		return fmt.Errorf("invalid payload for InvestorWhitelisted")
	}

	if strings.TrimSpace(event.Investor) == "" {
		return apperrors.New(apperrors.CodeValidation, "investor wallet is required")
	}

	investor := &models.Investor{
		WalletAddress:   event.Investor,
		Jurisdiction:    event.Jurisdiction,
		KYCPassed:       event.KYCPassed,
		AMLPassed:       event.AMLPassed,
		LastEventTxHash: optionalString(event.TransactionHash),
	}

	logCtx := h.logg.WithFields(ctx, map[string]any{
		"event":  envelope.Event,
		"wallet": issuance.NormalizeWallet(event.Investor),
	})

	if err := h.repo.UpsertInvestor(ctx, investor); err != nil {
		h.logg.Error(logCtx, "failed to upsert investor", err)
		return apperrors.Wrap(apperrors.CodeDependency, err, "upsert investor")
	}

	h.logg.Info(logCtx, "investor whitelisted")
	return nil
}
