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
)

type commitmentRecordedHandler struct {
	repo issuance.Repository
	logg *logger.Logger
	now  func() time.Time
}

func newCommitmentRecordedHandler(repo issuance.Repository, logg *logger.Logger) Handler {
	return &commitmentRecordedHandler{repo: repo, logg: logg, now: time.Now}
}

// Handle appends a commitment fact. The commit timestamp comes from the
// apply clock, not the payload; the table is append-only, so a duplicate
// delivery appends a second row rather than updating the first.
func (h *commitmentRecordedHandler) Handle(ctx context.Context, envelope Envelope, payload any) error {
	event, ok := payload.(*CommitmentRecordedEvent)
	if !ok {
		return fmt.Errorf("invalid payload for CommitmentRecorded")
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

	commitment := &models.Commitment{
		InvestorID:       investor.ID,
		Amount:           event.Amount,
		Currency:         event.Currency,
		PaymentReference: event.PaymentReference,
		TxHash:           event.TransactionHash,
		CommittedAt:      h.now().UTC(),
	}
	if err := h.repo.CreateCommitment(ctx, commitment); err != nil {
		h.logg.Error(logCtx, "failed to create commitment", err)
		return apperrors.Wrap(apperrors.CodeDependency, err, "create commitment")
	}

	h.logg.Info(logCtx, "commitment recorded")
	return nil
}
