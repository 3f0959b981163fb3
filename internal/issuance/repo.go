package issuance

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dpo-global/issuance-backend/internal/repo"
	"github.com/dpo-global/issuance-backend/pkg/db/models"
)

// Repository manages persistence for the issuance aggregate state. Upserts
// ride on the natural-key unique constraints so concurrent appliers of the
// same key are serialized by the store rather than by a read-then-write.
type Repository interface {
	UpsertIdentifier(ctx context.Context, identifier *models.Identifier) error
	EnsureIdentifier(ctx context.Context, internalAssetID string) (*models.Identifier, error)
	GetIdentifierByAssetID(ctx context.Context, internalAssetID string) (*models.Identifier, error)

	UpsertOffering(ctx context.Context, offering *models.Offering) error
	GetOfferingByAssetID(ctx context.Context, internalAssetID string) (*models.Offering, error)
	FinalizeOfferingsByAssetID(ctx context.Context, internalAssetID string, totals FinalizeTotals) (int64, error)
	FinalizeOfferingsByTxHash(ctx context.Context, txHash string, totals FinalizeTotals) (int64, error)

	UpsertInvestor(ctx context.Context, investor *models.Investor) error
	EnsureInvestor(ctx context.Context, walletAddress string) (*models.Investor, error)
	GetInvestorByWallet(ctx context.Context, walletAddress string) (*models.Investor, error)

	CreateCommitment(ctx context.Context, commitment *models.Commitment) error
	CreateUnitsIssued(ctx context.Context, issuance *models.UnitsIssued) error
	CreateSettlementRecord(ctx context.Context, record *models.SettlementRecord) error
}

// FinalizeTotals carries the closing figures a Finalized event applies.
// FinalizedAt stays NULL when the ledger omits it.
type FinalizeTotals struct {
	TotalCommitted   decimal.Decimal
	TotalUnitsIssued decimal.Decimal
	FinalizedAt      *int64
}

type repository struct {
	base repo.Base
}

// NewRepository returns an issuance repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{base: repo.NewBase(db)}
}

func (r *repository) UpsertIdentifier(ctx context.Context, identifier *models.Identifier) error {
	if identifier == nil {
		return fmt.Errorf("identifier required")
	}
	if strings.TrimSpace(identifier.InternalAssetID) == "" {
		return fmt.Errorf("internal asset id required")
	}
	if identifier.ID == uuid.Nil {
		identifier.ID = uuid.New()
	}
	return r.base.DB(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "internal_asset_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"isin", "lei", "upi", "cusip", "clearstream_id", "euroclear_id", "updated_at",
		}),
	}).Create(identifier).Error
}

// EnsureIdentifier creates the bare identifier row if it is not yet known and
// returns the canonical row either way. It never updates existing codes.
func (r *repository) EnsureIdentifier(ctx context.Context, internalAssetID string) (*models.Identifier, error) {
	internalAssetID = strings.TrimSpace(internalAssetID)
	if internalAssetID == "" {
		return nil, fmt.Errorf("internal asset id required")
	}
	stub := &models.Identifier{ID: uuid.New(), InternalAssetID: internalAssetID}
	if err := r.base.DB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "internal_asset_id"}},
		DoNothing: true,
	}).Create(stub).Error; err != nil {
		return nil, err
	}
	return r.GetIdentifierByAssetID(ctx, internalAssetID)
}

func (r *repository) GetIdentifierByAssetID(ctx context.Context, internalAssetID string) (*models.Identifier, error) {
	var identifier models.Identifier
	err := r.base.DB(ctx).
		Where("internal_asset_id = ?", strings.TrimSpace(internalAssetID)).
		First(&identifier).Error
	if err != nil {
		return nil, err
	}
	return &identifier, nil
}

// UpsertOffering inserts or refreshes the offering configuration. The update
// arm is guarded so a finalized offering's financial fields stay frozen.
func (r *repository) UpsertOffering(ctx context.Context, offering *models.Offering) error {
	if offering == nil {
		return fmt.Errorf("offering required")
	}
	if strings.TrimSpace(offering.InternalAssetID) == "" {
		return fmt.Errorf("internal asset id required")
	}
	if offering.ID == uuid.Nil {
		offering.ID = uuid.New()
	}
	return r.base.DB(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "internal_asset_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"offering_type", "max_raise_amount", "lockup_period",
			"start_timestamp", "end_timestamp", "base_currency",
			"identifier_id", "last_event_tx_hash", "updated_at",
		}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Eq{Column: clause.Column{Table: "offerings", Name: "is_finalized"}, Value: false},
		}},
	}).Create(offering).Error
}

func (r *repository) GetOfferingByAssetID(ctx context.Context, internalAssetID string) (*models.Offering, error) {
	var offering models.Offering
	err := r.base.DB(ctx).
		Where("internal_asset_id = ?", strings.TrimSpace(internalAssetID)).
		First(&offering).Error
	if err != nil {
		return nil, err
	}
	return &offering, nil
}

func (r *repository) FinalizeOfferingsByAssetID(ctx context.Context, internalAssetID string, totals FinalizeTotals) (int64, error) {
	internalAssetID = strings.TrimSpace(internalAssetID)
	if internalAssetID == "" {
		return 0, fmt.Errorf("internal asset id required")
	}
	result := r.base.DB(ctx).
		Model(&models.Offering{}).
		Where("internal_asset_id = ? AND is_finalized = ?", internalAssetID, false).
		Updates(finalizeAssignments(totals))
	return result.RowsAffected, result.Error
}

func (r *repository) FinalizeOfferingsByTxHash(ctx context.Context, txHash string, totals FinalizeTotals) (int64, error) {
	txHash = strings.TrimSpace(txHash)
	if txHash == "" {
		return 0, fmt.Errorf("transaction hash required")
	}
	result := r.base.DB(ctx).
		Model(&models.Offering{}).
		Where("last_event_tx_hash = ? AND is_finalized = ?", txHash, false).
		Updates(finalizeAssignments(totals))
	return result.RowsAffected, result.Error
}

// finalizeAssignments leaves last_event_tx_hash alone: the hash is a
// correlation key for the update, not a field the update owns.
func finalizeAssignments(totals FinalizeTotals) map[string]any {
	return map[string]any{
		"total_committed":    totals.TotalCommitted,
		"total_units_issued": totals.TotalUnitsIssued,
		"finalized_at":       totals.FinalizedAt,
		"is_finalized":       true,
	}
}

// UpsertInvestor writes the whitelisting fields for a wallet, creating the
// row when unseen. The wallet is lower-cased before the write.
func (r *repository) UpsertInvestor(ctx context.Context, investor *models.Investor) error {
	if investor == nil {
		return fmt.Errorf("investor required")
	}
	investor.WalletAddress = NormalizeWallet(investor.WalletAddress)
	if investor.WalletAddress == "" {
		return fmt.Errorf("wallet address required")
	}
	if investor.ID == uuid.Nil {
		investor.ID = uuid.New()
	}
	return r.base.DB(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "wallet_address"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"jurisdiction", "kyc_passed", "aml_passed", "last_event_tx_hash", "updated_at",
		}),
	}).Create(investor).Error
}

// EnsureInvestor creates a bare investor row for an unseen wallet and returns
// the canonical row. KYC/AML flags stay untouched for known wallets.
func (r *repository) EnsureInvestor(ctx context.Context, walletAddress string) (*models.Investor, error) {
	wallet := NormalizeWallet(walletAddress)
	if wallet == "" {
		return nil, fmt.Errorf("wallet address required")
	}
	stub := &models.Investor{ID: uuid.New(), WalletAddress: wallet}
	if err := r.base.DB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "wallet_address"}},
		DoNothing: true,
	}).Create(stub).Error; err != nil {
		return nil, err
	}
	return r.GetInvestorByWallet(ctx, wallet)
}

func (r *repository) GetInvestorByWallet(ctx context.Context, walletAddress string) (*models.Investor, error) {
	var investor models.Investor
	err := r.base.DB(ctx).
		Where("wallet_address = ?", NormalizeWallet(walletAddress)).
		First(&investor).Error
	if err != nil {
		return nil, err
	}
	return &investor, nil
}

func (r *repository) CreateCommitment(ctx context.Context, commitment *models.Commitment) error {
	if commitment == nil {
		return fmt.Errorf("commitment required")
	}
	if commitment.ID == uuid.Nil {
		commitment.ID = uuid.New()
	}
	return r.base.DB(ctx).Create(commitment).Error
}

func (r *repository) CreateUnitsIssued(ctx context.Context, issuance *models.UnitsIssued) error {
	if issuance == nil {
		return fmt.Errorf("units issued record required")
	}
	if issuance.ID == uuid.Nil {
		issuance.ID = uuid.New()
	}
	return r.base.DB(ctx).Create(issuance).Error
}

func (r *repository) CreateSettlementRecord(ctx context.Context, record *models.SettlementRecord) error {
	if record == nil {
		return fmt.Errorf("settlement record required")
	}
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	return r.base.DB(ctx).Create(record).Error
}

// NormalizeWallet lower-cases and trims a wallet address. Every lookup and
// write in this package goes through it.
func NormalizeWallet(walletAddress string) string {
	return strings.ToLower(strings.TrimSpace(walletAddress))
}
