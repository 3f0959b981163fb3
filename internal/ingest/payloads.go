package ingest

import (
	"strings"

	"github.com/shopspring/decimal"
)

// AssetIdentifiers is the nested identifier block carried by offering and
// issuance events. All codes are optional except the internal asset id,
// which offering events must supply.
type AssetIdentifiers struct {
	InternalAssetID string  `json:"internal_asset_id"`
	ISIN            *string `json:"isin"`
	LEI             *string `json:"lei"`
	UPI             *string `json:"upi"`
	CUSIP           *string `json:"cusip"`
	ClearstreamID   *string `json:"clearstream_id"`
	EuroclearID     *string `json:"euroclear_id"`
}

// OfferingConfiguredEvent creates or refreshes an offering and its identifier.
type OfferingConfiguredEvent struct {
	Identifiers     AssetIdentifiers `json:"identifiers"`
	OfferingType    string           `json:"offering_type"`
	MaxRaiseAmount  decimal.Decimal  `json:"max_raise_amount"`
	LockupPeriod    int64            `json:"lockup_period"`
	StartTimestamp  int64            `json:"start_timestamp"`
	EndTimestamp    int64            `json:"end_timestamp"`
	BaseCurrency    string           `json:"base_currency"`
	TransactionHash string           `json:"transaction_hash"`
}

// InvestorWhitelistedEvent whitelists one wallet. KYC/AML flags default to
// false when the payload omits them.
type InvestorWhitelistedEvent struct {
	Investor        string  `json:"investor"`
	Jurisdiction    *string `json:"jurisdiction"`
	KYCPassed       bool    `json:"kyc_passed"`
	AMLPassed       bool    `json:"aml_passed"`
	TransactionHash string  `json:"transaction_hash"`
}

// CommitmentRecordedEvent appends one capital commitment fact.
type CommitmentRecordedEvent struct {
	Investor         string          `json:"investor"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
	PaymentReference string          `json:"payment_reference"`
	TransactionHash  string          `json:"transaction_hash"`
}

// UnitsIssuedEvent appends one issuance fact.
type UnitsIssuedEvent struct {
	Investor        string           `json:"investor"`
	Units           decimal.Decimal  `json:"units"`
	LockupRelease   int64            `json:"lockup_release"`
	Identifiers     AssetIdentifiers `json:"identifiers"`
	TransactionHash string           `json:"transaction_hash"`
}

// SettlementRecordedEvent appends one settlement fact.
type SettlementRecordedEvent struct {
	Investor          string          `json:"investor"`
	Units             decimal.Decimal `json:"units"`
	SettlementSystem  string          `json:"settlement_system"`
	ExternalReference string          `json:"external_reference"`
	TransactionHash   string          `json:"transaction_hash"`
}

// FinalizedEvent closes matching offerings with their final totals. The
// internal asset id is preferred as the correlation key; older ledger
// versions only emit the transaction hash.
type FinalizedEvent struct {
	InternalAssetID  string          `json:"internal_asset_id"`
	TotalCommitted   decimal.Decimal `json:"total_committed"`
	TotalUnitsIssued decimal.Decimal `json:"total_units_issued"`
	FinalizedAt      *int64          `json:"finalized_at"`
	TransactionHash  string          `json:"transaction_hash"`
}

func optionalString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
