package models

import (
	"time"

	"github.com/google/uuid"
)

// Investor is one wallet identity. WalletAddress is stored lower-cased;
// callers normalize before any lookup or write.
type Investor struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	WalletAddress   string    `gorm:"column:wallet_address;type:varchar(64);not null;uniqueIndex:investors_wallet_address_key"`
	Jurisdiction    *string   `gorm:"column:jurisdiction;type:varchar(16)"`
	KYCPassed       bool      `gorm:"column:kyc_passed;not null;default:false"`
	AMLPassed       bool      `gorm:"column:aml_passed;not null;default:false"`
	LastEventTxHash *string   `gorm:"column:last_event_tx_hash;type:varchar(100)"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
