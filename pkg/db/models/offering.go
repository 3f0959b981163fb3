package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Offering holds the configuration and running totals for one asset
// offering. Start/end/lockup/finalized timestamps are unix seconds as
// reported by the ledger. Once IsFinalized is set the financial fields
// are frozen.
type Offering struct {
	ID               uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	InternalAssetID  string          `gorm:"column:internal_asset_id;type:varchar(128);not null;uniqueIndex:offerings_internal_asset_id_key"`
	OfferingType     string          `gorm:"column:offering_type;type:varchar(64);not null"`
	MaxRaiseAmount   decimal.Decimal `gorm:"column:max_raise_amount;type:numeric(78,0);not null"`
	LockupPeriod     int64           `gorm:"column:lockup_period;not null"`
	StartTimestamp   int64           `gorm:"column:start_timestamp;not null"`
	EndTimestamp     int64           `gorm:"column:end_timestamp;not null"`
	BaseCurrency     string          `gorm:"column:base_currency;type:varchar(16);not null"`
	IdentifierID     uuid.UUID       `gorm:"column:identifier_id;type:uuid;not null"`
	Identifier       *Identifier     `gorm:"foreignKey:IdentifierID"`
	TotalCommitted   decimal.Decimal `gorm:"column:total_committed;type:numeric(78,0);not null;default:0"`
	TotalUnitsIssued decimal.Decimal `gorm:"column:total_units_issued;type:numeric(78,0);not null;default:0"`
	IsFinalized      bool            `gorm:"column:is_finalized;not null;default:false"`
	FinalizedAt      *int64          `gorm:"column:finalized_at"`
	LastEventTxHash  *string         `gorm:"column:last_event_tx_hash;type:varchar(100)"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
