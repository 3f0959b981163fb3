package models

import (
	"time"

	"github.com/google/uuid"
)

// Identifier is the canonical row for one distinct asset, keyed by the
// ledger's internal asset id and carrying whatever external codes the
// offering configuration supplied. Upserted by identity, never deleted.
type Identifier struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	InternalAssetID string    `gorm:"column:internal_asset_id;type:varchar(128);not null;uniqueIndex:identifiers_internal_asset_id_key"`
	ISIN            *string   `gorm:"column:isin;type:varchar(32)"`
	LEI             *string   `gorm:"column:lei;type:varchar(32)"`
	UPI             *string   `gorm:"column:upi;type:varchar(64)"`
	CUSIP           *string   `gorm:"column:cusip;type:varchar(32)"`
	ClearstreamID   *string   `gorm:"column:clearstream_id;type:varchar(64)"`
	EuroclearID     *string   `gorm:"column:euroclear_id;type:varchar(64)"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
