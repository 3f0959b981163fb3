package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/dpo-global/issuance-backend/pkg/enums"
)

// CSDMapping links one Identifier to its depository-side identity: the
// system the asset settles through, the security id providers are queried
// with, and per-provider reference columns maintained by operations.
// Metadata carries provider extras such as the Euroclear ISIN.
type CSDMapping struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	IdentifierID uuid.UUID       `gorm:"column:identifier_id;type:uuid;not null;uniqueIndex:csd_mappings_identifier_id_key"`
	Identifier   *Identifier     `gorm:"foreignKey:IdentifierID"`
	CSDSystem    enums.CSDSystem `gorm:"column:csd_system;type:varchar(64);not null;index:csd_mappings_system_idx"`
	SecurityID   string          `gorm:"column:security_id;type:varchar(64);not null"`
	Metadata     json.RawMessage `gorm:"column:metadata;type:jsonb"`

	ClearstreamAssetID             *string `gorm:"column:clearstream_asset_id;type:varchar(64)"`
	ClearstreamSettlementReference *string `gorm:"column:clearstream_settlement_reference;type:varchar(128)"`
	ClearstreamStatus              *string `gorm:"column:clearstream_status;type:varchar(32)"`

	EuroclearAssetID             *string `gorm:"column:euroclear_asset_id;type:varchar(64)"`
	EuroclearSettlementReference *string `gorm:"column:euroclear_settlement_reference;type:varchar(128)"`
	EuroclearStatus              *string `gorm:"column:euroclear_status;type:varchar(32)"`

	Active      bool      `gorm:"column:active;not null;default:true"`
	LastUpdated time.Time `gorm:"column:last_updated;autoUpdateTime"`
}

// MetadataValue returns a string field from the mapping metadata blob.
func (m CSDMapping) MetadataValue(key string) string {
	if len(m.Metadata) == 0 {
		return ""
	}
	var decoded map[string]any
	if err := json.Unmarshal(m.Metadata, &decoded); err != nil {
		return ""
	}
	if raw, ok := decoded[key]; ok {
		if str, ok := raw.(string); ok {
			return str
		}
	}
	return ""
}
