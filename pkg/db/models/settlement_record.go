package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dpo-global/issuance-backend/pkg/enums"
)

// SettlementRecord is an append-only settlement fact. The reconciliation
// engine owns Status, StatusReason and VerifiedAt; every other field is
// write-once. ExternalReference is expected unique per depository but not
// enforced.
type SettlementRecord struct {
	ID                uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	InvestorID        uuid.UUID              `gorm:"column:investor_id;type:uuid;not null;index:settlement_records_investor_id_idx"`
	Investor          *Investor              `gorm:"foreignKey:InvestorID"`
	Units             decimal.Decimal        `gorm:"column:units;type:numeric(78,0);not null"`
	SettlementSystem  enums.CSDSystem        `gorm:"column:settlement_system;type:varchar(64);not null;index:settlement_records_system_idx"`
	ExternalReference string                 `gorm:"column:external_reference;type:varchar(128);not null;index:settlement_records_external_reference_idx"`
	TxHash            string                 `gorm:"column:tx_hash;type:varchar(100);not null"`
	SettledAt         time.Time              `gorm:"column:settled_at;not null"`
	Status            enums.SettlementStatus `gorm:"column:status;type:varchar(32);not null;default:'PENDING'"`
	StatusReason      *string                `gorm:"column:status_reason"`
	VerifiedAt        *time.Time             `gorm:"column:verified_at"`
	CreatedAt         time.Time              `gorm:"column:created_at;autoCreateTime"`
}
