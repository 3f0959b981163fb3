package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UnitsIssued is an append-only issuance fact with denormalized external
// codes as they appeared on the event, plus an optional link to the
// canonical Identifier when the payload named one.
type UnitsIssued struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	InvestorID    uuid.UUID       `gorm:"column:investor_id;type:uuid;not null;index:units_issued_investor_id_idx"`
	Investor      *Investor       `gorm:"foreignKey:InvestorID"`
	Units         decimal.Decimal `gorm:"column:units;type:numeric(78,0);not null"`
	LockupRelease int64           `gorm:"column:lockup_release;not null"`
	ISIN          *string         `gorm:"column:isin;type:varchar(32)"`
	LEI           *string         `gorm:"column:lei;type:varchar(32)"`
	UPI           *string         `gorm:"column:upi;type:varchar(64)"`
	IdentifierID  *uuid.UUID      `gorm:"column:identifier_id;type:uuid"`
	Identifier    *Identifier     `gorm:"foreignKey:IdentifierID"`
	TxHash        string          `gorm:"column:tx_hash;type:varchar(100);not null"`
	IssuedAt      time.Time       `gorm:"column:issued_at;not null"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
}

// TableName keeps the grammatical plural.
func (UnitsIssued) TableName() string {
	return "units_issued"
}
