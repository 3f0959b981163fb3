package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Commitment is an append-only capital commitment fact. CommittedAt is
// assigned when the event is applied, not taken from the payload.
type Commitment struct {
	ID               uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	InvestorID       uuid.UUID       `gorm:"column:investor_id;type:uuid;not null;index:commitments_investor_id_idx"`
	Investor         *Investor       `gorm:"foreignKey:InvestorID"`
	Amount           decimal.Decimal `gorm:"column:amount;type:numeric(78,0);not null"`
	Currency         string          `gorm:"column:currency;type:varchar(16);not null"`
	PaymentReference string          `gorm:"column:payment_reference;type:varchar(128);not null"`
	TxHash           string          `gorm:"column:tx_hash;type:varchar(100);not null"`
	CommittedAt      time.Time       `gorm:"column:committed_at;not null"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
}
