package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/dpo-global/issuance-backend/pkg/enums"
)

// ReconciliationRun summarizes one reconciliation sweep: the window it
// covered, what triggered it, and how the verified records classified.
type ReconciliationRun struct {
	ID          uuid.UUID                   `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Scope       *string                     `gorm:"column:scope;type:varchar(64)"`
	WindowStart *time.Time                  `gorm:"column:window_start"`
	WindowEnd   *time.Time                  `gorm:"column:window_end"`
	TriggeredBy enums.ReconciliationTrigger `gorm:"column:triggered_by;type:varchar(16);not null"`
	Total       int                         `gorm:"column:total;not null;default:0"`
	Reconciled  int                         `gorm:"column:reconciled;not null;default:0"`
	Mismatched  int                         `gorm:"column:mismatched;not null;default:0"`
	Unavailable int                         `gorm:"column:unavailable;not null;default:0"`
	Failed      int                         `gorm:"column:failed;not null;default:0"`
	Systems     pq.StringArray              `gorm:"column:systems;type:text[]"`
	StartedAt   time.Time                   `gorm:"column:started_at;not null"`
	FinishedAt  *time.Time                  `gorm:"column:finished_at"`
	CreatedAt   time.Time                   `gorm:"column:created_at;autoCreateTime"`
}
