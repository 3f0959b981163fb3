package reconciliation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dpo-global/issuance-backend/internal/repo"
	"github.com/dpo-global/issuance-backend/pkg/db/models"
	"github.com/dpo-global/issuance-backend/pkg/enums"
)

// Repository manages the verification side of settlement records plus the
// sweep audit trail. Status, status_reason and verified_at are the only
// record columns it writes; everything else is owned by ingestion.
type Repository interface {
	PendingRecords(ctx context.Context, scope *enums.CSDSystem, limit int) ([]models.SettlementRecord, error)
	ActiveMappings(ctx context.Context) ([]models.CSDMapping, error)
	ApplyVerification(ctx context.Context, recordID uuid.UUID, status enums.SettlementStatus, reason *string, verifiedAt time.Time) error

	CreateRun(ctx context.Context, run *models.ReconciliationRun) error
	FinishRun(ctx context.Context, run *models.ReconciliationRun) error

	StatusCountsInWindow(ctx context.Context, scope *enums.CSDSystem, start, end time.Time) (map[enums.SettlementStatus]int, error)
	DiscrepanciesInWindow(ctx context.Context, scope *enums.CSDSystem, start, end time.Time) ([]models.SettlementRecord, error)
}

type repository struct {
	base repo.Base
}

// NewRepository returns a reconciliation repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{base: repo.NewBase(db)}
}

// PendingRecords returns records still awaiting a verified outcome, oldest
// settlement first. DISCREPANT records are included so later sweeps can
// clear a discrepancy the depository has since corrected.
func (r *repository) PendingRecords(ctx context.Context, scope *enums.CSDSystem, limit int) ([]models.SettlementRecord, error) {
	query := r.base.DB(ctx).
		Preload("Investor").
		Where("status IN ?", []enums.SettlementStatus{
			enums.SettlementStatusPending,
			enums.SettlementStatusDiscrepant,
		}).
		Order("settled_at asc")
	if scope != nil {
		query = query.Where("settlement_system = ?", *scope)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	var records []models.SettlementRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("load pending settlement records: %w", err)
	}
	return records, nil
}

// ActiveMappings returns active depository mappings, most recently updated
// first, with their identifiers preloaded.
func (r *repository) ActiveMappings(ctx context.Context) ([]models.CSDMapping, error) {
	var mappings []models.CSDMapping
	err := r.base.DB(ctx).
		Preload("Identifier").
		Where("active = ?", true).
		Order("last_updated desc").
		Find(&mappings).Error
	if err != nil {
		return nil, fmt.Errorf("load active csd mappings: %w", err)
	}
	return mappings, nil
}

// ApplyVerification writes a verified outcome onto one record. A nil
// reason clears any reason from a previous sweep.
func (r *repository) ApplyVerification(ctx context.Context, recordID uuid.UUID, status enums.SettlementStatus, reason *string, verifiedAt time.Time) error {
	if recordID == uuid.Nil {
		return fmt.Errorf("record id required")
	}
	result := r.base.DB(ctx).
		Model(&models.SettlementRecord{}).
		Where("id = ?", recordID).
		Updates(map[string]any{
			"status":        status,
			"status_reason": reason,
			"verified_at":   verifiedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("apply verification: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("settlement record %s not found", recordID)
	}
	return nil
}

func (r *repository) CreateRun(ctx context.Context, run *models.ReconciliationRun) error {
	if run == nil {
		return fmt.Errorf("run required")
	}
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	return r.base.DB(ctx).Create(run).Error
}

func (r *repository) FinishRun(ctx context.Context, run *models.ReconciliationRun) error {
	if run == nil {
		return fmt.Errorf("run required")
	}
	if run.ID == uuid.Nil {
		return fmt.Errorf("run id required")
	}
	return r.base.DB(ctx).
		Model(&models.ReconciliationRun{}).
		Where("id = ?", run.ID).
		Updates(map[string]any{
			"total":       run.Total,
			"reconciled":  run.Reconciled,
			"mismatched":  run.Mismatched,
			"unavailable": run.Unavailable,
			"failed":      run.Failed,
			"systems":     run.Systems,
			"finished_at": run.FinishedAt,
		}).Error
}

// StatusCountsInWindow aggregates record counts by status over a settled_at
// window.
func (r *repository) StatusCountsInWindow(ctx context.Context, scope *enums.CSDSystem, start, end time.Time) (map[enums.SettlementStatus]int, error) {
	type statusCount struct {
		Status enums.SettlementStatus
		Count  int
	}
	query := r.base.DB(ctx).
		Model(&models.SettlementRecord{}).
		Select("status, COUNT(*) AS count").
		Where("settled_at >= ? AND settled_at <= ?", start, end).
		Group("status")
	if scope != nil {
		query = query.Where("settlement_system = ?", *scope)
	}
	var rows []statusCount
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("count settlement statuses: %w", err)
	}
	counts := make(map[enums.SettlementStatus]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// DiscrepanciesInWindow returns the records a report must itemize:
// confirmed mismatches plus records that exhausted verification.
func (r *repository) DiscrepanciesInWindow(ctx context.Context, scope *enums.CSDSystem, start, end time.Time) ([]models.SettlementRecord, error) {
	query := r.base.DB(ctx).
		Where("settled_at >= ? AND settled_at <= ?", start, end).
		Where("status IN ?", []enums.SettlementStatus{
			enums.SettlementStatusDiscrepant,
			enums.SettlementStatusFailed,
		}).
		Order("settled_at asc")
	if scope != nil {
		query = query.Where("settlement_system = ?", *scope)
	}
	var records []models.SettlementRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("load discrepancies: %w", err)
	}
	return records, nil
}
