package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/plantsafe/ppeflow/internal/ppe/entity"
)

type MovementRepository struct {
	db *gorm.DB
}

func NewMovementRepository(db *gorm.DB) *MovementRepository {
	return &MovementRepository{db: db}
}

// AppendIssueLog 追加发放记录 — insert only, never updated.
func (r *MovementRepository) AppendIssueLog(ctx context.Context, log *entity.PpeIssueLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

// AppendPurchase 追加采购记录
func (r *MovementRepository) AppendPurchase(ctx context.Context, p *entity.PpePurchase) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *MovementRepository) ListPurchases(ctx context.Context, ppeID string, limit int) ([]entity.PpePurchase, error) {
	query := r.db.WithContext(ctx).Model(&entity.PpePurchase{})
	if ppeID != "" {
		query = query.Where("ppe_id = ?", ppeID)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	var items []entity.PpePurchase
	err := query.Order("purchased_at DESC").Find(&items).Error
	return items, err
}

// IssueLogRequestIDs returns the set of request ids already covered by an
// issue-log row. Used by the reconciliation pass.
func (r *MovementRepository) IssueLogRequestIDs(ctx context.Context) (map[string]bool, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&entity.PpeIssueLog{}).
		Pluck("request_id", &ids).Error
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

// SumPurchased returns total purchased quantity within [from, to). An empty
// ppeID sums across all items; a zero `to` means unbounded (through now).
func (r *MovementRepository) SumPurchased(ctx context.Context, ppeID string, from, to time.Time) (int, error) {
	return r.sumQuantity(ctx, &entity.PpePurchase{}, "quantity", "purchased_at", ppeID, from, to)
}

// SumIssued returns total issued quantity within [from, to).
func (r *MovementRepository) SumIssued(ctx context.Context, ppeID string, from, to time.Time) (int, error) {
	return r.sumQuantity(ctx, &entity.PpeIssueLog{}, "issued_quantity", "issued_at", ppeID, from, to)
}

func (r *MovementRepository) sumQuantity(
	ctx context.Context,
	model interface{},
	qtyCol, tsCol, ppeID string,
	from, to time.Time,
) (int, error) {
	var result struct{ Total int }
	query := r.db.WithContext(ctx).Model(model).
		Select("COALESCE(SUM(" + qtyCol + "), 0) AS total").
		Where(tsCol+" >= ?", from)
	if ppeID != "" {
		query = query.Where("ppe_id = ?", ppeID)
	}
	if !to.IsZero() {
		query = query.Where(tsCol+" < ?", to)
	}
	err := query.Scan(&result).Error
	return result.Total, err
}
