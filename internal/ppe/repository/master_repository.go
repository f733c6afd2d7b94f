package repository

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/plantsafe/ppeflow/internal/ppe/entity"
)

type MasterRepository struct {
	db *gorm.DB
}

func NewMasterRepository(db *gorm.DB) *MasterRepository {
	return &MasterRepository{db: db}
}

func (r *MasterRepository) Get(ctx context.Context, id string) (*entity.PpeMaster, error) {
	var item entity.PpeMaster
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// List returns items, optionally only active ones.
func (r *MasterRepository) List(ctx context.Context, activeOnly bool) ([]entity.PpeMaster, error) {
	query := r.db.WithContext(ctx).Model(&entity.PpeMaster{})
	if activeOnly {
		query = query.Where("active = ?", true)
	}
	var items []entity.PpeMaster
	err := query.Order("name ASC").Find(&items).Error
	return items, err
}

// ListLowStock 库存预警 — items at or below their minimum threshold.
func (r *MasterRepository) ListLowStock(ctx context.Context) ([]entity.PpeMaster, error) {
	var items []entity.PpeMaster
	err := r.db.WithContext(ctx).
		Where("active = ? AND stock_quantity <= minimum_stock", true).
		Order("name ASC").
		Find(&items).Error
	return items, err
}

func (r *MasterRepository) Create(ctx context.Context, item *entity.PpeMaster) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *MasterRepository) Save(ctx context.Context, item *entity.PpeMaster) error {
	return r.db.WithContext(ctx).Save(item).Error
}

// DeductStock performs the conditional deduct in a single statement:
// stock is decremented only when it can cover qty, so it can never go
// negative regardless of concurrent issuance. Returns the pre-deduction
// stock level for the audit trail, or RowsAffected==0 as
// gorm.ErrRecordNotFound for the caller to distinguish via a re-read.
func (r *MasterRepository) DeductStock(ctx context.Context, id string, qty int) (int, error) {
	var updated entity.PpeMaster
	res := r.db.WithContext(ctx).Model(&updated).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "stock_quantity"}}}).
		Where("id = ? AND stock_quantity >= ?", id, qty).
		UpdateColumn("stock_quantity", gorm.Expr("stock_quantity - ?", qty))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, gorm.ErrRecordNotFound
	}
	return updated.StockQuantity + qty, nil
}

// AddStock increments the stock counter additively.
func (r *MasterRepository) AddStock(ctx context.Context, id string, qty int) error {
	res := r.db.WithContext(ctx).Model(&entity.PpeMaster{}).
		Where("id = ?", id).
		UpdateColumn("stock_quantity", gorm.Expr("stock_quantity + ?", qty))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// OverwriteStock directly sets stock and price. Administrative escape hatch
// for reconciling physical counts; leaves no ledger row.
func (r *MasterRepository) OverwriteStock(ctx context.Context, id string, qty int, price decimal.Decimal) error {
	res := r.db.WithContext(ctx).Model(&entity.PpeMaster{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"stock_quantity": qty,
			"unit_price":     price,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
