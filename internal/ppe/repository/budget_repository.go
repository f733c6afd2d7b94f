package repository

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/plantsafe/ppeflow/internal/ppe/entity"
)

type BudgetRepository struct {
	db *gorm.DB
}

func NewBudgetRepository(db *gorm.DB) *BudgetRepository {
	return &BudgetRepository{db: db}
}

func (r *BudgetRepository) GetYearly(ctx context.Context, year int) (*entity.YearlyBudget, error) {
	var b entity.YearlyBudget
	if err := r.db.WithContext(ctx).Where("year = ?", year).First(&b).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BudgetRepository) GetDepartment(ctx context.Context, year int, deptID string) (*entity.DepartmentBudget, error) {
	var b entity.DepartmentBudget
	err := r.db.WithContext(ctx).
		Where("year = ? AND department_id = ?", year, deptID).
		First(&b).Error
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// AddUsedYearly accumulates used_budget additively in one statement so
// concurrent issuances never lose an increment. RowsAffected==0 means no
// budget row exists for the year; callers treat that as a no-op.
func (r *BudgetRepository) AddUsedYearly(ctx context.Context, year int, amount decimal.Decimal) (bool, error) {
	res := r.db.WithContext(ctx).Model(&entity.YearlyBudget{}).
		Where("year = ?", year).
		UpdateColumn("used_budget", gorm.Expr("used_budget + ?", amount))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// AddUsedDepartment mirrors AddUsedYearly for the per-department row.
func (r *BudgetRepository) AddUsedDepartment(ctx context.Context, year int, deptID string, amount decimal.Decimal) (bool, error) {
	res := r.db.WithContext(ctx).Model(&entity.DepartmentBudget{}).
		Where("year = ? AND department_id = ?", year, deptID).
		UpdateColumn("used_budget", gorm.Expr("used_budget + ?", amount))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *BudgetRepository) SaveYearly(ctx context.Context, b *entity.YearlyBudget) error {
	return r.db.WithContext(ctx).Save(b).Error
}

func (r *BudgetRepository) SaveDepartment(ctx context.Context, b *entity.DepartmentBudget) error {
	return r.db.WithContext(ctx).Save(b).Error
}

func (r *BudgetRepository) ListDepartment(ctx context.Context, year int) ([]entity.DepartmentBudget, error) {
	var items []entity.DepartmentBudget
	err := r.db.WithContext(ctx).Where("year = ?", year).Find(&items).Error
	return items, err
}
