package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// YearlyBudget 年度预算 — used_budget accumulates on issuance. Budget rows
// are reporting artifacts: their absence never blocks issuing PPE.
type YearlyBudget struct {
	ID          string          `json:"id" gorm:"primaryKey;size:36"`
	Year        int             `json:"year" gorm:"not null;uniqueIndex"`
	TotalBudget decimal.Decimal `json:"total_budget" gorm:"type:decimal(14,2);not null;default:0"`
	UsedBudget  decimal.Decimal `json:"used_budget" gorm:"type:decimal(14,2);not null;default:0"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (YearlyBudget) TableName() string {
	return "yearly_budget"
}

// DepartmentBudget 部门预算
type DepartmentBudget struct {
	ID           string          `json:"id" gorm:"primaryKey;size:36"`
	Year         int             `json:"year" gorm:"not null;uniqueIndex:idx_dept_budget_year_dept"`
	DepartmentID string          `json:"department_id" gorm:"size:36;not null;uniqueIndex:idx_dept_budget_year_dept"`
	TotalBudget  decimal.Decimal `json:"total_budget" gorm:"type:decimal(14,2);not null;default:0"`
	UsedBudget   decimal.Decimal `json:"used_budget" gorm:"type:decimal(14,2);not null;default:0"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func (DepartmentBudget) TableName() string {
	return "department_budgets"
}
