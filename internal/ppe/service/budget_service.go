package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/plantsafe/ppeflow/internal/ppe/entity"
	"github.com/plantsafe/ppeflow/internal/ppe/repository"
)

// BudgetService 预算服务
//
// RecordCost is best-effort: issuance must never fail or roll back because a
// budget row is missing or the update errors. Failures are logged and dropped.
type BudgetService struct {
	repos  *repository.Repositories
	logger *zap.Logger
}

func NewBudgetService(repos *repository.Repositories, logger *zap.Logger) *BudgetService {
	return &BudgetService{repos: repos, logger: logger}
}

// RecordCost accrues an issuance cost against the yearly budget and, when the
// request carries a department, that department's budget for the same year.
// Missing budget rows are a silent no-op.
func (s *BudgetService) RecordCost(ctx context.Context, year int, departmentID *string, amount decimal.Decimal) {
	if amount.IsZero() {
		return
	}
	updated, err := s.repos.Budget.AddUsedYearly(ctx, year, amount)
	if err != nil {
		s.logger.Error("record yearly budget usage failed",
			zap.Int("year", year), zap.String("amount", amount.String()), zap.Error(err))
	} else if !updated {
		s.logger.Debug("no yearly budget row, usage not recorded", zap.Int("year", year))
	}

	if departmentID == nil {
		return
	}
	updated, err = s.repos.Budget.AddUsedDepartment(ctx, year, *departmentID, amount)
	if err != nil {
		s.logger.Error("record department budget usage failed",
			zap.Int("year", year), zap.String("department_id", *departmentID), zap.Error(err))
	} else if !updated {
		s.logger.Debug("no department budget row, usage not recorded",
			zap.Int("year", year), zap.String("department_id", *departmentID))
	}
}

// YearlyBudgetStatus 年度预算状态
type YearlyBudgetStatus struct {
	Year        int             `json:"year"`
	TotalBudget decimal.Decimal `json:"total_budget"`
	UsedBudget  decimal.Decimal `json:"used_budget"`
	Remaining   decimal.Decimal `json:"remaining"`
}

func (s *BudgetService) YearlyStatus(ctx context.Context, year int) (*YearlyBudgetStatus, error) {
	b, err := s.repos.Budget.GetYearly(ctx, year)
	if err != nil {
		return nil, storeErr("load yearly budget", err)
	}
	return &YearlyBudgetStatus{
		Year:        b.Year,
		TotalBudget: b.TotalBudget,
		UsedBudget:  b.UsedBudget,
		Remaining:   b.TotalBudget.Sub(b.UsedBudget),
	}, nil
}

// SetYearlyBudget creates or replaces the total for a year. Used budget is
// preserved when the row already exists.
func (s *BudgetService) SetYearlyBudget(ctx context.Context, year int, total decimal.Decimal) (*entity.YearlyBudget, error) {
	if total.IsNegative() {
		return nil, &ValidationError{Field: "total_budget", Message: "total budget cannot be negative"}
	}
	b, err := s.repos.Budget.GetYearly(ctx, year)
	switch {
	case err == nil:
		b.TotalBudget = total
	case errors.Is(err, gorm.ErrRecordNotFound):
		b = &entity.YearlyBudget{
			ID:          uuid.New().String(),
			Year:        year,
			TotalBudget: total,
			UsedBudget:  decimal.Zero,
		}
	default:
		return nil, storeErr("load yearly budget", err)
	}
	if err := s.repos.Budget.SaveYearly(ctx, b); err != nil {
		return nil, storeErr("save yearly budget", err)
	}
	return b, nil
}

func (s *BudgetService) DepartmentBudgets(ctx context.Context, year int) ([]entity.DepartmentBudget, error) {
	rows, err := s.repos.Budget.ListDepartment(ctx, year)
	if err != nil {
		return nil, storeErr("list department budgets", err)
	}
	return rows, nil
}

func (s *BudgetService) SetDepartmentBudget(ctx context.Context, year int, departmentID string, total decimal.Decimal) (*entity.DepartmentBudget, error) {
	if total.IsNegative() {
		return nil, &ValidationError{Field: "total_budget", Message: "total budget cannot be negative"}
	}
	if _, err := s.repos.User.GetDepartment(ctx, departmentID); err != nil {
		return nil, storeErr("load department", err)
	}
	b, err := s.repos.Budget.GetDepartment(ctx, year, departmentID)
	switch {
	case err == nil:
		b.TotalBudget = total
	case errors.Is(err, gorm.ErrRecordNotFound):
		b = &entity.DepartmentBudget{
			ID:           uuid.New().String(),
			Year:         year,
			DepartmentID: departmentID,
			TotalBudget:  total,
			UsedBudget:   decimal.Zero,
		}
	default:
		return nil, storeErr("load department budget", err)
	}
	if err := s.repos.Budget.SaveDepartment(ctx, b); err != nil {
		return nil, storeErr("save department budget", err)
	}
	return b, nil
}
