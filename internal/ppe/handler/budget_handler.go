package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/plantsafe/ppeflow/internal/ppe/service"
)

// BudgetHandler 预算处理器
type BudgetHandler struct {
	svc *service.BudgetService
}

func NewBudgetHandler(svc *service.BudgetService) *BudgetHandler {
	return &BudgetHandler{svc: svc}
}

func yearParam(c *gin.Context) (int, bool) {
	year, err := strconv.Atoi(c.DefaultQuery("year", strconv.Itoa(time.Now().Year())))
	if err != nil {
		BadRequest(c, "invalid year")
		return 0, false
	}
	return year, true
}

// YearlyStatus 年度预算状态
// GET /api/v1/budgets/yearly?year=2026
func (h *BudgetHandler) YearlyStatus(c *gin.Context) {
	year, ok := yearParam(c)
	if !ok {
		return
	}
	status, err := h.svc.YearlyStatus(c.Request.Context(), year)
	if err != nil {
		HandleDomainError(c, err)
		return
	}
	Success(c, status)
}

type setYearlyBody struct {
	Year        int             `json:"year" binding:"required"`
	TotalBudget decimal.Decimal `json:"total_budget"`
}

// SetYearly 设置年度预算
// PUT /api/v1/budgets/yearly
func (h *BudgetHandler) SetYearly(c *gin.Context) {
	var body setYearlyBody
	if err := c.ShouldBindJSON(&body); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	b, err := h.svc.SetYearlyBudget(c.Request.Context(), body.Year, body.TotalBudget)
	if err != nil {
		HandleDomainError(c, err)
		return
	}
	Success(c, b)
}

// ListDepartment 部门预算列表
// GET /api/v1/budgets/departments?year=2026
func (h *BudgetHandler) ListDepartment(c *gin.Context) {
	year, ok := yearParam(c)
	if !ok {
		return
	}
	rows, err := h.svc.DepartmentBudgets(c.Request.Context(), year)
	if err != nil {
		HandleDomainError(c, err)
		return
	}
	Success(c, gin.H{"items": rows})
}

type setDepartmentBody struct {
	Year         int             `json:"year" binding:"required"`
	DepartmentID string          `json:"department_id" binding:"required"`
	TotalBudget  decimal.Decimal `json:"total_budget"`
}

// SetDepartment 设置部门预算
// PUT /api/v1/budgets/departments
func (h *BudgetHandler) SetDepartment(c *gin.Context) {
	var body setDepartmentBody
	if err := c.ShouldBindJSON(&body); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	b, err := h.svc.SetDepartmentBudget(c.Request.Context(), body.Year, body.DepartmentID, body.TotalBudget)
	if err != nil {
		HandleDomainError(c, err)
		return
	}
	Success(c, b)
}
