package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/plantsafe/ppeflow/internal/ppe/service"
)

// AnalyticsHandler 报表处理器
type AnalyticsHandler struct {
	svc *service.AnalyticsService
}

func NewAnalyticsHandler(svc *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{svc: svc}
}

// Balances 期间结存报表
// GET /api/v1/analytics/balances?year=2026&month=3
func (h *AnalyticsHandler) Balances(c *gin.Context) {
	year, err := strconv.Atoi(c.DefaultQuery("year", strconv.Itoa(time.Now().Year())))
	if err != nil {
		BadRequest(c, "invalid year")
		return
	}

	var month *int
	if m := c.Query("month"); m != "" {
		v, err := strconv.Atoi(m)
		if err != nil {
			BadRequest(c, "invalid month")
			return
		}
		month = &v
	}

	report, err := h.svc.ComputeBalances(c.Request.Context(), year, month)
	if err != nil {
		HandleDomainError(c, err)
		return
	}
	Success(c, report)
}

// Series 月度进出趋势
// GET /api/v1/analytics/series?year=2026
func (h *AnalyticsHandler) Series(c *gin.Context) {
	year, err := strconv.Atoi(c.DefaultQuery("year", strconv.Itoa(time.Now().Year())))
	if err != nil {
		BadRequest(c, "invalid year")
		return
	}
	series, err := h.svc.YearlySeries(c.Request.Context(), year)
	if err != nil {
		HandleDomainError(c, err)
		return
	}
	Success(c, gin.H{"year": year, "months": series})
}
