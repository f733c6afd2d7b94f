package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/plantsafe/ppeflow/internal/ppe/service"
)

// InventoryHandler 库存处理器
type InventoryHandler struct {
	svc *service.InventoryService
}

func NewInventoryHandler(svc *service.InventoryService) *InventoryHandler {
	return &InventoryHandler{svc: svc}
}

// List 品项列表
// GET /api/v1/ppe?active_only=true
func (h *InventoryHandler) List(c *gin.Context) {
	activeOnly := c.DefaultQuery("active_only", "true") == "true"
	items, err := h.svc.List(c.Request.Context(), activeOnly)
	if err != nil {
		HandleDomainError(c, err)
		return
	}
	Success(c, gin.H{"items": items})
}

// Get 品项详情
// GET /api/v1/ppe/:id
func (h *InventoryHandler) Get(c *gin.Context) {
	item, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleDomainError(c, err)
		return
	}
	Success(c, item)
}

// Create 新建品项
// POST /api/v1/ppe
func (h *InventoryHandler) Create(c *gin.Context) {
	var in service.CreateItemInput
	if err := c.ShouldBindJSON(&in); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	item, err := h.svc.CreateItem(c.Request.Context(), in)
	if err != nil {
		HandleDomainError(c, err)
		return
	}
	Created(c, item)
}

// Update 更新品项
// PUT /api/v1/ppe/:id
func (h *InventoryHandler) Update(c *gin.Context) {
	var in service.UpdateItemInput
	if err := c.ShouldBindJSON(&in); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	item, err := h.svc.UpdateItem(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		HandleDomainError(c, err)
		return
	}
	Success(c, item)
}

// AddStock 入库
// POST /api/v1/ppe/stock/add
func (h *InventoryHandler) AddStock(c *gin.Context) {
	var in service.AddStockInput
	if err := c.ShouldBindJSON(&in); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	purchase, err := h.svc.AddStock(c.Request.Context(), in, GetUserID(c))
	if err != nil {
		HandleDomainError(c, err)
		return
	}
	Created(c, purchase)
}

type correctStockBody struct {
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// CorrectStock 库存盘点修正
// PUT /api/v1/ppe/:id/stock
func (h *InventoryHandler) CorrectStock(c *gin.Context) {
	var body correctStockBody
	if err := c.ShouldBindJSON(&body); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	auditRequired, err := h.svc.CorrectStock(c.Request.Context(), c.Param("id"), body.Quantity, body.UnitPrice, GetUserID(c))
	if err != nil {
		HandleDomainError(c, err)
		return
	}
	Success(c, gin.H{"audit_required": auditRequired})
}

// Alerts 低库存告警
// GET /api/v1/ppe/alerts
func (h *InventoryHandler) Alerts(c *gin.Context) {
	items, err := h.svc.Alerts(c.Request.Context())
	if err != nil {
		HandleDomainError(c, err)
		return
	}
	Success(c, gin.H{"items": items})
}

// Purchases 采购记录
// GET /api/v1/ppe/purchases?ppe_id=&limit=
func (h *InventoryHandler) Purchases(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	rows, err := h.svc.Purchases(c.Request.Context(), c.Query("ppe_id"), limit)
	if err != nil {
		HandleDomainError(c, err)
		return
	}
	Success(c, gin.H{"items": rows})
}
