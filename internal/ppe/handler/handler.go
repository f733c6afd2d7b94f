package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/plantsafe/ppeflow/internal/ppe/entity"
	"github.com/plantsafe/ppeflow/internal/ppe/service"
)

// Handlers 处理器集合
type Handlers struct {
	Auth      *AuthHandler
	Request   *RequestHandler
	Approval  *ApprovalHandler
	Inventory *InventoryHandler
	Analytics *AnalyticsHandler
	Budget    *BudgetHandler
	Upload    *UploadHandler
}

// NewHandlers 创建处理器集合
func NewHandlers(svc *service.Services) *Handlers {
	return &Handlers{
		Auth:      NewAuthHandler(svc.Auth),
		Request:   NewRequestHandler(svc.Workflow),
		Approval:  NewApprovalHandler(svc.Workflow),
		Inventory: NewInventoryHandler(svc.Inventory),
		Analytics: NewAnalyticsHandler(svc.Analytics),
		Budget:    NewBudgetHandler(svc.Budget),
		Upload:    NewUploadHandler(svc.Attachment),
	}
}

// Response 通用响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(200, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Created 创建成功响应
func Created(c *gin.Context, data interface{}) {
	c.JSON(201, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Error 错误响应
func Error(c *gin.Context, code int, message string) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = 500
	}
	c.JSON(statusCode, Response{
		Code:    code,
		Message: message,
	})
}

// BadRequest 参数错误响应
func BadRequest(c *gin.Context, message string) {
	Error(c, 40000, message)
}

// Unauthorized 未授权响应
func Unauthorized(c *gin.Context, message string) {
	Error(c, 40100, message)
}

// Forbidden 禁止访问响应
func Forbidden(c *gin.Context, message string) {
	Error(c, 40300, message)
}

// NotFound 资源不存在响应
func NotFound(c *gin.Context, message string) {
	Error(c, 40400, message)
}

// Conflict 状态冲突响应
func Conflict(c *gin.Context, message string) {
	Error(c, 40900, message)
}

// InternalError 服务器错误响应
func InternalError(c *gin.Context, message string) {
	Error(c, 50000, message)
}

// HandleDomainError maps service-layer errors onto the response envelope.
// User-facing failures keep their specific message so staff can act on it.
func HandleDomainError(c *gin.Context, err error) {
	var (
		validationErr *service.ValidationError
		stockErr      *service.InsufficientStockError
	)
	switch {
	case errors.As(err, &validationErr):
		BadRequest(c, validationErr.Error())
	case errors.As(err, &stockErr):
		Conflict(c, stockErr.Error())
	case errors.Is(err, service.ErrInvalidQty):
		BadRequest(c, "quantity must be at least 1")
	case errors.Is(err, service.ErrNotFound):
		NotFound(c, "not found")
	case errors.Is(err, service.ErrInvalidState):
		Conflict(c, "request is not in the expected stage")
	case errors.Is(err, service.ErrUnauthorized):
		Forbidden(c, "not allowed to perform this action")
	default:
		InternalError(c, err.Error())
	}
}

// GetUserID 从上下文获取用户ID
func GetUserID(c *gin.Context) string {
	userID, _ := c.Get("user_id")
	if id, ok := userID.(string); ok {
		return id
	}
	return ""
}

// GetActor builds the acting identity from the JWT claims set by middleware.
func GetActor(c *gin.Context) service.Actor {
	return service.Actor{
		ID:           c.GetString("user_id"),
		Name:         c.GetString("user_name"),
		Role:         entity.Role(c.GetString("role")),
		DepartmentID: c.GetString("department_id"),
	}
}

// GetPagination 从请求获取分页参数
func GetPagination(c *gin.Context) (page, pageSize int) {
	page = 1
	pageSize = 20

	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v
		}
	}

	if ps := c.Query("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v
		}
	}

	return page, pageSize
}
