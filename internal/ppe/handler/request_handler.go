package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/plantsafe/ppeflow/internal/ppe/entity"
	"github.com/plantsafe/ppeflow/internal/ppe/repository"
	"github.com/plantsafe/ppeflow/internal/ppe/service"
)

// RequestHandler 申请处理器 — the public (unauthenticated) surface: workers
// submit and track requests and confirm pickup with their employee code.
type RequestHandler struct {
	svc *service.WorkflowService
}

func NewRequestHandler(svc *service.WorkflowService) *RequestHandler {
	return &RequestHandler{svc: svc}
}

// Submit 提交申请
// POST /api/v1/requests
func (h *RequestHandler) Submit(c *gin.Context) {
	var req service.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	rows, err := h.svc.Submit(c.Request.Context(), req)
	if err != nil {
		HandleDomainError(c, err)
		return
	}
	Created(c, gin.H{"items": rows, "submission_id": rows[0].SubmissionID})
}

// Get 查询申请详情
// GET /api/v1/requests/:id
func (h *RequestHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		BadRequest(c, "Request ID is required")
		return
	}
	req, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		HandleDomainError(c, err)
		return
	}
	Success(c, req)
}

// Track 按员工编号查询本人申请
// GET /api/v1/requests/track?emp_code=xxx
func (h *RequestHandler) Track(c *gin.Context) {
	empCode := c.Query("emp_code")
	if empCode == "" {
		BadRequest(c, "emp_code is required")
		return
	}
	page, size := GetPagination(c)
	rows, total, err := h.svc.List(c.Request.Context(), repository.ListParams{
		EmpCode: empCode,
		Page:    page,
		Size:    size,
	})
	if err != nil {
		HandleDomainError(c, err)
		return
	}
	Success(c, gin.H{"items": rows, "total": total})
}

// List 按条件分页查询申请（员工端面板用）
// GET /api/v1/requests?status=&department_id=&submission_id=
func (h *RequestHandler) List(c *gin.Context) {
	page, size := GetPagination(c)
	rows, total, err := h.svc.List(c.Request.Context(), repository.ListParams{
		Status:       entity.RequestStatus(c.Query("status")),
		DepartmentID: c.Query("department_id"),
		SubmissionID: c.Query("submission_id"),
		Page:         page,
		Size:         size,
	})
	if err != nil {
		HandleDomainError(c, err)
		return
	}
	Success(c, gin.H{"items": rows, "total": total})
}

// Departments 部门列表（提交表单下拉用）
// GET /api/v1/departments
func (h *RequestHandler) Departments(c *gin.Context) {
	depts, err := h.svc.Departments(c.Request.Context())
	if err != nil {
		HandleDomainError(c, err)
		return
	}
	Success(c, gin.H{"items": depts})
}

type pickupBody struct {
	EmpCode string `json:"emp_code" binding:"required"`
}

// ConfirmPickup 确认领取
// POST /api/v1/requests/:id/pickup
func (h *RequestHandler) ConfirmPickup(c *gin.Context) {
	id := c.Param("id")
	var body pickupBody
	if err := c.ShouldBindJSON(&body); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	req, err := h.svc.ConfirmPickup(c.Request.Context(), id, body.EmpCode)
	if err != nil {
		HandleDomainError(c, err)
		return
	}
	Success(c, req)
}
