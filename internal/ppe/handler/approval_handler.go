package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/plantsafe/ppeflow/internal/ppe/entity"
	"github.com/plantsafe/ppeflow/internal/ppe/service"
)

// ApprovalHandler 审批处理器 — the authenticated staff surface. Each pending
// stage gets its own route so the acted-on stage is explicit in the URL.
type ApprovalHandler struct {
	svc *service.WorkflowService
}

func NewApprovalHandler(svc *service.WorkflowService) *ApprovalHandler {
	return &ApprovalHandler{svc: svc}
}

type decisionBody struct {
	Note   string `json:"note"`
	Reason string `json:"reason"`
}

// Approve 审批通过
// POST /api/v1/approvals/{stage}/:id/approve
func (h *ApprovalHandler) Approve(stage entity.RequestStatus) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body decisionBody
		// Body is optional on approval.
		_ = c.ShouldBindJSON(&body)

		req, err := h.svc.Approve(c.Request.Context(), stage, c.Param("id"), GetActor(c), body.Note)
		if err != nil {
			HandleDomainError(c, err)
			return
		}
		Success(c, req)
	}
}

// Reject 审批驳回 — reason required.
// POST /api/v1/approvals/{stage}/:id/reject
func (h *ApprovalHandler) Reject(stage entity.RequestStatus) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body decisionBody
		if err := c.ShouldBindJSON(&body); err != nil {
			BadRequest(c, "Invalid request body: "+err.Error())
			return
		}

		req, err := h.svc.Reject(c.Request.Context(), stage, c.Param("id"), GetActor(c), body.Reason)
		if err != nil {
			HandleDomainError(c, err)
			return
		}
		Success(c, req)
	}
}

// Delete 删除申请
// DELETE /api/v1/requests/:id
func (h *ApprovalHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id"), GetActor(c)); err != nil {
		HandleDomainError(c, err)
		return
	}
	Success(c, nil)
}

// Reconcile 补写缺失的发放记录
// POST /api/v1/maintenance/reconcile
func (h *ApprovalHandler) Reconcile(c *gin.Context) {
	fixed, err := h.svc.Reconcile(c.Request.Context(), GetActor(c))
	if err != nil {
		HandleDomainError(c, err)
		return
	}
	Success(c, gin.H{"backfilled": fixed})
}
