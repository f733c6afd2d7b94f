package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/plantsafe/ppeflow/internal/ppe/entity"
	"github.com/plantsafe/ppeflow/internal/ppe/repository"
	"github.com/plantsafe/ppeflow/internal/shared/notify"
)

// Actor 审批人身份 — resolved from the JWT by the HTTP layer.
type Actor struct {
	ID           string
	Name         string
	Role         entity.Role
	DepartmentID string
}

// WorkflowService drives the request lifecycle. All stage transitions go
// through one table keyed on the pending status, so role gating and the
// status graph live in a single place.
type WorkflowService struct {
	db         *gorm.DB
	repos      *repository.Repositories
	budget     *BudgetService
	dispatcher notify.Dispatcher
	logger     *zap.Logger
}

func NewWorkflowService(db *gorm.DB, repos *repository.Repositories, budget *BudgetService, dispatcher notify.Dispatcher, logger *zap.Logger) *WorkflowService {
	return &WorkflowService{db: db, repos: repos, budget: budget, dispatcher: dispatcher, logger: logger}
}

// stageRule describes one pending stage: who may act on it, where approval
// and rejection lead, and which decision columns the stage owns.
type stageRule struct {
	role       entity.Role
	deptScoped bool
	issues     bool // approval deducts stock and writes the issue log
	next       entity.RequestStatus
	rejected   entity.RequestStatus
	colPrefix  string
}

var stageRules = map[entity.RequestStatus]stageRule{
	entity.StatusPendingDept: {
		role:       entity.RoleDeptHead,
		deptScoped: true,
		next:       entity.StatusPendingHSE,
		rejected:   entity.StatusRejectedByDept,
		colPrefix:  "dept",
	},
	entity.StatusPendingHSE: {
		role:      entity.RoleHSE,
		issues:    true,
		rejected:  entity.StatusRejectedByHSE,
		colPrefix: "hse",
	},
	entity.StatusPendingPlantManager: {
		role:      entity.RolePlantManager,
		next:      entity.StatusPendingHR,
		rejected:  entity.StatusRejectedByPlantManager,
		colPrefix: "plant_manager",
	},
	entity.StatusPendingHR: {
		role:      entity.RoleHR,
		next:      entity.StatusReadyForPickup,
		rejected:  entity.StatusRejectedByHR,
		colPrefix: "hr",
	},
}

// SubmitItem is one line of a submission.
type SubmitItem struct {
	PpeID    string `json:"ppe_id" binding:"required"`
	Quantity int    `json:"quantity" binding:"required"`
}

// SubmitRequest 公开提交入口的参数
type SubmitRequest struct {
	RequesterName     string       `json:"requester_name" binding:"required"`
	RequesterEmpCode  string       `json:"requester_emp_code"`
	RequesterEmail    string       `json:"requester_email"`
	RequesterLocation string       `json:"requester_location"`
	DepartmentID      string       `json:"department_id" binding:"required"`
	Items             []SubmitItem `json:"items" binding:"required"`
	Note              string       `json:"note"`
	AttachmentURL     string       `json:"attachment_url"`

	RequestType          entity.RequestType `json:"request_type"`
	IncidentDescription  string             `json:"incident_description"`
	IncidentDate         *time.Time         `json:"incident_date"`
	CompensationAccepted bool               `json:"compensation_accepted"`
}

// Submit validates and creates one request row per item, all in PENDING_DEPT,
// as a single atomic batch. Nothing is written when validation fails.
func (s *WorkflowService) Submit(ctx context.Context, in SubmitRequest) ([]*entity.PpeRequest, error) {
	if strings.TrimSpace(in.RequesterName) == "" {
		return nil, &ValidationError{Field: "requester_name", Message: "name is required"}
	}
	if len(in.Items) == 0 {
		return nil, &ValidationError{Field: "items", Message: "at least one item is required"}
	}
	for _, item := range in.Items {
		if item.Quantity <= 0 {
			return nil, &ValidationError{Field: "quantity", Message: "quantity must be at least 1"}
		}
	}

	if in.RequestType == "" {
		in.RequestType = entity.RequestTypeNormal
	}
	if in.RequestType == entity.RequestTypeLostBroken {
		if strings.TrimSpace(in.IncidentDescription) == "" {
			return nil, &ValidationError{Field: "incident_description", Message: "incident description is required for lost/broken reports"}
		}
		if in.IncidentDate == nil {
			return nil, &ValidationError{Field: "incident_date", Message: "incident date is required for lost/broken reports"}
		}
		if !in.CompensationAccepted {
			return nil, &ValidationError{Field: "compensation_accepted", Message: "compensation terms must be accepted"}
		}
	}

	dept, err := s.repos.User.GetDepartment(ctx, in.DepartmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &ValidationError{Field: "department_id", Message: "unknown department"}
		}
		return nil, storeErr("load department", err)
	}

	items := make([]*entity.PpeMaster, 0, len(in.Items))
	for _, line := range in.Items {
		item, err := s.repos.Master.Get(ctx, line.PpeID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, &ValidationError{Field: "ppe_id", Message: "unknown PPE item"}
			}
			return nil, storeErr("load item", err)
		}
		if !item.Active {
			return nil, &ValidationError{Field: "ppe_id", Message: fmt.Sprintf("item %s is not available", item.Name)}
		}
		items = append(items, item)
	}

	submissionID := uuid.New().String()
	now := time.Now()
	rows := make([]*entity.PpeRequest, 0, len(in.Items))
	for i, line := range in.Items {
		row := &entity.PpeRequest{
			ID:            uuid.New().String(),
			SubmissionID:  submissionID,
			RequesterName: in.RequesterName,
			DepartmentID:  in.DepartmentID,
			PpeID:         line.PpeID,
			Quantity:      line.Quantity,
			RequestType:   in.RequestType,
			Status:        entity.StatusPendingDept,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		row.RequesterEmpCode = strPtr(in.RequesterEmpCode)
		row.RequesterEmail = strPtr(in.RequesterEmail)
		row.RequesterLocation = strPtr(in.RequesterLocation)
		row.Note = strPtr(in.Note)
		row.AttachmentURL = strPtr(in.AttachmentURL)
		if in.RequestType == entity.RequestTypeLostBroken {
			row.IncidentDescription = strPtr(in.IncidentDescription)
			row.IncidentDate = in.IncidentDate
			row.CompensationAccepted = true
		}
		row.Department = dept
		row.Item = items[i]
		rows = append(rows, row)
	}

	if err := s.repos.Request.CreateBatch(ctx, rows); err != nil {
		return nil, storeErr("create requests", err)
	}

	for _, row := range rows {
		s.emit(ctx, row, notify.KindSubmitted, in.Note)
	}
	return rows, nil
}

// Departments 部门列表 — feeds the public submission form.
func (s *WorkflowService) Departments(ctx context.Context) ([]entity.Department, error) {
	depts, err := s.repos.User.ListDepartments(ctx)
	if err != nil {
		return nil, storeErr("list departments", err)
	}
	return depts, nil
}

// Get 查询单条申请
func (s *WorkflowService) Get(ctx context.Context, requestID string) (*entity.PpeRequest, error) {
	req, err := s.repos.Request.Get(ctx, requestID)
	if err != nil {
		return nil, storeErr("load request", err)
	}
	return req, nil
}

// List 按条件分页查询申请
func (s *WorkflowService) List(ctx context.Context, params repository.ListParams) ([]entity.PpeRequest, int64, error) {
	rows, total, err := s.repos.Request.List(ctx, params)
	if err != nil {
		return nil, 0, storeErr("list requests", err)
	}
	return rows, total, nil
}

// Approve advances a request out of the given pending stage. The stage is
// explicit so a stale dashboard acting on a moved request fails with
// ErrInvalidState instead of silently re-approving.
func (s *WorkflowService) Approve(ctx context.Context, stage entity.RequestStatus, requestID string, actor Actor, note string) (*entity.PpeRequest, error) {
	rule, req, err := s.gate(ctx, stage, requestID, actor)
	if err != nil {
		return nil, err
	}

	fields := stageFields(rule.colPrefix, actor.ID, note)

	if rule.issues {
		if err := s.issue(ctx, req, actor, fields); err != nil {
			return nil, err
		}
	} else {
		if err := s.repos.Request.TransitionStatus(ctx, req.ID, stage, rule.next, fields); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrInvalidState
			}
			return nil, storeErr("update request", err)
		}
	}

	updated, err := s.repos.Request.Get(ctx, req.ID)
	if err != nil {
		return nil, storeErr("reload request", err)
	}

	// Lost/broken issuance happens at the HSE stage even though the row
	// moves on to PENDING_PLANT_MANAGER, so the kind follows the stage,
	// not the resulting status.
	kind := notify.KindApproved
	if rule.issues {
		kind = notify.KindIssued
	}
	s.emit(ctx, updated, kind, note)
	return updated, nil
}

// Reject moves a request into the stage-specific rejected terminal state.
// A reason is mandatory; nothing in inventory or budget is touched.
func (s *WorkflowService) Reject(ctx context.Context, stage entity.RequestStatus, requestID string, actor Actor, reason string) (*entity.PpeRequest, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, &ValidationError{Field: "reason", Message: "rejection reason is required"}
	}

	rule, req, err := s.gate(ctx, stage, requestID, actor)
	if err != nil {
		return nil, err
	}

	fields := stageFields(rule.colPrefix, actor.ID, reason)
	if err := s.repos.Request.TransitionStatus(ctx, req.ID, stage, rule.rejected, fields); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidState
		}
		return nil, storeErr("update request", err)
	}

	updated, err := s.repos.Request.Get(ctx, req.ID)
	if err != nil {
		return nil, storeErr("reload request", err)
	}
	s.emit(ctx, updated, notify.KindRejected, reason)
	return updated, nil
}

// ConfirmPickup completes a READY_FOR_PICKUP request. The caller must supply
// the exact employee code stored on the request; staff credentials play no
// part here.
func (s *WorkflowService) ConfirmPickup(ctx context.Context, requestID, empCode string) (*entity.PpeRequest, error) {
	req, err := s.repos.Request.Get(ctx, requestID)
	if err != nil {
		return nil, storeErr("load request", err)
	}
	if req.Status != entity.StatusReadyForPickup {
		return nil, ErrInvalidState
	}
	if req.RequesterEmpCode == nil || *req.RequesterEmpCode != empCode {
		return nil, ErrUnauthorized
	}

	now := time.Now()
	fields := map[string]interface{}{"picked_up_at": now}
	if err := s.repos.Request.TransitionStatus(ctx, req.ID, entity.StatusReadyForPickup, entity.StatusCompleted, fields); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidState
		}
		return nil, storeErr("update request", err)
	}

	updated, err := s.repos.Request.Get(ctx, req.ID)
	if err != nil {
		return nil, storeErr("reload request", err)
	}
	s.emit(ctx, updated, notify.KindPickedUp, "")
	return updated, nil
}

// Delete removes a request outright. HSE (or admin) only; irreversible.
func (s *WorkflowService) Delete(ctx context.Context, requestID string, actor Actor) error {
	if actor.Role != entity.RoleHSE && actor.Role != entity.RoleAdmin {
		return ErrUnauthorized
	}
	if err := s.repos.Request.Delete(ctx, requestID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return storeErr("delete request", err)
	}
	return nil
}

// Reconcile backfills issue-log rows for APPROVED_ISSUED requests that are
// missing one. The partial-write window this repairs is closed for new
// issuances (they run in a transaction); this covers rows issued before that.
func (s *WorkflowService) Reconcile(ctx context.Context, actor Actor) (int, error) {
	if actor.Role != entity.RoleHSE && actor.Role != entity.RoleAdmin {
		return 0, ErrUnauthorized
	}

	issued, err := s.repos.Request.ListByStatus(ctx, entity.StatusApprovedIssued)
	if err != nil {
		return 0, storeErr("list issued requests", err)
	}
	logged, err := s.repos.Movement.IssueLogRequestIDs(ctx)
	if err != nil {
		return 0, storeErr("list issue log", err)
	}

	fixed := 0
	for i := range issued {
		req := issued[i]
		if logged[req.ID] || req.Item == nil {
			continue
		}
		issuedAt := req.CreatedAt
		if req.HseApprovedAt != nil {
			issuedAt = *req.HseApprovedAt
		}
		issuedBy := actor.ID
		if req.HseApprovedBy != nil {
			issuedBy = *req.HseApprovedBy
		}
		price := req.Item.UnitPrice
		log := &entity.PpeIssueLog{
			ID:               uuid.New().String(),
			RequestID:        req.ID,
			PpeID:            req.PpeID,
			IssuedQuantity:   req.Quantity,
			UnitPriceAtIssue: price,
			TotalCost:        price.Mul(decimal.NewFromInt(int64(req.Quantity))),
			IssuedBy:         issuedBy,
			IssuedAt:         issuedAt,
		}
		if err := s.repos.Movement.AppendIssueLog(ctx, log); err != nil {
			return fixed, storeErr("backfill issue log", err)
		}
		fixed++
	}

	s.logger.Info("issue log reconciliation finished", zap.Int("backfilled", fixed))
	return fixed, nil
}

// gate runs the uniform transition preamble: stage lookup, role check,
// request load, status check, department scope check.
func (s *WorkflowService) gate(ctx context.Context, stage entity.RequestStatus, requestID string, actor Actor) (stageRule, *entity.PpeRequest, error) {
	rule, ok := stageRules[stage]
	if !ok {
		return stageRule{}, nil, ErrInvalidState
	}
	admin := actor.Role == entity.RoleAdmin
	if actor.ID == "" || (actor.Role != rule.role && !admin) {
		return stageRule{}, nil, ErrUnauthorized
	}

	req, err := s.repos.Request.Get(ctx, requestID)
	if err != nil {
		return stageRule{}, nil, storeErr("load request", err)
	}
	if req.Status != stage {
		return stageRule{}, nil, ErrInvalidState
	}
	if rule.deptScoped && !admin && (actor.DepartmentID == "" || actor.DepartmentID != req.DepartmentID) {
		return stageRule{}, nil, ErrUnauthorized
	}
	return rule, req, nil
}

// issue performs the issuance sequence atomically: conditional stock deduct,
// CAS status update, issue-log append. Price and quantity are captured here;
// later price edits leave the log untouched. The budget write happens after
// commit because a missing budget row must never block issuance.
func (s *WorkflowService) issue(ctx context.Context, req *entity.PpeRequest, actor Actor, fields map[string]interface{}) error {
	next := entity.StatusApprovedIssued
	if req.RequestType == entity.RequestTypeLostBroken {
		next = entity.StatusPendingPlantManager
	}

	var (
		totalCost   decimal.Decimal
		stockBefore int
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepos := repository.NewRepositories(tx)

		// Re-read inside the transaction so the captured price and the
		// stock check see the same row version.
		item, err := txRepos.Master.Get(ctx, req.PpeID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return storeErr("load item", err)
		}

		stockBefore, err = txRepos.Master.DeductStock(ctx, req.PpeID, req.Quantity)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &InsufficientStockError{Requested: req.Quantity, Available: item.StockQuantity}
			}
			return storeErr("deduct stock", err)
		}

		if err := txRepos.Request.TransitionStatus(ctx, req.ID, entity.StatusPendingHSE, next, fields); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvalidState
			}
			return storeErr("update request", err)
		}

		totalCost = item.UnitPrice.Mul(decimal.NewFromInt(int64(req.Quantity)))
		log := &entity.PpeIssueLog{
			ID:               uuid.New().String(),
			RequestID:        req.ID,
			PpeID:            req.PpeID,
			IssuedQuantity:   req.Quantity,
			UnitPriceAtIssue: item.UnitPrice,
			TotalCost:        totalCost,
			IssuedBy:         actor.ID,
			IssuedAt:         time.Now(),
		}
		if err := txRepos.Movement.AppendIssueLog(ctx, log); err != nil {
			return storeErr("append issue log", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("stock issued",
		zap.String("request_id", req.ID),
		zap.String("ppe_id", req.PpeID),
		zap.Int("quantity", req.Quantity),
		zap.Int("stock_before", stockBefore),
	)

	s.budget.RecordCost(ctx, time.Now().Year(), strPtr(req.DepartmentID), totalCost)
	return nil
}

// stageFields builds the per-stage decision columns.
func stageFields(prefix, actorID, note string) map[string]interface{} {
	fields := map[string]interface{}{
		prefix + "_approved_at": time.Now(),
		prefix + "_approved_by": actorID,
	}
	if strings.TrimSpace(note) != "" {
		fields[prefix+"_decision_note"] = note
	}
	return fields
}

func (s *WorkflowService) emit(ctx context.Context, req *entity.PpeRequest, kind notify.EventKind, note string) {
	ev := notify.Event{
		Kind:          kind,
		RequestID:     req.ID,
		RequesterName: req.RequesterName,
		Quantity:      req.Quantity,
		NewStatus:     string(req.Status),
		RequestType:   string(req.RequestType),
		Note:          note,
	}
	if req.RequesterEmail != nil {
		ev.RequesterEmail = *req.RequesterEmail
	}
	if req.Department != nil {
		ev.DeptName = req.Department.Name
		ev.DeptHeadEmail = req.Department.DeptHeadEmail
	}
	if req.Item != nil {
		ev.ItemName = req.Item.Name
		ev.Unit = req.Item.Unit
	}
	if req.IncidentDescription != nil {
		ev.IncidentSummary = *req.IncidentDescription
	}
	s.dispatcher.Dispatch(ctx, ev)
}

func strPtr(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
