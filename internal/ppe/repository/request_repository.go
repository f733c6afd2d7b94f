package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/plantsafe/ppeflow/internal/ppe/entity"
)

type RequestRepository struct {
	db *gorm.DB
}

func NewRequestRepository(db *gorm.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// Get 读取单条申请（含品项、部门、审批人）
func (r *RequestRepository) Get(ctx context.Context, id string) (*entity.PpeRequest, error) {
	var req entity.PpeRequest
	err := r.db.WithContext(ctx).
		Preload("Department").
		Preload("Item").
		Preload("DeptApprover").
		Preload("HseApprover").
		Where("id = ?", id).
		First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// ListParams 申请列表过滤条件
type ListParams struct {
	Status       entity.RequestStatus
	DepartmentID string
	EmpCode      string
	SubmissionID string
	Page         int
	Size         int
}

// List returns requests matching params, newest first.
func (r *RequestRepository) List(ctx context.Context, params ListParams) ([]entity.PpeRequest, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.PpeRequest{})
	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}
	if params.DepartmentID != "" {
		query = query.Where("department_id = ?", params.DepartmentID)
	}
	if params.EmpCode != "" {
		query = query.Where("requester_emp_code = ?", params.EmpCode)
	}
	if params.SubmissionID != "" {
		query = query.Where("submission_id = ?", params.SubmissionID)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if params.Page <= 0 {
		params.Page = 1
	}
	if params.Size <= 0 {
		params.Size = 20
	}
	var items []entity.PpeRequest
	err := query.Preload("Department").Preload("Item").
		Order("created_at DESC").
		Offset((params.Page - 1) * params.Size).Limit(params.Size).
		Find(&items).Error
	return items, total, err
}

// CreateBatch inserts all rows of one submission atomically.
func (r *RequestRepository) CreateBatch(ctx context.Context, reqs []*entity.PpeRequest) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, req := range reqs {
			if err := tx.Create(req).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// TransitionStatus performs a compare-and-swap status update: the row is
// touched only if its status still equals expected. Returns
// gorm.ErrRecordNotFound when the guard misses, so a concurrent double
// approval loses cleanly instead of overwriting.
func (r *RequestRepository) TransitionStatus(
	ctx context.Context,
	id string,
	expected, next entity.RequestStatus,
	fields map[string]interface{},
) error {
	if fields == nil {
		fields = map[string]interface{}{}
	}
	fields["status"] = next
	fields["updated_at"] = time.Now()

	res := r.db.WithContext(ctx).Model(&entity.PpeRequest{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete 硬删除 — administrative, irreversible.
func (r *RequestRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.PpeRequest{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListByStatus returns all rows in one status, no paging. Used by the
// reconciliation pass.
func (r *RequestRepository) ListByStatus(ctx context.Context, status entity.RequestStatus) ([]entity.PpeRequest, error) {
	var items []entity.PpeRequest
	err := r.db.WithContext(ctx).
		Preload("Item").
		Where("status = ?", status).
		Find(&items).Error
	return items, err
}
