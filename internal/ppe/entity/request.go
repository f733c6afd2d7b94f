package entity

import "time"

// RequestStatus 申请状态 — wire values are stable strings shared with stored data.
type RequestStatus string

const (
	StatusPendingDept            RequestStatus = "PENDING_DEPT"
	StatusRejectedByDept         RequestStatus = "REJECTED_BY_DEPT"
	StatusPendingHSE             RequestStatus = "PENDING_HSE"
	StatusRejectedByHSE          RequestStatus = "REJECTED_BY_HSE"
	StatusPendingPlantManager    RequestStatus = "PENDING_PLANT_MANAGER"
	StatusRejectedByPlantManager RequestStatus = "REJECTED_BY_PLANT_MANAGER"
	StatusPendingHR              RequestStatus = "PENDING_HR"
	StatusRejectedByHR           RequestStatus = "REJECTED_BY_HR"
	StatusReadyForPickup         RequestStatus = "READY_FOR_PICKUP"
	StatusApprovedIssued         RequestStatus = "APPROVED_ISSUED"
	StatusCompleted              RequestStatus = "COMPLETED"
)

// Terminal reports whether no further transition is allowed from s.
func (s RequestStatus) Terminal() bool {
	switch s {
	case StatusRejectedByDept, StatusRejectedByHSE, StatusRejectedByPlantManager,
		StatusRejectedByHR, StatusApprovedIssued, StatusCompleted:
		return true
	}
	return false
}

// RequestType 申请类型
type RequestType string

const (
	RequestTypeNormal     RequestType = "NORMAL"
	RequestTypeLostBroken RequestType = "LOST_BROKEN"
)

// PpeRequest 劳保用品申请 — one row per item; a multi-item submission shares
// a submission_id across rows.
type PpeRequest struct {
	ID                string  `json:"id" gorm:"primaryKey;size:36"`
	SubmissionID      string  `json:"submission_id" gorm:"size:36;index"`
	RequesterName     string  `json:"requester_name" gorm:"size:128;not null"`
	RequesterEmpCode  *string `json:"requester_emp_code" gorm:"size:32;index"`
	RequesterEmail    *string `json:"requester_email" gorm:"size:128"`
	RequesterLocation *string `json:"requester_location" gorm:"size:128"`
	DepartmentID      string  `json:"requester_department_id" gorm:"size:36;not null;index"`
	PpeID             string  `json:"ppe_id" gorm:"size:36;not null;index"`
	Quantity          int     `json:"quantity" gorm:"not null"`
	Note              *string `json:"note" gorm:"type:text"`
	AttachmentURL     *string `json:"attachment_url" gorm:"size:512"`

	RequestType          RequestType `json:"request_type" gorm:"size:20;not null;default:NORMAL"`
	IncidentDescription  *string     `json:"incident_description" gorm:"type:text"`
	IncidentDate         *time.Time  `json:"incident_date"`
	CompensationAccepted bool        `json:"compensation_accepted" gorm:"default:false"`

	Status RequestStatus `json:"status" gorm:"size:32;not null;index"`

	DeptDecisionNote *string    `json:"dept_decision_note" gorm:"type:text"`
	DeptApprovedAt   *time.Time `json:"dept_approved_at"`
	DeptApprovedBy   *string    `json:"dept_approved_by" gorm:"size:36"`

	HseDecisionNote *string    `json:"hse_decision_note" gorm:"type:text"`
	HseApprovedAt   *time.Time `json:"hse_approved_at"`
	HseApprovedBy   *string    `json:"hse_approved_by" gorm:"size:36"`

	PlantManagerDecisionNote *string    `json:"plant_manager_decision_note" gorm:"type:text"`
	PlantManagerApprovedAt   *time.Time `json:"plant_manager_approved_at"`
	PlantManagerApprovedBy   *string    `json:"plant_manager_approved_by" gorm:"size:36"`

	HrDecisionNote *string    `json:"hr_decision_note" gorm:"type:text"`
	HrApprovedAt   *time.Time `json:"hr_approved_at"`
	HrApprovedBy   *string    `json:"hr_approved_by" gorm:"size:36"`

	PickedUpAt *time.Time `json:"picked_up_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Department   *Department `json:"department,omitempty" gorm:"foreignKey:DepartmentID"`
	Item         *PpeMaster  `json:"ppe_master,omitempty" gorm:"foreignKey:PpeID"`
	DeptApprover *AppUser    `json:"dept_approver,omitempty" gorm:"foreignKey:DeptApprovedBy"`
	HseApprover  *AppUser    `json:"hse_approver,omitempty" gorm:"foreignKey:HseApprovedBy"`
}

func (PpeRequest) TableName() string {
	return "ppe_requests"
}
