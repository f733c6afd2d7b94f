package entity

import "time"

// Role 角色 — one actor resolves to exactly one role.
type Role string

const (
	RoleAdmin        Role = "ADMIN"
	RoleHSE          Role = "HSE"
	RoleDeptHead     Role = "DEPT_HEAD"
	RolePlantManager Role = "PLANT_MANAGER"
	RoleHR           Role = "HR"
)

// Valid reports whether r is one of the defined roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleHSE, RoleDeptHead, RolePlantManager, RoleHR:
		return true
	}
	return false
}

// AppUser 系统用户
type AppUser struct {
	ID           string    `json:"id" gorm:"primaryKey;size:36"`
	Name         string    `json:"name" gorm:"size:128;not null"`
	Email        string    `json:"email" gorm:"size:128;uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"size:128"`
	Role         Role      `json:"role" gorm:"size:20;not null"`
	DepartmentID *string   `json:"department_id" gorm:"size:36;index"`
	Active       bool      `json:"active" gorm:"default:true"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	Department *Department `json:"department,omitempty" gorm:"foreignKey:DepartmentID"`
}

func (AppUser) TableName() string {
	return "app_users"
}

// Department 部门
type Department struct {
	ID            string    `json:"id" gorm:"primaryKey;size:36"`
	Name          string    `json:"name" gorm:"size:128;not null"`
	DeptHeadEmail string    `json:"dept_head_email" gorm:"size:128"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (Department) TableName() string {
	return "departments"
}
