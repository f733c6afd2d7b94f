package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/plantsafe/ppeflow/internal/ppe/entity"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Get(ctx context.Context, id string) (*entity.AppUser, error) {
	var u entity.AppUser
	err := r.db.WithContext(ctx).Preload("Department").Where("id = ?", id).First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.AppUser, error) {
	var u entity.AppUser
	err := r.db.WithContext(ctx).Preload("Department").Where("email = ?", email).First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) GetDepartment(ctx context.Context, id string) (*entity.Department, error) {
	var d entity.Department
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&d).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *UserRepository) ListDepartments(ctx context.Context) ([]entity.Department, error) {
	var items []entity.Department
	err := r.db.WithContext(ctx).Order("name ASC").Find(&items).Error
	return items, err
}
