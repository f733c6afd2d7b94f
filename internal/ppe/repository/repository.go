package repository

import "gorm.io/gorm"

// Repositories 仓储集合
type Repositories struct {
	Request  *RequestRepository
	Master   *MasterRepository
	Movement *MovementRepository
	Budget   *BudgetRepository
	User     *UserRepository

	db *gorm.DB
}

// NewRepositories binds all repositories to one gorm handle. Pass a
// transaction handle to get repositories scoped to that transaction.
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Request:  NewRequestRepository(db),
		Master:   NewMasterRepository(db),
		Movement: NewMovementRepository(db),
		Budget:   NewBudgetRepository(db),
		User:     NewUserRepository(db),
		db:       db,
	}
}

// DB exposes the underlying handle for transaction scoping.
func (r *Repositories) DB() *gorm.DB {
	return r.db
}
