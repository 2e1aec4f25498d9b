package repository

import (
	"github.com/inkline/inkline-backend/internal/domain"
	"gorm.io/gorm"
)

// TransitionRepository append-only branch transition history
type TransitionRepository interface {
	Create(transition *domain.BranchTransition) error
	FindByBranch(branchID uint64, limit int) ([]*domain.BranchTransition, error)
}

type transitionRepository struct {
	db *gorm.DB
}

// NewTransitionRepository creates a new TransitionRepository
func NewTransitionRepository(db *gorm.DB) TransitionRepository {
	return &transitionRepository{db: db}
}

func (r *transitionRepository) Create(transition *domain.BranchTransition) error {
	return r.db.Create(transition).Error
}

func (r *transitionRepository) FindByBranch(branchID uint64, limit int) ([]*domain.BranchTransition, error) {
	if limit <= 0 {
		limit = 50
	}
	var transitions []*domain.BranchTransition
	err := r.db.Where("branch_id = ?", branchID).
		Order("created_at DESC").
		Limit(limit).
		Find(&transitions).Error
	return transitions, err
}
