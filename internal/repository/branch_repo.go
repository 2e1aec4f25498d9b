package repository

import (
	"time"

	"github.com/inkline/inkline-backend/internal/domain"
	"gorm.io/gorm"
)

// BranchRepository branch data access
type BranchRepository interface {
	Create(branch *domain.Branch) error
	FindByID(id uint64) (*domain.Branch, error)
	FindTrunk() (*domain.Branch, error)
	List(state domain.BranchState, ownerID string, page, perPage int) ([]*domain.Branch, int64, error)
	Update(branch *domain.Branch) error
	UpdateState(id uint64, state domain.BranchState, enteredAt time.Time) error
}

type branchRepository struct {
	db *gorm.DB
}

// NewBranchRepository creates a new BranchRepository
func NewBranchRepository(db *gorm.DB) BranchRepository {
	return &branchRepository{db: db}
}

func (r *branchRepository) Create(branch *domain.Branch) error {
	return r.db.Create(branch).Error
}

func (r *branchRepository) FindByID(id uint64) (*domain.Branch, error) {
	var branch domain.Branch
	err := r.db.First(&branch, id).Error
	if err != nil {
		return nil, err
	}
	return &branch, nil
}

func (r *branchRepository) FindTrunk() (*domain.Branch, error) {
	var branch domain.Branch
	err := r.db.Where("is_trunk = ?", true).First(&branch).Error
	if err != nil {
		return nil, err
	}
	return &branch, nil
}

func (r *branchRepository) List(state domain.BranchState, ownerID string, page, perPage int) ([]*domain.Branch, int64, error) {
	query := r.db.Model(&domain.Branch{}).Where("is_trunk = ?", false)
	if state != "" {
		query = query.Where("state = ?", state)
	}
	if ownerID != "" {
		query = query.Where("owner_id = ?", ownerID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var branches []*domain.Branch
	err := query.Order("updated_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&branches).Error
	return branches, total, err
}

func (r *branchRepository) Update(branch *domain.Branch) error {
	return r.db.Save(branch).Error
}

// UpdateState writes the new state and stamps the matching state-entry column
func (r *branchRepository) UpdateState(id uint64, state domain.BranchState, enteredAt time.Time) error {
	updates := map[string]interface{}{"state": state}
	switch state {
	case domain.BranchReview:
		updates["submitted_at"] = enteredAt
	case domain.BranchApproved:
		updates["approved_at"] = enteredAt
	case domain.BranchPublished:
		updates["published_at"] = enteredAt
	case domain.BranchArchived:
		updates["archived_at"] = enteredAt
	}
	return r.db.Model(&domain.Branch{}).Where("id = ?", id).Updates(updates).Error
}
