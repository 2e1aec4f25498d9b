package repository

import (
	"github.com/inkline/inkline-backend/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReviewRepository reviewer decisions for the current review cycle
type ReviewRepository interface {
	Upsert(review *domain.Review) error
	CountApprovals(branchID uint64) (int64, error)
	FindByBranch(branchID uint64) ([]*domain.Review, error)
	DeleteByBranch(branchID uint64) error
}

type reviewRepository struct {
	db *gorm.DB
}

// NewReviewRepository creates a new ReviewRepository
func NewReviewRepository(db *gorm.DB) ReviewRepository {
	return &reviewRepository{db: db}
}

// Upsert writes the reviewer's decision, replacing any earlier decision from
// the same reviewer in this cycle.
func (r *reviewRepository) Upsert(review *domain.Review) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "branch_id"}, {Name: "reviewer_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"decision", "comment", "updated_at"}),
	}).Create(review).Error
}

func (r *reviewRepository) CountApprovals(branchID uint64) (int64, error) {
	var count int64
	err := r.db.Model(&domain.Review{}).
		Where("branch_id = ? AND decision = ?", branchID, domain.DecisionApproved).
		Count(&count).Error
	return count, err
}

func (r *reviewRepository) FindByBranch(branchID uint64) ([]*domain.Review, error) {
	var reviews []*domain.Review
	err := r.db.Where("branch_id = ?", branchID).Order("updated_at DESC").Find(&reviews).Error
	return reviews, err
}

func (r *reviewRepository) DeleteByBranch(branchID uint64) error {
	return r.db.Where("branch_id = ?", branchID).Delete(&domain.Review{}).Error
}
