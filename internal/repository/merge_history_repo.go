package repository

import (
	"github.com/inkline/inkline-backend/internal/domain"
	"gorm.io/gorm"
)

// MergeHistoryRepository append-only convergence ledger. Rows are never
// updated or deleted.
type MergeHistoryRepository interface {
	Create(entry *domain.MergeHistory) error
	FindByContent(contentID uint64, limit int) ([]*domain.MergeHistory, error)
	FindBySourceBranch(branchID uint64) ([]*domain.MergeHistory, error)
}

type mergeHistoryRepository struct {
	db *gorm.DB
}

// NewMergeHistoryRepository creates a new MergeHistoryRepository
func NewMergeHistoryRepository(db *gorm.DB) MergeHistoryRepository {
	return &mergeHistoryRepository{db: db}
}

func (r *mergeHistoryRepository) Create(entry *domain.MergeHistory) error {
	return r.db.Create(entry).Error
}

func (r *mergeHistoryRepository) FindByContent(contentID uint64, limit int) ([]*domain.MergeHistory, error) {
	if limit <= 0 {
		limit = 50
	}
	var entries []*domain.MergeHistory
	err := r.db.Where("content_id = ?", contentID).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

func (r *mergeHistoryRepository) FindBySourceBranch(branchID uint64) ([]*domain.MergeHistory, error) {
	var entries []*domain.MergeHistory
	err := r.db.Where("source_branch_id = ?", branchID).
		Order("created_at ASC").
		Find(&entries).Error
	return entries, err
}
