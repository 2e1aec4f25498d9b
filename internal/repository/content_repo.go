package repository

import (
	"github.com/inkline/inkline-backend/internal/domain"
	"gorm.io/gorm"
)

// ContentRepository content item data access
type ContentRepository interface {
	// CreateWithVersion creates the item and its initial version in one
	// transaction and points the item at that version. A failure rolls both
	// rows back. Timestamp collision retries are the caller's concern.
	CreateWithVersion(content *domain.Content, version *domain.ContentVersion) error
	FindByID(id uint64) (*domain.Content, error)
	FindByBranch(branchID uint64) ([]*domain.Content, error)
	FindByBranchAndSlug(branchID uint64, slug string) (*domain.Content, error)
	CountByBranch(branchID uint64) (int64, error)
	Update(content *domain.Content) error
	UpdateCurrentVersion(id, versionID uint64) error
	UpdateBaseVersion(id, versionID uint64) error
	Delete(id uint64) error
}

type contentRepository struct {
	db *gorm.DB
}

// NewContentRepository creates a new ContentRepository
func NewContentRepository(db *gorm.DB) ContentRepository {
	return &contentRepository{db: db}
}

func (r *contentRepository) CreateWithVersion(content *domain.Content, version *domain.ContentVersion) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(content).Error; err != nil {
			return err
		}
		version.ContentID = content.ID
		if err := tx.Create(version).Error; err != nil {
			return err
		}
		return tx.Model(&domain.Content{}).Where("id = ?", content.ID).
			Update("current_version_id", version.ID).Error
	})
}

func (r *contentRepository) FindByID(id uint64) (*domain.Content, error) {
	var content domain.Content
	err := r.db.First(&content, id).Error
	if err != nil {
		return nil, err
	}
	return &content, nil
}

func (r *contentRepository) FindByBranch(branchID uint64) ([]*domain.Content, error) {
	var contents []*domain.Content
	err := r.db.Where("branch_id = ?", branchID).Order("id ASC").Find(&contents).Error
	return contents, err
}

func (r *contentRepository) FindByBranchAndSlug(branchID uint64, slug string) (*domain.Content, error) {
	var content domain.Content
	err := r.db.Where("branch_id = ? AND slug = ?", branchID, slug).First(&content).Error
	if err != nil {
		return nil, err
	}
	return &content, nil
}

func (r *contentRepository) CountByBranch(branchID uint64) (int64, error) {
	var count int64
	err := r.db.Model(&domain.Content{}).Where("branch_id = ?", branchID).Count(&count).Error
	return count, err
}

func (r *contentRepository) Update(content *domain.Content) error {
	return r.db.Save(content).Error
}

func (r *contentRepository) UpdateCurrentVersion(id, versionID uint64) error {
	return r.db.Model(&domain.Content{}).Where("id = ?", id).
		Update("current_version_id", versionID).Error
}

func (r *contentRepository) UpdateBaseVersion(id, versionID uint64) error {
	return r.db.Model(&domain.Content{}).Where("id = ?", id).
		Update("base_version_id", versionID).Error
}

func (r *contentRepository) Delete(id uint64) error {
	return r.db.Delete(&domain.Content{}, id).Error
}
