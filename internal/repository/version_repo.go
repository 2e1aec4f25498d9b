package repository

import (
	"github.com/inkline/inkline-backend/internal/domain"
	"gorm.io/gorm"
)

// VersionRepository content version chain data access. Versions are
// append-only; there is deliberately no update or delete here.
type VersionRepository interface {
	Create(version *domain.ContentVersion) error
	// CreateAndRepoint inserts the version and repoints the owning content's
	// current version in one transaction. Surfaces gorm.ErrDuplicatedKey on
	// a version timestamp collision; the caller retries.
	CreateAndRepoint(version *domain.ContentVersion) error
	FindByID(id uint64) (*domain.ContentVersion, error)
	FindByContentAndID(contentID, versionID uint64) (*domain.ContentVersion, error)
	FindByContent(contentID uint64, page, perPage int) ([]*domain.ContentVersion, int64, error)
}

type versionRepository struct {
	db *gorm.DB
}

// NewVersionRepository creates a new VersionRepository
func NewVersionRepository(db *gorm.DB) VersionRepository {
	return &versionRepository{db: db}
}

func (r *versionRepository) Create(version *domain.ContentVersion) error {
	return r.db.Create(version).Error
}

func (r *versionRepository) CreateAndRepoint(version *domain.ContentVersion) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(version).Error; err != nil {
			return err
		}
		return tx.Model(&domain.Content{}).Where("id = ?", version.ContentID).
			Update("current_version_id", version.ID).Error
	})
}

func (r *versionRepository) FindByID(id uint64) (*domain.ContentVersion, error) {
	var version domain.ContentVersion
	err := r.db.First(&version, id).Error
	if err != nil {
		return nil, err
	}
	return &version, nil
}

func (r *versionRepository) FindByContentAndID(contentID, versionID uint64) (*domain.ContentVersion, error) {
	var version domain.ContentVersion
	err := r.db.Where("content_id = ? AND id = ?", contentID, versionID).First(&version).Error
	if err != nil {
		return nil, err
	}
	return &version, nil
}

func (r *versionRepository) FindByContent(contentID uint64, page, perPage int) ([]*domain.ContentVersion, int64, error) {
	query := r.db.Model(&domain.ContentVersion{}).Where("content_id = ?", contentID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var versions []*domain.ContentVersion
	err := query.Order("version_timestamp DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&versions).Error
	return versions, total, err
}
