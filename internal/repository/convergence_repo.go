package repository

import (
	"github.com/inkline/inkline-backend/internal/domain"
	"gorm.io/gorm"
)

// BasePointerUpdate moves one content item's merge base forward.
type BasePointerUpdate struct {
	ContentID     uint64
	BaseVersionID uint64
}

// ConvergenceRepository groups the multi-row writes performed while merging
// a branch into trunk or rebasing it. Every method is one database
// transaction; a failure rolls the whole item back. Collision retries on the
// version timestamp are the caller's concern - each method attempts the
// insert once and surfaces gorm.ErrDuplicatedKey untouched.
type ConvergenceRepository interface {
	// MergeShadow writes a new trunk version for an existing trunk item,
	// repoints the trunk item, marks the branch item published and appends
	// the ledger row.
	MergeShadow(trunkContent, branchContent *domain.Content, version *domain.ContentVersion, history *domain.MergeHistory) error
	// AdoptExisting is MergeShadow plus linking the branch item to a trunk
	// item it did not previously shadow (orphaned-slug recovery).
	AdoptExisting(trunkContent, branchContent *domain.Content, version *domain.ContentVersion, history *domain.MergeHistory) error
	// CreateTrunkContent creates a brand-new trunk item with its initial
	// version and links the branch item to it.
	CreateTrunkContent(trunkContent, branchContent *domain.Content, version *domain.ContentVersion, history *domain.MergeHistory) error
	// ApplyRebaseVersion writes a new branch version (trunk changes folded
	// in) and repoints the branch item's current version.
	ApplyRebaseVersion(branchContent *domain.Content, version *domain.ContentVersion) error
	// AdvanceBasePointers moves the merge base of the given items forward in
	// one transaction, completing a rebase.
	AdvanceBasePointers(updates []BasePointerUpdate) error
}

type convergenceRepository struct {
	db *gorm.DB
}

// NewConvergenceRepository creates a new ConvergenceRepository
func NewConvergenceRepository(db *gorm.DB) ConvergenceRepository {
	return &convergenceRepository{db: db}
}

func (r *convergenceRepository) MergeShadow(trunkContent, branchContent *domain.Content, version *domain.ContentVersion, history *domain.MergeHistory) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		version.ContentID = trunkContent.ID
		if err := tx.Create(version).Error; err != nil {
			return err
		}
		if err := tx.Model(&domain.Content{}).Where("id = ?", trunkContent.ID).Updates(map[string]interface{}{
			"current_version_id":   version.ID,
			"published_version_id": version.ID,
			"title":                version.MetadataSnapshot.Title,
			"category":             version.MetadataSnapshot.Category,
			"tags":                 domain.StringList(version.MetadataSnapshot.Tags),
		}).Error; err != nil {
			return err
		}
		if err := tx.Model(&domain.Content{}).Where("id = ?", branchContent.ID).Updates(map[string]interface{}{
			"status":               domain.ContentPublished,
			"published_version_id": version.ID,
		}).Error; err != nil {
			return err
		}
		history.ContentID = trunkContent.ID
		history.ResultVersionID = &version.ID
		return tx.Create(history).Error
	})
}

func (r *convergenceRepository) AdoptExisting(trunkContent, branchContent *domain.Content, version *domain.ContentVersion, history *domain.MergeHistory) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		version.ContentID = trunkContent.ID
		if err := tx.Create(version).Error; err != nil {
			return err
		}
		if err := tx.Model(&domain.Content{}).Where("id = ?", trunkContent.ID).Updates(map[string]interface{}{
			"current_version_id":   version.ID,
			"published_version_id": version.ID,
			"title":                version.MetadataSnapshot.Title,
			"category":             version.MetadataSnapshot.Category,
			"tags":                 domain.StringList(version.MetadataSnapshot.Tags),
		}).Error; err != nil {
			return err
		}
		if err := tx.Model(&domain.Content{}).Where("id = ?", branchContent.ID).Updates(map[string]interface{}{
			"status":               domain.ContentPublished,
			"published_version_id": version.ID,
			"source_content_id":    trunkContent.ID,
			"base_version_id":      version.ID,
		}).Error; err != nil {
			return err
		}
		history.ContentID = trunkContent.ID
		history.ResultVersionID = &version.ID
		return tx.Create(history).Error
	})
}

func (r *convergenceRepository) CreateTrunkContent(trunkContent, branchContent *domain.Content, version *domain.ContentVersion, history *domain.MergeHistory) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(trunkContent).Error; err != nil {
			return err
		}
		version.ContentID = trunkContent.ID
		if err := tx.Create(version).Error; err != nil {
			return err
		}
		if err := tx.Model(&domain.Content{}).Where("id = ?", trunkContent.ID).Updates(map[string]interface{}{
			"current_version_id":   version.ID,
			"published_version_id": version.ID,
		}).Error; err != nil {
			return err
		}
		if err := tx.Model(&domain.Content{}).Where("id = ?", branchContent.ID).Updates(map[string]interface{}{
			"status":               domain.ContentPublished,
			"published_version_id": version.ID,
			"source_content_id":    trunkContent.ID,
			"base_version_id":      version.ID,
		}).Error; err != nil {
			return err
		}
		history.ContentID = trunkContent.ID
		history.ResultVersionID = &version.ID
		return tx.Create(history).Error
	})
}

func (r *convergenceRepository) ApplyRebaseVersion(branchContent *domain.Content, version *domain.ContentVersion) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		version.ContentID = branchContent.ID
		if err := tx.Create(version).Error; err != nil {
			return err
		}
		return tx.Model(&domain.Content{}).Where("id = ?", branchContent.ID).
			Update("current_version_id", version.ID).Error
	})
}

func (r *convergenceRepository) AdvanceBasePointers(updates []BasePointerUpdate) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		for _, u := range updates {
			if err := tx.Model(&domain.Content{}).Where("id = ?", u.ContentID).
				Update("base_version_id", u.BaseVersionID).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
