package service

import (
	"errors"
	"fmt"

	"github.com/inkline/inkline-backend/internal/common"
	"github.com/inkline/inkline-backend/internal/domain"
	"github.com/inkline/inkline-backend/internal/repository"
	"gorm.io/gorm"
)

// ContentService manages content items inside a branch: creation, shadowing
// trunk items, and draft edits under optimistic concurrency.
type ContentService interface {
	// CreateContent adds a new-in-branch item with its initial version.
	CreateContent(branchID uint64, actorID string, req *domain.CreateContentRequest) (*domain.Content, error)
	// ShadowTrunkContent copies a trunk item into the branch, capturing
	// trunk's current version as the merge base.
	ShadowTrunkContent(branchID, trunkContentID uint64, actorID string) (*domain.Content, error)
	// UpdateDraft writes a new version if the client's expected version
	// still matches; otherwise the sync is rejected with ErrVersionConflict
	// and nothing is written.
	UpdateDraft(contentID uint64, actorID string, req *domain.UpdateContentRequest) (*domain.ContentVersion, error)
	GetContent(contentID uint64) (*domain.Content, error)
	ListByBranch(branchID uint64) ([]*domain.Content, error)
	// DeleteDraft removes a draft item and is only allowed while the branch
	// is in draft.
	DeleteDraft(contentID uint64, actorID string) error
}

type contentService struct {
	branches repository.BranchRepository
	contents repository.ContentRepository
	versions repository.VersionRepository
	creator  VersionService
}

// NewContentService creates a new ContentService
func NewContentService(
	branches repository.BranchRepository,
	contents repository.ContentRepository,
	versions repository.VersionRepository,
	creator VersionService,
) ContentService {
	return &contentService{
		branches: branches,
		contents: contents,
		versions: versions,
		creator:  creator,
	}
}

// editableBranch loads the branch and checks the actor may edit it now.
func (s *contentService) editableBranch(branchID uint64, actorID string) (*domain.Branch, error) {
	branch, err := s.branches.FindByID(branchID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrBranchNotFound
		}
		return nil, err
	}
	if branch.IsTrunk {
		return nil, fmt.Errorf("%w: trunk content changes only through merges", common.ErrInvalidState)
	}
	if branch.State != domain.BranchDraft {
		return nil, fmt.Errorf("%w: branch is in %s", common.ErrInvalidState, branch.State)
	}
	if !branch.IsCollaborator(actorID) {
		return nil, common.ErrForbidden
	}
	return branch, nil
}

func (s *contentService) CreateContent(branchID uint64, actorID string, req *domain.CreateContentRequest) (*domain.Content, error) {
	if _, err := s.editableBranch(branchID, actorID); err != nil {
		return nil, err
	}

	if existing, err := s.contents.FindByBranchAndSlug(branchID, req.Slug); err == nil && existing != nil {
		return nil, fmt.Errorf("%w: slug %q already exists in branch", common.ErrInvalidInput, req.Slug)
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	content := &domain.Content{
		BranchID: branchID,
		Slug:     req.Slug,
		Title:    req.Title,
		Category: req.Category,
		Tags:     req.Tags,
		Status:   domain.ContentDraft,
	}
	version := buildVersion(CreateVersionInput{
		Body:       req.Body,
		BodyFormat: req.BodyFormat,
		Metadata: domain.MetadataSnapshot{
			Title:    req.Title,
			Category: req.Category,
			Tags:     req.Tags,
		},
		ChangeDescription: "initial version",
		AuthorID:          actorID,
		AuthorType:        domain.AuthorUser,
	})

	// The item and its initial version land in one transaction; a failure
	// leaves no item without a version chain.
	if err := withTimestampRetry(version, func() error {
		return s.contents.CreateWithVersion(content, version)
	}); err != nil {
		return nil, err
	}
	content.CurrentVersionID = &version.ID
	return content, nil
}

func (s *contentService) ShadowTrunkContent(branchID, trunkContentID uint64, actorID string) (*domain.Content, error) {
	if _, err := s.editableBranch(branchID, actorID); err != nil {
		return nil, err
	}

	trunkItem, err := s.contents.FindByID(trunkContentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrContentNotFound
		}
		return nil, err
	}

	trunk, err := s.branches.FindTrunk()
	if err != nil {
		return nil, common.ErrTrunkNotFound
	}
	if trunkItem.BranchID != trunk.ID {
		return nil, fmt.Errorf("%w: content %d is not a trunk item", common.ErrInvalidInput, trunkContentID)
	}

	if existing, err := s.contents.FindByBranchAndSlug(branchID, trunkItem.Slug); err == nil && existing != nil {
		return nil, fmt.Errorf("%w: trunk item already shadowed in branch", common.ErrInvalidInput)
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	baseID := trunkItem.PublishedVersionID
	if baseID == nil {
		baseID = trunkItem.CurrentVersionID
	}
	if baseID == nil {
		return nil, fmt.Errorf("%w: trunk item has no version", common.ErrInvalidInput)
	}
	base, err := s.versions.FindByID(*baseID)
	if err != nil {
		return nil, err
	}

	content := &domain.Content{
		BranchID:        branchID,
		Slug:            trunkItem.Slug,
		Title:           trunkItem.Title,
		Category:        trunkItem.Category,
		Tags:            trunkItem.Tags,
		Status:          domain.ContentDraft,
		SourceContentID: &trunkItem.ID,
		BaseVersionID:   baseID,
	}
	version := buildVersion(CreateVersionInput{
		Body:              base.Body,
		BodyFormat:        base.BodyFormat,
		Metadata:          base.MetadataSnapshot,
		ChangeDescription: fmt.Sprintf("branched from trunk version %d", base.ID),
		AuthorID:          actorID,
		AuthorType:        domain.AuthorSystem,
	})

	if err := withTimestampRetry(version, func() error {
		return s.contents.CreateWithVersion(content, version)
	}); err != nil {
		return nil, err
	}
	content.CurrentVersionID = &version.ID
	return content, nil
}

func (s *contentService) UpdateDraft(contentID uint64, actorID string, req *domain.UpdateContentRequest) (*domain.ContentVersion, error) {
	content, err := s.GetContent(contentID)
	if err != nil {
		return nil, err
	}
	if _, err := s.editableBranch(content.BranchID, actorID); err != nil {
		return nil, err
	}
	if content.CurrentVersionID == nil {
		return nil, common.ErrVersionNotFound
	}

	// Optimistic concurrency: reject without writing if someone else moved
	// the chain since the client last read. The caller re-fetches and
	// re-applies; there is no automatic retry.
	if *content.CurrentVersionID != req.ExpectedVersionID {
		return nil, common.ErrVersionConflict
	}

	current, err := s.versions.FindByID(*content.CurrentVersionID)
	if err != nil {
		return nil, err
	}

	body := current.Body
	if req.Body != nil {
		body = *req.Body
	}
	metadata := current.MetadataSnapshot
	if req.Title != nil {
		metadata.Title = *req.Title
		content.Title = *req.Title
	}
	if req.Category != nil {
		metadata.Category = *req.Category
		content.Category = *req.Category
	}
	if req.Tags != nil {
		metadata.Tags = *req.Tags
		content.Tags = *req.Tags
	}

	version, err := s.creator.CreateVersion(CreateVersionInput{
		ContentID:         content.ID,
		Body:              body,
		BodyFormat:        current.BodyFormat,
		Metadata:          metadata,
		ChangeDescription: req.ChangeDescription,
		ParentVersionID:   content.CurrentVersionID,
		AuthorID:          actorID,
		AuthorType:        domain.AuthorUser,
	})
	if err != nil {
		return nil, err
	}

	if req.Title != nil || req.Category != nil || req.Tags != nil {
		if err := s.contents.Update(content); err != nil {
			return nil, err
		}
	}
	return version, nil
}

func (s *contentService) GetContent(contentID uint64) (*domain.Content, error) {
	content, err := s.contents.FindByID(contentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrContentNotFound
		}
		return nil, err
	}
	return content, nil
}

func (s *contentService) ListByBranch(branchID uint64) ([]*domain.Content, error) {
	return s.contents.FindByBranch(branchID)
}

func (s *contentService) DeleteDraft(contentID uint64, actorID string) error {
	content, err := s.GetContent(contentID)
	if err != nil {
		return err
	}
	if _, err := s.editableBranch(content.BranchID, actorID); err != nil {
		return err
	}
	return s.contents.Delete(content.ID)
}
