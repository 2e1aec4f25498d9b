package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/inkline/inkline-backend/internal/domain"
	"github.com/inkline/inkline-backend/internal/repository"
	"github.com/inkline/inkline-backend/pkg/logger"
	"gorm.io/gorm"
)

// MergeService converges a branch's content into the trunk branch. Invoked
// by the lifecycle state machine on PUBLISH.
type MergeService interface {
	// MergeContentIntoMain re-runs conflict detection and, if clean, merges
	// every branch item into trunk. Any remaining conflict aborts the whole
	// operation with no writes. A failure on one item is logged and skipped
	// so the rest of the branch still converges.
	MergeContentIntoMain(branchID, trunkBranchID uint64, actorID string) (*domain.MergeResult, error)
}

type mergeService struct {
	branches    repository.BranchRepository
	contents    repository.ContentRepository
	versions    repository.VersionRepository
	convergence repository.ConvergenceRepository
	history     repository.MergeHistoryRepository
	detector    ConflictService
	audit       AuditSink
}

// NewMergeService creates a new MergeService
func NewMergeService(
	branches repository.BranchRepository,
	contents repository.ContentRepository,
	versions repository.VersionRepository,
	convergence repository.ConvergenceRepository,
	history repository.MergeHistoryRepository,
	detector ConflictService,
	audit AuditSink,
) MergeService {
	return &mergeService{
		branches:    branches,
		contents:    contents,
		versions:    versions,
		convergence: convergence,
		history:     history,
		detector:    detector,
		audit:       audit,
	}
}

// mergeMetadata folds one side's metadata changes over the base. Field-wise:
// the branch's change wins where it diverged from the base, trunk's value
// stands elsewhere. Conflicting metadata never reaches this point.
func mergeMetadata(base, ours, theirs domain.MetadataSnapshot) domain.MetadataSnapshot {
	merged := ours
	if theirs.Title != base.Title {
		merged.Title = theirs.Title
	}
	if theirs.Category != base.Category {
		merged.Category = theirs.Category
	}
	if !stringSlicesEqual(theirs.Tags, base.Tags) {
		merged.Tags = theirs.Tags
	}
	return merged
}

func stringSlicesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (s *mergeService) MergeContentIntoMain(branchID, trunkBranchID uint64, actorID string) (*domain.MergeResult, error) {
	preview, err := s.detector.DetectConflicts(branchID, trunkBranchID)
	if err != nil {
		return nil, err
	}
	if !preview.CanMerge {
		return &domain.MergeResult{
			Success:       false,
			ConflictCount: len(preview.Conflicts),
			Conflicts:     preview.Conflicts,
		}, nil
	}

	log := logger.WithBranchID(branchID)
	result := &domain.MergeResult{Success: true}

	for _, auto := range preview.AutoMergeable {
		info, err := s.mergeShadowItem(branchID, trunkBranchID, actorID, auto)
		if err != nil {
			log.Error().Err(err).Uint64("content_id", auto.ContentID).Msg("skipping content item: merge failed")
			continue
		}
		result.MergedContent = append(result.MergedContent, *info)
		result.MergedCount++
	}

	for _, item := range preview.NewInBranch {
		info, err := s.mergeNewItem(branchID, trunkBranchID, actorID, item.ContentID)
		if err != nil {
			log.Error().Err(err).Uint64("content_id", item.ContentID).Msg("skipping content item: merge failed")
			continue
		}
		result.MergedContent = append(result.MergedContent, *info)
		result.MergedCount++
	}

	s.audit.Record(AuditEvent{
		Type:     AuditContentMerged,
		BranchID: branchID,
		ActorID:  actorID,
		Metadata: map[string]interface{}{"merged_count": result.MergedCount, "trunk_branch_id": trunkBranchID},
	})
	return result, nil
}

// mergeShadowItem converges one branch item that shadows a trunk item.
func (s *mergeService) mergeShadowItem(branchID, trunkBranchID uint64, actorID string, auto domain.AutoMergeItem) (*domain.MergedContentInfo, error) {
	item, err := s.contents.FindByID(auto.ContentID)
	if err != nil {
		return nil, err
	}

	var trunkItem *domain.Content
	if item.SourceContentID != nil {
		trunkItem, err = s.contents.FindByID(*item.SourceContentID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	if trunkItem == nil {
		// Degraded shadow: the trunk counterpart vanished. Fall back to the
		// new-item path so the branch content still lands in trunk.
		return s.mergeNewItem(branchID, trunkBranchID, actorID, auto.ContentID)
	}

	if item.CurrentVersionID == nil {
		return nil, fmt.Errorf("content %d has no version to merge", item.ID)
	}
	theirs, err := s.versions.FindByID(*item.CurrentVersionID)
	if err != nil {
		return nil, err
	}

	// A nil merged body means detection degraded; the branch side stands.
	// An empty merged body is a real result and is written as-is.
	body := theirs.Body
	if auto.MergedBody != nil {
		body = *auto.MergedBody
	}

	metadata := theirs.MetadataSnapshot
	if item.BaseVersionID != nil && trunkItem.CurrentVersionID != nil {
		if base, err := s.versions.FindByID(*item.BaseVersionID); err == nil {
			if ours, err := s.versions.FindByID(*trunkItem.CurrentVersionID); err == nil {
				metadata = mergeMetadata(base.MetadataSnapshot, ours.MetadataSnapshot, theirs.MetadataSnapshot)
			}
		}
	}

	version := &domain.ContentVersion{
		ParentVersionID:   trunkItem.CurrentVersionID,
		Body:              body,
		BodyFormat:        theirs.BodyFormat,
		MetadataSnapshot:  metadata,
		ChangeDescription: fmt.Sprintf("merge from branch %d", branchID),
		AuthorID:          actorID,
		AuthorType:        domain.AuthorSystem,
		ByteSize:          len(body),
		Checksum:          Checksum(body),
		VersionTimestamp:  time.Now().UTC().Truncate(time.Microsecond),
	}

	history := &domain.MergeHistory{
		OperationType:      "merge",
		SourceBranchID:     branchID,
		TargetBranchID:     trunkBranchID,
		BaseVersionID:      item.BaseVersionID,
		SourceVersionID:    item.CurrentVersionID,
		HadConflict:        false,
		ConflictResolution: "auto",
		ActorID:            actorID,
		Metadata:           domain.JSONMap{"reason": string(auto.Reason)},
	}

	if err := withTimestampRetry(version, func() error {
		return s.convergence.MergeShadow(trunkItem, item, version, history)
	}); err != nil {
		return nil, err
	}

	return &domain.MergedContentInfo{
		ContentID:      item.ID,
		TrunkContentID: trunkItem.ID,
		Slug:           item.Slug,
		VersionID:      version.ID,
	}, nil
}

// mergeNewItem lands a branch-created item in trunk. If trunk already holds
// the slug (orphaned or duplicate slug recovery), the existing trunk item is
// updated in place instead of creating a duplicate.
func (s *mergeService) mergeNewItem(branchID, trunkBranchID uint64, actorID string, contentID uint64) (*domain.MergedContentInfo, error) {
	item, err := s.contents.FindByID(contentID)
	if err != nil {
		return nil, err
	}
	if item.CurrentVersionID == nil {
		return nil, fmt.Errorf("content %d has no version to merge", contentID)
	}

	theirs, err := s.versions.FindByID(*item.CurrentVersionID)
	if err != nil {
		return nil, err
	}

	version := &domain.ContentVersion{
		Body:              theirs.Body,
		BodyFormat:        theirs.BodyFormat,
		MetadataSnapshot:  theirs.MetadataSnapshot,
		ChangeDescription: fmt.Sprintf("merge from branch %d", branchID),
		AuthorID:          actorID,
		AuthorType:        domain.AuthorSystem,
		ByteSize:          len(theirs.Body),
		Checksum:          theirs.Checksum,
		VersionTimestamp:  time.Now().UTC().Truncate(time.Microsecond),
	}

	history := &domain.MergeHistory{
		OperationType:      "merge",
		SourceBranchID:     branchID,
		TargetBranchID:     trunkBranchID,
		SourceVersionID:    item.CurrentVersionID,
		HadConflict:        false,
		ConflictResolution: "auto",
		ActorID:            actorID,
	}

	existing, err := s.contents.FindByBranchAndSlug(trunkBranchID, item.Slug)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if existing != nil {
		version.ParentVersionID = existing.CurrentVersionID
		history.Metadata = domain.JSONMap{"recovered_slug": item.Slug}
		if err := withTimestampRetry(version, func() error {
			return s.convergence.AdoptExisting(existing, item, version, history)
		}); err != nil {
			return nil, err
		}
		return &domain.MergedContentInfo{
			ContentID:      item.ID,
			TrunkContentID: existing.ID,
			Slug:           item.Slug,
			VersionID:      version.ID,
		}, nil
	}

	trunkItem := &domain.Content{
		BranchID: trunkBranchID,
		Slug:     item.Slug,
		Title:    item.Title,
		Category: item.Category,
		Tags:     item.Tags,
		Status:   domain.ContentPublished,
	}
	if err := withTimestampRetry(version, func() error {
		return s.convergence.CreateTrunkContent(trunkItem, item, version, history)
	}); err != nil {
		return nil, err
	}
	return &domain.MergedContentInfo{
		ContentID:      item.ID,
		TrunkContentID: trunkItem.ID,
		Slug:           item.Slug,
		VersionID:      version.ID,
		Created:        true,
	}, nil
}
