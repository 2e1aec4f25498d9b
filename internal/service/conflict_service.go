package service

import (
	"errors"
	"fmt"

	"github.com/inkline/inkline-backend/internal/common"
	"github.com/inkline/inkline-backend/internal/domain"
	"github.com/inkline/inkline-backend/internal/repository"
	"github.com/inkline/inkline-backend/pkg/logger"
	"github.com/inkline/inkline-backend/pkg/textdiff"
	"gorm.io/gorm"
)

// ConflictService scans a branch against trunk and serves manual resolutions.
type ConflictService interface {
	// DetectConflicts classifies every item in the branch as new-in-branch,
	// auto-mergeable or conflicting against the trunk branch's published
	// state. CanMerge is the precondition for PUBLISH.
	DetectConflicts(branchID, trunkBranchID uint64) (*domain.MergePreview, error)
	// ResolveConflict records a resolution for one conflicting item by
	// writing a new version on the branch side.
	ResolveConflict(branchID uint64, req *domain.ResolveConflictRequest, actorID string) error
}

type conflictService struct {
	contents repository.ContentRepository
	versions repository.VersionRepository
	creator  VersionService
	sessions SessionStore
	audit    AuditSink
}

// NewConflictService creates a new ConflictService
func NewConflictService(
	contents repository.ContentRepository,
	versions repository.VersionRepository,
	creator VersionService,
	sessions SessionStore,
	audit AuditSink,
) ConflictService {
	return &conflictService{
		contents: contents,
		versions: versions,
		creator:  creator,
		sessions: sessions,
		audit:    audit,
	}
}

// itemVersions is the three-way version triple for one shadowed item.
type itemVersions struct {
	base   *domain.ContentVersion
	ours   *domain.ContentVersion // trunk side
	theirs *domain.ContentVersion // branch side
}

// loadTriple fetches base/ours/theirs for a shadowed branch item. A nil
// return (with nil error) means the triple is incomplete - the degraded
// case, which favors the branch.
func (s *conflictService) loadTriple(item *domain.Content) (*itemVersions, error) {
	if item.SourceContentID == nil || item.BaseVersionID == nil || item.CurrentVersionID == nil {
		return nil, nil
	}

	trunkItem, err := s.contents.FindByID(*item.SourceContentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	oursID := trunkItem.PublishedVersionID
	if oursID == nil {
		oursID = trunkItem.CurrentVersionID
	}
	if oursID == nil {
		return nil, nil
	}

	triple := &itemVersions{}
	for _, load := range []struct {
		id   uint64
		dest **domain.ContentVersion
	}{
		{*item.BaseVersionID, &triple.base},
		{*oursID, &triple.ours},
		{*item.CurrentVersionID, &triple.theirs},
	} {
		v, err := s.versions.FindByID(load.id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil
			}
			return nil, err
		}
		*load.dest = v
	}
	return triple, nil
}

// metadataConflicts reports whether both sides changed the metadata away
// from the base in different directions.
func metadataConflicts(base, ours, theirs domain.MetadataSnapshot) bool {
	return !base.Equal(ours) && !base.Equal(theirs) && !ours.Equal(theirs)
}

func (s *conflictService) DetectConflicts(branchID, trunkBranchID uint64) (*domain.MergePreview, error) {
	items, err := s.contents.FindByBranch(branchID)
	if err != nil {
		return nil, err
	}

	preview := &domain.MergePreview{
		Conflicts:     []domain.Conflict{},
		AutoMergeable: []domain.AutoMergeItem{},
		NewInBranch:   []domain.NewItem{},
	}

	for _, item := range items {
		if item.IsNewInBranch() {
			preview.NewInBranch = append(preview.NewInBranch, domain.NewItem{
				ContentID: item.ID,
				Slug:      item.Slug,
				Title:     item.Title,
			})
			continue
		}

		triple, err := s.loadTriple(item)
		if err != nil {
			return nil, err
		}
		if triple == nil {
			// Degraded case: base or trunk side missing. Favor the branch.
			preview.AutoMergeable = append(preview.AutoMergeable, domain.AutoMergeItem{
				ContentID: item.ID,
				Slug:      item.Slug,
				Reason:    domain.AutoMergeModified,
			})
			continue
		}

		s.classify(preview, item, triple)
	}

	preview.CanMerge = len(preview.Conflicts) == 0
	return preview, nil
}

// classify applies the checksum fast paths, then the merge engine, and files
// the item into exactly one preview bucket.
func (s *conflictService) classify(preview *domain.MergePreview, item *domain.Content, v *itemVersions) {
	contentConflict := false
	var mergedBody *string

	switch {
	case v.theirs.Checksum == v.base.Checksum:
		// Branch never diverged; trunk's side stands.
		mergedBody = &v.ours.Body
	case v.ours.Checksum == v.base.Checksum, v.ours.Checksum == v.theirs.Checksum:
		// Trunk unchanged, or both sides converged on the same bytes.
		mergedBody = &v.theirs.Body
	default:
		res := textdiff.Merge3(v.base.Body, v.ours.Body, v.theirs.Body)
		if res.HasConflict {
			contentConflict = true
		} else {
			mergedBody = &res.Result
		}
	}

	metaConflict := metadataConflicts(v.base.MetadataSnapshot, v.ours.MetadataSnapshot, v.theirs.MetadataSnapshot)

	if !contentConflict && !metaConflict {
		reason := domain.AutoMergeModified
		if v.theirs.Checksum == v.base.Checksum {
			reason = domain.AutoMergeUnchanged
		}
		preview.AutoMergeable = append(preview.AutoMergeable, domain.AutoMergeItem{
			ContentID:  item.ID,
			Slug:       item.Slug,
			Reason:     reason,
			MergedBody: mergedBody,
		})
		return
	}

	conflictType := domain.ConflictContent
	if metaConflict && contentConflict {
		conflictType = domain.ConflictBoth
	} else if metaConflict {
		conflictType = domain.ConflictMetadata
	}

	conflict := domain.Conflict{
		ContentID:       item.ID,
		Slug:            item.Slug,
		Title:           item.Title,
		ConflictType:    conflictType,
		BaseVersionID:   v.base.ID,
		OursVersionID:   v.ours.ID,
		TheirsVersionID: v.theirs.ID,
		OursBody:        v.ours.Body,
		TheirsBody:      v.theirs.Body,
		OursMetadata:    v.ours.MetadataSnapshot,
		TheirsMetadata:  v.theirs.MetadataSnapshot,
	}
	if contentConflict {
		res := textdiff.Merge3(v.base.Body, v.ours.Body, v.theirs.Body)
		conflict.ConflictMarkers = res.ConflictMarkers
	}
	preview.Conflicts = append(preview.Conflicts, conflict)
}

func (s *conflictService) ResolveConflict(branchID uint64, req *domain.ResolveConflictRequest, actorID string) error {
	if req.Resolution == domain.ResolveManual && req.MergedBody == nil {
		return fmt.Errorf("%w: manual resolution requires a merged body", common.ErrInvalidInput)
	}

	item, err := s.contents.FindByID(req.ContentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return common.ErrContentNotFound
		}
		return err
	}
	if item.BranchID != branchID {
		return common.ErrContentNotFound
	}

	triple, err := s.loadTriple(item)
	if err != nil {
		return err
	}
	if triple == nil {
		return common.ErrNoConflict
	}

	var body string
	var metadata domain.MetadataSnapshot
	switch req.Resolution {
	case domain.ResolveOurs:
		body = triple.ours.Body
		metadata = triple.ours.MetadataSnapshot
	case domain.ResolveTheirs:
		body = triple.theirs.Body
		metadata = triple.theirs.MetadataSnapshot
	case domain.ResolveManual:
		body = *req.MergedBody
		metadata = triple.theirs.MetadataSnapshot
		if req.MergedMetadata != nil {
			metadata = *req.MergedMetadata
		}
	default:
		return fmt.Errorf("%w: unknown resolution %q", common.ErrInvalidInput, req.Resolution)
	}

	if _, err := s.creator.CreateVersion(CreateVersionInput{
		ContentID:         item.ID,
		Body:              body,
		BodyFormat:        triple.theirs.BodyFormat,
		Metadata:          metadata,
		ChangeDescription: fmt.Sprintf("resolve merge conflict (%s)", req.Resolution),
		ParentVersionID:   item.CurrentVersionID,
		AuthorID:          actorID,
		AuthorType:        domain.AuthorUser,
	}); err != nil {
		return err
	}

	// Advance the merge base to trunk's current version so the item
	// classifies clean on the next detection pass: the divergence from this
	// trunk version is now an explicit decision, not a conflict.
	if err := s.contents.UpdateBaseVersion(item.ID, triple.ours.ID); err != nil {
		return err
	}

	s.markSessionResolved(branchID, item.ID)

	s.audit.Record(AuditEvent{
		Type:      AuditConflictResolved,
		BranchID:  branchID,
		ContentID: item.ID,
		ActorID:   actorID,
		Metadata:  map[string]interface{}{"resolution": string(req.Resolution)},
	})
	return nil
}

// markSessionResolved clears the conflict inside an active rebase session,
// if any. Best effort: a missing session just means no rebase is running.
func (s *conflictService) markSessionResolved(branchID, contentID uint64) {
	session, err := s.sessions.Get(branchID)
	if err != nil {
		return
	}
	if session.IsResolved(contentID) {
		return
	}
	session.ResolvedConflicts = append(session.ResolvedConflicts, contentID)
	if err := s.sessions.Update(session); err != nil {
		logger.GetLogger().Warn().Err(err).
			Uint64("branch_id", branchID).
			Uint64("content_id", contentID).
			Msg("failed to mark rebase conflict resolved")
	}
}
