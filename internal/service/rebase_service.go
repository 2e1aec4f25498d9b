package service

import (
	"errors"
	"time"

	"github.com/inkline/inkline-backend/internal/common"
	"github.com/inkline/inkline-backend/internal/domain"
	"github.com/inkline/inkline-backend/internal/repository"
	"github.com/inkline/inkline-backend/pkg/logger"
	"gorm.io/gorm"
)

// RebaseService moves a branch's merge base forward to trunk's current
// state without publishing, so long-lived branches can absorb trunk changes
// incrementally. Per branch: idle -> in-progress -> resolved or aborted ->
// idle, with exactly one active session at a time.
type RebaseService interface {
	// PreviewRebase runs conflict detection against trunk's current state
	// without persisting anything.
	PreviewRebase(branchID uint64) (*domain.MergePreview, error)
	// Rebase starts a session: auto-applies every non-conflicting item and
	// either completes immediately or parks the remaining conflicts in the
	// session.
	Rebase(branchID uint64, actorID string) (*domain.RebaseResult, error)
	// ContinueRebase finishes an in-progress session once every conflict is
	// resolved, advancing each item's merge base to trunk's current version.
	ContinueRebase(branchID uint64, actorID string) (*domain.RebaseResult, error)
	// AbortRebase discards the session; branch content stays as it is.
	AbortRebase(branchID uint64) error
	IsRebaseInProgress(branchID uint64) bool
	GetRebaseState(branchID uint64) (*domain.RebaseState, error)
}

type rebaseService struct {
	branches    repository.BranchRepository
	contents    repository.ContentRepository
	versions    repository.VersionRepository
	convergence repository.ConvergenceRepository
	detector    ConflictService
	sessions    SessionStore
	audit       AuditSink
}

// NewRebaseService creates a new RebaseService
func NewRebaseService(
	branches repository.BranchRepository,
	contents repository.ContentRepository,
	versions repository.VersionRepository,
	convergence repository.ConvergenceRepository,
	detector ConflictService,
	sessions SessionStore,
	audit AuditSink,
) RebaseService {
	return &rebaseService{
		branches:    branches,
		contents:    contents,
		versions:    versions,
		convergence: convergence,
		detector:    detector,
		sessions:    sessions,
		audit:       audit,
	}
}

func (s *rebaseService) trunk() (*domain.Branch, error) {
	trunk, err := s.branches.FindTrunk()
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrTrunkNotFound
		}
		return nil, err
	}
	return trunk, nil
}

func (s *rebaseService) PreviewRebase(branchID uint64) (*domain.MergePreview, error) {
	trunk, err := s.trunk()
	if err != nil {
		return nil, err
	}
	return s.detector.DetectConflicts(branchID, trunk.ID)
}

func (s *rebaseService) Rebase(branchID uint64, actorID string) (*domain.RebaseResult, error) {
	if s.IsRebaseInProgress(branchID) {
		return nil, common.ErrRebaseInProgress
	}

	trunk, err := s.trunk()
	if err != nil {
		return nil, err
	}

	preview, err := s.detector.DetectConflicts(branchID, trunk.ID)
	if err != nil {
		return nil, err
	}

	applied, err := s.applyAutoItems(branchID, actorID, preview.AutoMergeable)
	if err != nil {
		return nil, err
	}

	s.audit.Record(AuditEvent{
		Type:     AuditRebaseStarted,
		BranchID: branchID,
		ActorID:  actorID,
		Metadata: map[string]interface{}{"conflicts": len(preview.Conflicts), "auto_applied": applied},
	})

	if len(preview.Conflicts) == 0 {
		if err := s.advanceBases(branchID); err != nil {
			return nil, err
		}
		s.audit.Record(AuditEvent{Type: AuditRebaseCompleted, BranchID: branchID, ActorID: actorID})
		return &domain.RebaseResult{Completed: true, AppliedCount: applied}, nil
	}

	session := &domain.RebaseSession{
		BranchID:          branchID,
		TrunkBranchID:     trunk.ID,
		Conflicts:         preview.Conflicts,
		ResolvedConflicts: []uint64{},
		StartedBy:         actorID,
		StartedAt:         time.Now().UTC(),
	}
	if err := s.sessions.Put(session); err != nil {
		return nil, err
	}

	return &domain.RebaseResult{
		Completed:     false,
		AppliedCount:  applied,
		ConflictCount: len(preview.Conflicts),
		Conflicts:     preview.Conflicts,
	}, nil
}

// applyAutoItems folds trunk changes into every cleanly mergeable branch
// item by writing a new branch version. Degraded items carry no merged body
// and are left alone; items whose merged body equals the branch's current
// body need no new version. An empty merged body is written like any other.
func (s *rebaseService) applyAutoItems(branchID uint64, actorID string, items []domain.AutoMergeItem) (int, error) {
	applied := 0
	for _, auto := range items {
		if auto.MergedBody == nil {
			continue
		}
		body := *auto.MergedBody
		item, err := s.contents.FindByID(auto.ContentID)
		if err != nil {
			return applied, err
		}
		if item.CurrentVersionID == nil {
			continue
		}
		current, err := s.versions.FindByID(*item.CurrentVersionID)
		if err != nil {
			return applied, err
		}
		if current.Checksum == Checksum(body) {
			continue
		}

		version := &domain.ContentVersion{
			ParentVersionID:   item.CurrentVersionID,
			Body:              body,
			BodyFormat:        current.BodyFormat,
			MetadataSnapshot:  current.MetadataSnapshot,
			ChangeDescription: "rebase: absorb trunk changes",
			AuthorID:          actorID,
			AuthorType:        domain.AuthorSystem,
			ByteSize:          len(body),
			Checksum:          Checksum(body),
			VersionTimestamp:  time.Now().UTC().Truncate(time.Microsecond),
		}
		if err := withTimestampRetry(version, func() error {
			return s.convergence.ApplyRebaseVersion(item, version)
		}); err != nil {
			return applied, err
		}
		applied++
	}
	return applied, nil
}

// advanceBases moves every shadowed item's merge base to the trunk
// counterpart's current version, in one transaction.
func (s *rebaseService) advanceBases(branchID uint64) error {
	items, err := s.contents.FindByBranch(branchID)
	if err != nil {
		return err
	}

	var updates []repository.BasePointerUpdate
	for _, item := range items {
		if item.SourceContentID == nil {
			continue
		}
		trunkItem, err := s.contents.FindByID(*item.SourceContentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return err
		}
		if trunkItem.CurrentVersionID == nil {
			continue
		}
		updates = append(updates, repository.BasePointerUpdate{
			ContentID:     item.ID,
			BaseVersionID: *trunkItem.CurrentVersionID,
		})
	}
	if len(updates) == 0 {
		return nil
	}
	return s.convergence.AdvanceBasePointers(updates)
}

func (s *rebaseService) ContinueRebase(branchID uint64, actorID string) (*domain.RebaseResult, error) {
	session, err := s.sessions.Get(branchID)
	if err != nil {
		return nil, err
	}
	if !session.AllResolved() {
		return nil, common.ErrUnresolvedConflicts
	}

	if err := s.advanceBases(branchID); err != nil {
		return nil, err
	}
	if err := s.sessions.Delete(branchID); err != nil {
		logger.GetLogger().Warn().Err(err).Uint64("branch_id", branchID).Msg("failed to clear rebase session")
	}

	s.audit.Record(AuditEvent{Type: AuditRebaseCompleted, BranchID: branchID, ActorID: actorID})
	return &domain.RebaseResult{Completed: true}, nil
}

func (s *rebaseService) AbortRebase(branchID uint64) error {
	if _, err := s.sessions.Get(branchID); err != nil {
		return err
	}
	if err := s.sessions.Delete(branchID); err != nil {
		return err
	}
	s.audit.Record(AuditEvent{Type: AuditRebaseAborted, BranchID: branchID})
	return nil
}

func (s *rebaseService) IsRebaseInProgress(branchID uint64) bool {
	_, err := s.sessions.Get(branchID)
	return err == nil
}

func (s *rebaseService) GetRebaseState(branchID uint64) (*domain.RebaseState, error) {
	session, err := s.sessions.Get(branchID)
	if err != nil {
		if errors.Is(err, common.ErrNoRebaseSession) {
			return &domain.RebaseState{InProgress: false}, nil
		}
		return nil, err
	}

	resolved := 0
	for _, c := range session.Conflicts {
		if session.IsResolved(c.ContentID) {
			resolved++
		}
	}
	return &domain.RebaseState{
		InProgress:    true,
		Conflicts:     session.Conflicts,
		ResolvedCount: resolved,
		TotalCount:    len(session.Conflicts),
		StartedAt:     &session.StartedAt,
	}, nil
}
