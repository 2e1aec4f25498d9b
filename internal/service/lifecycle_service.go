package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/inkline/inkline-backend/internal/common"
	"github.com/inkline/inkline-backend/internal/domain"
	"github.com/inkline/inkline-backend/internal/repository"
	"github.com/inkline/inkline-backend/pkg/logger"
	"gorm.io/gorm"
)

// TransitionInput carries one lifecycle event attempt.
type TransitionInput struct {
	BranchID   uint64
	Event      domain.TransitionEvent
	ActorID    string
	ActorRoles []string
	Reason     string
}

// LifecycleService is the branch lifecycle state machine:
// draft -> review -> approved -> published -> archived, with archived
// terminal. Convergence into trunk runs only on a PUBLISH transition.
type LifecycleService interface {
	// ExecuteTransition validates and applies one event. Guard failures
	// mutate nothing and come back as a structured result, not an error.
	// Every attempt is recorded to the transition history.
	ExecuteTransition(input TransitionInput) (*domain.TransitionResult, error)
	// CanTransition runs the same guards without mutating anything.
	CanTransition(input TransitionInput) (*domain.TransitionResult, error)
	GetHistory(branchID uint64, limit int) ([]*domain.BranchTransition, error)
}

// guardContext is the shared state the guard predicates close over.
type guardContext struct {
	branch *domain.Branch
	input  TransitionInput
	roles  map[string]bool
}

func (gc *guardContext) hasRole(role string) bool { return gc.roles[role] }

// guardFunc returns ok=false with the reason of the first failing check.
type guardFunc func(gc *guardContext) (bool, string)

// transitionRule is one row of the event table: allowed source states, the
// target state, and the ordered guard chain (evaluated short-circuit).
type transitionRule struct {
	from   []domain.BranchState
	to     domain.BranchState
	guards []guardFunc
}

type lifecycleService struct {
	branches    repository.BranchRepository
	contents    repository.ContentRepository
	reviews     repository.ReviewRepository
	transitions repository.TransitionRepository
	detector    ConflictService
	merger      MergeService
	audit       AuditSink
	rules       map[domain.TransitionEvent]transitionRule
}

// NewLifecycleService creates a new LifecycleService
func NewLifecycleService(
	branches repository.BranchRepository,
	contents repository.ContentRepository,
	reviews repository.ReviewRepository,
	transitions repository.TransitionRepository,
	detector ConflictService,
	merger MergeService,
	audit AuditSink,
) LifecycleService {
	s := &lifecycleService{
		branches:    branches,
		contents:    contents,
		reviews:     reviews,
		transitions: transitions,
		detector:    detector,
		merger:      merger,
		audit:       audit,
	}
	s.rules = s.buildRules()
	return s
}

func (s *lifecycleService) buildRules() map[domain.TransitionEvent]transitionRule {
	actorIsOwner := func(gc *guardContext) (bool, string) {
		if gc.branch.OwnerID != gc.input.ActorID {
			return false, "only the branch owner may perform this action"
		}
		return true, ""
	}
	actorIsOwnerOrAdmin := func(gc *guardContext) (bool, string) {
		if gc.branch.OwnerID != gc.input.ActorID && !gc.hasRole(domain.RoleAdmin) {
			return false, "only the branch owner or an admin may perform this action"
		}
		return true, ""
	}
	actorIsReviewer := func(gc *guardContext) (bool, string) {
		if !gc.branch.IsReviewer(gc.input.ActorID) && !gc.hasRole(domain.RoleAdmin) {
			return false, "actor is not a designated reviewer"
		}
		return true, ""
	}
	actorNotOwner := func(gc *guardContext) (bool, string) {
		if gc.branch.OwnerID == gc.input.ActorID {
			return false, "owner cannot review own branch"
		}
		return true, ""
	}
	hasReviewers := func(gc *guardContext) (bool, string) {
		if len(gc.branch.Reviewers) == 0 {
			return false, "branch has no reviewers assigned"
		}
		return true, ""
	}
	hasContent := func(gc *guardContext) (bool, string) {
		count, err := s.contents.CountByBranch(gc.branch.ID)
		if err != nil || count == 0 {
			return false, "branch has no content"
		}
		return true, ""
	}
	actorIsPublisher := func(gc *guardContext) (bool, string) {
		if !gc.hasRole(domain.RolePublisher) && !gc.hasRole(domain.RoleAdmin) {
			return false, "publisher role required"
		}
		return true, ""
	}
	hasApprovedReview := func(gc *guardContext) (bool, string) {
		count, err := s.reviews.CountApprovals(gc.branch.ID)
		if err != nil || count == 0 {
			return false, "branch has no approved review"
		}
		return true, ""
	}
	trunkIsMergeable := func(gc *guardContext) (bool, string) {
		trunk, err := s.branches.FindTrunk()
		if err != nil {
			return false, "trunk branch not found"
		}
		preview, err := s.detector.DetectConflicts(gc.branch.ID, trunk.ID)
		if err != nil {
			return false, fmt.Sprintf("conflict detection failed: %v", err)
		}
		if !preview.CanMerge {
			return false, fmt.Sprintf("%d unresolved conflicts block publishing", len(preview.Conflicts))
		}
		return true, ""
	}

	return map[domain.TransitionEvent]transitionRule{
		domain.EventSubmitForReview: {
			from:   []domain.BranchState{domain.BranchDraft},
			to:     domain.BranchReview,
			guards: []guardFunc{actorIsOwner, hasReviewers, hasContent},
		},
		domain.EventRequestChanges: {
			from:   []domain.BranchState{domain.BranchReview},
			to:     domain.BranchDraft,
			guards: []guardFunc{actorIsReviewer, actorNotOwner},
		},
		domain.EventApprove: {
			from:   []domain.BranchState{domain.BranchReview},
			to:     domain.BranchApproved, // reached only at the approval threshold
			guards: []guardFunc{actorIsReviewer, actorNotOwner},
		},
		domain.EventPublish: {
			from:   []domain.BranchState{domain.BranchApproved},
			to:     domain.BranchPublished,
			guards: []guardFunc{actorIsPublisher, hasApprovedReview, trunkIsMergeable},
		},
		domain.EventArchive: {
			from: []domain.BranchState{
				domain.BranchDraft, domain.BranchReview, domain.BranchApproved, domain.BranchPublished,
			},
			to:     domain.BranchArchived,
			guards: []guardFunc{actorIsOwnerOrAdmin},
		},
	}
}

func (s *lifecycleService) loadBranch(branchID uint64) (*domain.Branch, error) {
	branch, err := s.branches.FindByID(branchID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrBranchNotFound
		}
		return nil, err
	}
	return branch, nil
}

// evaluate runs the from-state check and the guard chain without mutating
// anything. The first failing check wins.
func (s *lifecycleService) evaluate(branch *domain.Branch, input TransitionInput) *domain.TransitionResult {
	result := &domain.TransitionResult{FromState: branch.State}

	if branch.IsTrunk {
		result.Reason = "trunk branch has no lifecycle"
		return result
	}
	if branch.State == domain.BranchArchived {
		result.Reason = "branch is archived"
		return result
	}

	rule, ok := s.rules[input.Event]
	if !ok {
		result.Reason = fmt.Sprintf("unknown event %q", input.Event)
		return result
	}

	fromOK := false
	for _, from := range rule.from {
		if branch.State == from {
			fromOK = true
			break
		}
	}
	if !fromOK {
		result.Reason = fmt.Sprintf("event %s not allowed in state %s", input.Event, branch.State)
		return result
	}

	roles := make(map[string]bool, len(input.ActorRoles))
	for _, r := range input.ActorRoles {
		roles[r] = true
	}
	gc := &guardContext{branch: branch, input: input, roles: roles}

	for _, guard := range rule.guards {
		if ok, reason := guard(gc); !ok {
			result.Reason = reason
			return result
		}
	}

	result.Allowed = true
	result.ToState = rule.to
	return result
}

func (s *lifecycleService) CanTransition(input TransitionInput) (*domain.TransitionResult, error) {
	branch, err := s.loadBranch(input.BranchID)
	if err != nil {
		return nil, err
	}
	result := s.evaluate(branch, input)
	if result.Allowed && input.Event == domain.EventApprove {
		result.ToState = s.approveTarget(branch, input.ActorID)
	}
	return result, nil
}

// approveTarget computes the state an APPROVE would land in: review until
// the threshold, approved at it. The actor's own pending approval counts.
func (s *lifecycleService) approveTarget(branch *domain.Branch, actorID string) domain.BranchState {
	count, err := s.reviews.CountApprovals(branch.ID)
	if err != nil {
		return domain.BranchReview
	}
	reviews, err := s.reviews.FindByBranch(branch.ID)
	if err != nil {
		return domain.BranchReview
	}
	alreadyApproved := false
	for _, r := range reviews {
		if r.ReviewerID == actorID && r.Decision == domain.DecisionApproved {
			alreadyApproved = true
			break
		}
	}
	if !alreadyApproved {
		count++
	}
	if count >= int64(branch.RequiredApprovals) {
		return domain.BranchApproved
	}
	return domain.BranchReview
}

func (s *lifecycleService) ExecuteTransition(input TransitionInput) (*domain.TransitionResult, error) {
	branch, err := s.loadBranch(input.BranchID)
	if err != nil {
		return nil, err
	}

	result := s.evaluate(branch, input)
	if result.Allowed {
		if err := s.apply(branch, input, result); err != nil {
			return nil, err
		}
	}

	s.recordAttempt(branch, input, result)
	return result, nil
}

// apply performs the event's mutations. Called only after every guard
// passed; a failure here is an unexpected store error, not a guard failure.
func (s *lifecycleService) apply(branch *domain.Branch, input TransitionInput, result *domain.TransitionResult) error {
	now := time.Now().UTC()

	switch input.Event {
	case domain.EventSubmitForReview:
		// Each review cycle starts fresh.
		if err := s.reviews.DeleteByBranch(branch.ID); err != nil {
			return err
		}
		return s.branches.UpdateState(branch.ID, domain.BranchReview, now)

	case domain.EventRequestChanges:
		if err := s.reviews.Upsert(&domain.Review{
			BranchID:   branch.ID,
			ReviewerID: input.ActorID,
			Decision:   domain.DecisionChangesRequested,
			Comment:    input.Reason,
		}); err != nil {
			return err
		}
		return s.branches.UpdateState(branch.ID, domain.BranchDraft, now)

	case domain.EventApprove:
		if err := s.reviews.Upsert(&domain.Review{
			BranchID:   branch.ID,
			ReviewerID: input.ActorID,
			Decision:   domain.DecisionApproved,
			Comment:    input.Reason,
		}); err != nil {
			return err
		}
		count, err := s.reviews.CountApprovals(branch.ID)
		if err != nil {
			return err
		}
		if count >= int64(branch.RequiredApprovals) {
			result.ToState = domain.BranchApproved
			return s.branches.UpdateState(branch.ID, domain.BranchApproved, now)
		}
		// Below the threshold the branch stays in review.
		result.ToState = domain.BranchReview
		return nil

	case domain.EventPublish:
		trunk, err := s.branches.FindTrunk()
		if err != nil {
			return err
		}
		merge, err := s.merger.MergeContentIntoMain(branch.ID, trunk.ID, input.ActorID)
		if err != nil {
			return err
		}
		result.Merge = merge
		if !merge.Success {
			result.Allowed = false
			result.ToState = ""
			result.Reason = fmt.Sprintf("%d unresolved conflicts block publishing", merge.ConflictCount)
			return nil
		}
		if err := s.branches.UpdateState(branch.ID, domain.BranchPublished, now); err != nil {
			return err
		}
		// Published branches auto-archive: their work has landed in trunk.
		if err := s.branches.UpdateState(branch.ID, domain.BranchArchived, now); err != nil {
			return err
		}
		result.ToState = domain.BranchArchived
		return nil

	case domain.EventArchive:
		return s.branches.UpdateState(branch.ID, domain.BranchArchived, now)
	}

	return fmt.Errorf("unhandled event %q", input.Event)
}

// recordAttempt appends the audit row for the attempt, success or not.
// History write failures are logged, never surfaced into the transition.
func (s *lifecycleService) recordAttempt(branch *domain.Branch, input TransitionInput, result *domain.TransitionResult) {
	row := &domain.BranchTransition{
		BranchID:  branch.ID,
		Event:     string(input.Event),
		FromState: result.FromState,
		ToState:   result.ToState,
		ActorID:   input.ActorID,
		Success:   result.Allowed,
		Reason:    result.Reason,
	}
	if input.Reason != "" {
		row.Metadata = domain.JSONMap{"reason": input.Reason}
	}
	if err := s.transitions.Create(row); err != nil {
		logger.GetLogger().Error().Err(err).
			Uint64("branch_id", branch.ID).
			Str("event", string(input.Event)).
			Msg("failed to record branch transition")
	}

	s.audit.Record(AuditEvent{
		Type:     AuditBranchTransition,
		BranchID: branch.ID,
		ActorID:  input.ActorID,
		Metadata: map[string]interface{}{
			"event":   string(input.Event),
			"from":    string(result.FromState),
			"to":      string(result.ToState),
			"allowed": result.Allowed,
			"reason":  result.Reason,
		},
	})
}

func (s *lifecycleService) GetHistory(branchID uint64, limit int) ([]*domain.BranchTransition, error) {
	return s.transitions.FindByBranch(branchID, limit)
}
