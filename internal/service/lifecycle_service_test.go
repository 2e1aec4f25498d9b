package service

import (
	"testing"

	"github.com/inkline/inkline-backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type lifecycleFixture struct {
	branches    *MockBranchRepository
	contents    *MockContentRepository
	reviews     *MockReviewRepository
	transitions *MockTransitionRepository
	detector    *MockConflictService
	merger      *MockMergeService
	svc         LifecycleService
}

func newLifecycleFixture() *lifecycleFixture {
	f := &lifecycleFixture{
		branches:    new(MockBranchRepository),
		contents:    new(MockContentRepository),
		reviews:     new(MockReviewRepository),
		transitions: new(MockTransitionRepository),
		detector:    new(MockConflictService),
		merger:      new(MockMergeService),
	}
	f.svc = NewLifecycleService(f.branches, f.contents, f.reviews, f.transitions, f.detector, f.merger, NopAuditSink{})
	f.transitions.On("Create", mock.AnythingOfType("*domain.BranchTransition")).Return(nil)
	return f
}

func draftBranch() *domain.Branch {
	return &domain.Branch{
		ID:                10,
		Name:              "spring-campaign",
		State:             domain.BranchDraft,
		OwnerID:           "alice",
		Reviewers:         domain.StringList{"bob", "carol"},
		Collaborators:     domain.StringList{"dave"},
		RequiredApprovals: 2,
	}
}

func TestSubmitForReview(t *testing.T) {
	t.Run("owner submits a draft with reviewers and content", func(t *testing.T) {
		f := newLifecycleFixture()
		branch := draftBranch()
		f.branches.On("FindByID", branch.ID).Return(branch, nil)
		f.contents.On("CountByBranch", branch.ID).Return(int64(3), nil)
		f.reviews.On("DeleteByBranch", branch.ID).Return(nil).Once()
		f.branches.On("UpdateState", branch.ID, domain.BranchReview, mock.AnythingOfType("time.Time")).Return(nil).Once()

		result, err := f.svc.ExecuteTransition(TransitionInput{
			BranchID: branch.ID,
			Event:    domain.EventSubmitForReview,
			ActorID:  "alice",
		})

		assert.NoError(t, err)
		assert.True(t, result.Allowed)
		assert.Equal(t, domain.BranchDraft, result.FromState)
		assert.Equal(t, domain.BranchReview, result.ToState)
		f.branches.AssertExpectations(t)
		f.reviews.AssertExpectations(t)
	})

	t.Run("only the owner may submit", func(t *testing.T) {
		f := newLifecycleFixture()
		branch := draftBranch()
		f.branches.On("FindByID", branch.ID).Return(branch, nil)

		result, err := f.svc.ExecuteTransition(TransitionInput{
			BranchID: branch.ID,
			Event:    domain.EventSubmitForReview,
			ActorID:  "dave",
		})

		assert.NoError(t, err)
		assert.False(t, result.Allowed)
		assert.Equal(t, "only the branch owner may perform this action", result.Reason)
		f.branches.AssertNotCalled(t, "UpdateState", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("submitting without reviewers is blocked", func(t *testing.T) {
		f := newLifecycleFixture()
		branch := draftBranch()
		branch.Reviewers = nil
		f.branches.On("FindByID", branch.ID).Return(branch, nil)

		result, err := f.svc.ExecuteTransition(TransitionInput{
			BranchID: branch.ID,
			Event:    domain.EventSubmitForReview,
			ActorID:  "alice",
		})

		assert.NoError(t, err)
		assert.False(t, result.Allowed)
		assert.Equal(t, "branch has no reviewers assigned", result.Reason)
	})

	t.Run("submitting an empty branch is blocked", func(t *testing.T) {
		f := newLifecycleFixture()
		branch := draftBranch()
		f.branches.On("FindByID", branch.ID).Return(branch, nil)
		f.contents.On("CountByBranch", branch.ID).Return(int64(0), nil)

		result, err := f.svc.ExecuteTransition(TransitionInput{
			BranchID: branch.ID,
			Event:    domain.EventSubmitForReview,
			ActorID:  "alice",
		})

		assert.NoError(t, err)
		assert.False(t, result.Allowed)
		assert.Equal(t, "branch has no content", result.Reason)
	})
}

func TestApprove(t *testing.T) {
	t.Run("approval below the threshold keeps the branch in review", func(t *testing.T) {
		f := newLifecycleFixture()
		branch := draftBranch()
		branch.State = domain.BranchReview
		f.branches.On("FindByID", branch.ID).Return(branch, nil)
		f.reviews.On("Upsert", mock.AnythingOfType("*domain.Review")).Return(nil).Once()
		f.reviews.On("CountApprovals", branch.ID).Return(int64(1), nil)

		result, err := f.svc.ExecuteTransition(TransitionInput{
			BranchID: branch.ID,
			Event:    domain.EventApprove,
			ActorID:  "bob",
		})

		assert.NoError(t, err)
		assert.True(t, result.Allowed)
		assert.Equal(t, domain.BranchReview, result.ToState)
		f.branches.AssertNotCalled(t, "UpdateState", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("approval at the threshold moves the branch to approved", func(t *testing.T) {
		f := newLifecycleFixture()
		branch := draftBranch()
		branch.State = domain.BranchReview
		f.branches.On("FindByID", branch.ID).Return(branch, nil)
		f.reviews.On("Upsert", mock.AnythingOfType("*domain.Review")).Return(nil).Once()
		f.reviews.On("CountApprovals", branch.ID).Return(int64(2), nil)
		f.branches.On("UpdateState", branch.ID, domain.BranchApproved, mock.AnythingOfType("time.Time")).Return(nil).Once()

		result, err := f.svc.ExecuteTransition(TransitionInput{
			BranchID: branch.ID,
			Event:    domain.EventApprove,
			ActorID:  "carol",
		})

		assert.NoError(t, err)
		assert.True(t, result.Allowed)
		assert.Equal(t, domain.BranchApproved, result.ToState)
		f.branches.AssertExpectations(t)
	})

	t.Run("the owner cannot approve their own branch", func(t *testing.T) {
		f := newLifecycleFixture()
		branch := draftBranch()
		branch.State = domain.BranchReview
		branch.Reviewers = domain.StringList{"alice", "bob"}
		f.branches.On("FindByID", branch.ID).Return(branch, nil)

		result, err := f.svc.ExecuteTransition(TransitionInput{
			BranchID: branch.ID,
			Event:    domain.EventApprove,
			ActorID:  "alice",
		})

		assert.NoError(t, err)
		assert.False(t, result.Allowed)
		assert.Equal(t, "owner cannot review own branch", result.Reason)
	})

	t.Run("non-reviewers cannot approve", func(t *testing.T) {
		f := newLifecycleFixture()
		branch := draftBranch()
		branch.State = domain.BranchReview
		f.branches.On("FindByID", branch.ID).Return(branch, nil)

		result, err := f.svc.ExecuteTransition(TransitionInput{
			BranchID: branch.ID,
			Event:    domain.EventApprove,
			ActorID:  "mallory",
		})

		assert.NoError(t, err)
		assert.False(t, result.Allowed)
		assert.Equal(t, "actor is not a designated reviewer", result.Reason)
	})
}

func TestRequestChanges(t *testing.T) {
	t.Run("a reviewer sends the branch back to draft", func(t *testing.T) {
		f := newLifecycleFixture()
		branch := draftBranch()
		branch.State = domain.BranchReview
		f.branches.On("FindByID", branch.ID).Return(branch, nil)
		var review *domain.Review
		f.reviews.On("Upsert", mock.AnythingOfType("*domain.Review")).
			Run(func(args mock.Arguments) { review = args.Get(0).(*domain.Review) }).
			Return(nil).Once()
		f.branches.On("UpdateState", branch.ID, domain.BranchDraft, mock.AnythingOfType("time.Time")).Return(nil).Once()

		result, err := f.svc.ExecuteTransition(TransitionInput{
			BranchID: branch.ID,
			Event:    domain.EventRequestChanges,
			ActorID:  "bob",
			Reason:   "headline needs work",
		})

		assert.NoError(t, err)
		assert.True(t, result.Allowed)
		assert.Equal(t, domain.BranchDraft, result.ToState)
		assert.Equal(t, domain.DecisionChangesRequested, review.Decision)
		assert.Equal(t, "headline needs work", review.Comment)
	})
}

func TestPublish(t *testing.T) {
	trunk := &domain.Branch{ID: 1, Name: "main", IsTrunk: true}

	t.Run("publishing merges into trunk and auto-archives", func(t *testing.T) {
		f := newLifecycleFixture()
		branch := draftBranch()
		branch.State = domain.BranchApproved
		f.branches.On("FindByID", branch.ID).Return(branch, nil)
		f.branches.On("FindTrunk").Return(trunk, nil)
		f.reviews.On("CountApprovals", branch.ID).Return(int64(2), nil)
		f.detector.On("DetectConflicts", branch.ID, trunk.ID).Return(&domain.MergePreview{CanMerge: true}, nil)
		f.merger.On("MergeContentIntoMain", branch.ID, trunk.ID, "paula").
			Return(&domain.MergeResult{Success: true, MergedCount: 3}, nil).Once()
		f.branches.On("UpdateState", branch.ID, domain.BranchPublished, mock.AnythingOfType("time.Time")).Return(nil).Once()
		f.branches.On("UpdateState", branch.ID, domain.BranchArchived, mock.AnythingOfType("time.Time")).Return(nil).Once()

		result, err := f.svc.ExecuteTransition(TransitionInput{
			BranchID:   branch.ID,
			Event:      domain.EventPublish,
			ActorID:    "paula",
			ActorRoles: []string{domain.RolePublisher},
		})

		assert.NoError(t, err)
		assert.True(t, result.Allowed)
		assert.Equal(t, domain.BranchArchived, result.ToState)
		assert.NotNil(t, result.Merge)
		assert.Equal(t, 3, result.Merge.MergedCount)
		f.branches.AssertExpectations(t)
		f.merger.AssertExpectations(t)
	})

	t.Run("unresolved conflicts block publishing at the guard", func(t *testing.T) {
		f := newLifecycleFixture()
		branch := draftBranch()
		branch.State = domain.BranchApproved
		f.branches.On("FindByID", branch.ID).Return(branch, nil)
		f.branches.On("FindTrunk").Return(trunk, nil)
		f.reviews.On("CountApprovals", branch.ID).Return(int64(2), nil)
		f.detector.On("DetectConflicts", branch.ID, trunk.ID).Return(&domain.MergePreview{
			CanMerge:  false,
			Conflicts: []domain.Conflict{{ContentID: 5}},
		}, nil)

		result, err := f.svc.ExecuteTransition(TransitionInput{
			BranchID:   branch.ID,
			Event:      domain.EventPublish,
			ActorID:    "paula",
			ActorRoles: []string{domain.RolePublisher},
		})

		assert.NoError(t, err)
		assert.False(t, result.Allowed)
		assert.Equal(t, "1 unresolved conflicts block publishing", result.Reason)
		f.merger.AssertNotCalled(t, "MergeContentIntoMain", mock.Anything, mock.Anything, mock.Anything)
		f.branches.AssertNotCalled(t, "UpdateState", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("a merge that turns up conflicts keeps the branch approved", func(t *testing.T) {
		// Conflicts can appear between the guard check and the merge if trunk
		// moved in the meantime.
		f := newLifecycleFixture()
		branch := draftBranch()
		branch.State = domain.BranchApproved
		f.branches.On("FindByID", branch.ID).Return(branch, nil)
		f.branches.On("FindTrunk").Return(trunk, nil)
		f.reviews.On("CountApprovals", branch.ID).Return(int64(2), nil)
		f.detector.On("DetectConflicts", branch.ID, trunk.ID).Return(&domain.MergePreview{CanMerge: true}, nil)
		f.merger.On("MergeContentIntoMain", branch.ID, trunk.ID, "paula").
			Return(&domain.MergeResult{Success: false, ConflictCount: 2}, nil).Once()

		result, err := f.svc.ExecuteTransition(TransitionInput{
			BranchID:   branch.ID,
			Event:      domain.EventPublish,
			ActorID:    "paula",
			ActorRoles: []string{domain.RolePublisher},
		})

		assert.NoError(t, err)
		assert.False(t, result.Allowed)
		assert.Equal(t, "2 unresolved conflicts block publishing", result.Reason)
		f.branches.AssertNotCalled(t, "UpdateState", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("publishing requires the publisher role", func(t *testing.T) {
		f := newLifecycleFixture()
		branch := draftBranch()
		branch.State = domain.BranchApproved
		f.branches.On("FindByID", branch.ID).Return(branch, nil)

		result, err := f.svc.ExecuteTransition(TransitionInput{
			BranchID: branch.ID,
			Event:    domain.EventPublish,
			ActorID:  "alice",
		})

		assert.NoError(t, err)
		assert.False(t, result.Allowed)
		assert.Equal(t, "publisher role required", result.Reason)
	})
}

func TestLifecycleInvariants(t *testing.T) {
	t.Run("archived is terminal", func(t *testing.T) {
		f := newLifecycleFixture()
		branch := draftBranch()
		branch.State = domain.BranchArchived
		f.branches.On("FindByID", branch.ID).Return(branch, nil)

		for _, event := range []domain.TransitionEvent{
			domain.EventSubmitForReview, domain.EventApprove, domain.EventPublish, domain.EventArchive,
		} {
			result, err := f.svc.ExecuteTransition(TransitionInput{
				BranchID: branch.ID,
				Event:    event,
				ActorID:  "alice",
			})
			assert.NoError(t, err)
			assert.False(t, result.Allowed, "event %s must be rejected on an archived branch", event)
			assert.Equal(t, "branch is archived", result.Reason)
		}
	})

	t.Run("trunk has no lifecycle", func(t *testing.T) {
		f := newLifecycleFixture()
		trunk := &domain.Branch{ID: 1, Name: "main", IsTrunk: true, OwnerID: "alice"}
		f.branches.On("FindByID", trunk.ID).Return(trunk, nil)

		result, err := f.svc.ExecuteTransition(TransitionInput{
			BranchID: trunk.ID,
			Event:    domain.EventArchive,
			ActorID:  "alice",
		})

		assert.NoError(t, err)
		assert.False(t, result.Allowed)
		assert.Equal(t, "trunk branch has no lifecycle", result.Reason)
	})

	t.Run("events out of their source state are rejected", func(t *testing.T) {
		f := newLifecycleFixture()
		branch := draftBranch()
		f.branches.On("FindByID", branch.ID).Return(branch, nil)

		result, err := f.svc.ExecuteTransition(TransitionInput{
			BranchID:   branch.ID,
			Event:      domain.EventPublish,
			ActorID:    "paula",
			ActorRoles: []string{domain.RolePublisher},
		})

		assert.NoError(t, err)
		assert.False(t, result.Allowed)
		assert.Contains(t, result.Reason, "not allowed in state draft")
	})

	t.Run("an admin may archive someone else's branch", func(t *testing.T) {
		f := newLifecycleFixture()
		branch := draftBranch()
		f.branches.On("FindByID", branch.ID).Return(branch, nil)
		f.branches.On("UpdateState", branch.ID, domain.BranchArchived, mock.AnythingOfType("time.Time")).Return(nil).Once()

		result, err := f.svc.ExecuteTransition(TransitionInput{
			BranchID:   branch.ID,
			Event:      domain.EventArchive,
			ActorID:    "root",
			ActorRoles: []string{domain.RoleAdmin},
		})

		assert.NoError(t, err)
		assert.True(t, result.Allowed)
		assert.Equal(t, domain.BranchArchived, result.ToState)
	})

	t.Run("every attempt lands in the transition history", func(t *testing.T) {
		f := newLifecycleFixture()
		branch := draftBranch()
		f.branches.On("FindByID", branch.ID).Return(branch, nil)

		_, err := f.svc.ExecuteTransition(TransitionInput{
			BranchID: branch.ID,
			Event:    domain.EventSubmitForReview,
			ActorID:  "dave",
		})

		assert.NoError(t, err)
		f.transitions.AssertCalled(t, "Create", mock.MatchedBy(func(tr *domain.BranchTransition) bool {
			return tr.BranchID == branch.ID && !tr.Success && tr.Event == string(domain.EventSubmitForReview)
		}))
	})
}

func TestCanTransition(t *testing.T) {
	t.Run("reports the approve landing state without mutating", func(t *testing.T) {
		f := newLifecycleFixture()
		branch := draftBranch()
		branch.State = domain.BranchReview
		f.branches.On("FindByID", branch.ID).Return(branch, nil)
		f.reviews.On("CountApprovals", branch.ID).Return(int64(1), nil)
		f.reviews.On("FindByBranch", branch.ID).Return([]*domain.Review{
			{BranchID: branch.ID, ReviewerID: "bob", Decision: domain.DecisionApproved},
		}, nil)

		result, err := f.svc.CanTransition(TransitionInput{
			BranchID: branch.ID,
			Event:    domain.EventApprove,
			ActorID:  "carol",
		})

		assert.NoError(t, err)
		assert.True(t, result.Allowed)
		assert.Equal(t, domain.BranchApproved, result.ToState)
		f.reviews.AssertNotCalled(t, "Upsert", mock.Anything)
		f.branches.AssertNotCalled(t, "UpdateState", mock.Anything, mock.Anything, mock.Anything)
	})
}
