package service

import (
	"testing"

	"github.com/inkline/inkline-backend/internal/common"
	"github.com/inkline/inkline-backend/internal/domain"
	"github.com/inkline/inkline-backend/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type rebaseFixture struct {
	branches    *MockBranchRepository
	contents    *MockContentRepository
	versions    *MockVersionRepository
	convergence *MockConvergenceRepository
	detector    *MockConflictService
	sessions    SessionStore
	svc         RebaseService
}

func newRebaseFixture() *rebaseFixture {
	f := &rebaseFixture{
		branches:    new(MockBranchRepository),
		contents:    new(MockContentRepository),
		versions:    new(MockVersionRepository),
		convergence: new(MockConvergenceRepository),
		detector:    new(MockConflictService),
		sessions:    NewMemorySessionStore(),
	}
	f.svc = NewRebaseService(f.branches, f.contents, f.versions, f.convergence, f.detector, f.sessions, NopAuditSink{})
	f.branches.On("FindTrunk").Return(&domain.Branch{ID: 1, Name: "main", IsTrunk: true}, nil)
	return f
}

func TestRebase(t *testing.T) {
	t.Run("a clean rebase completes immediately and advances merge bases", func(t *testing.T) {
		f := newRebaseFixture()
		item := &domain.Content{
			ID: 6, BranchID: 10, Slug: "faq",
			SourceContentID: ptr(100), BaseVersionID: ptr(1000), CurrentVersionID: ptr(1002),
		}
		f.detector.On("DetectConflicts", uint64(10), uint64(1)).Return(&domain.MergePreview{
			CanMerge: true,
			AutoMergeable: []domain.AutoMergeItem{
				{ContentID: 6, Slug: "faq", Reason: domain.AutoMergeModified, MergedBody: strPtr("folded body")},
			},
		}, nil)
		f.contents.On("FindByID", uint64(6)).Return(item, nil)
		f.versions.On("FindByID", uint64(1002)).Return(&domain.ContentVersion{
			ID: 1002, Body: "branch body", Checksum: Checksum("branch body"), BodyFormat: "markdown",
		}, nil)

		var folded *domain.ContentVersion
		f.convergence.On("ApplyRebaseVersion", item, mock.AnythingOfType("*domain.ContentVersion")).
			Run(func(args mock.Arguments) { folded = args.Get(1).(*domain.ContentVersion) }).
			Return(nil).Once()

		f.contents.On("FindByBranch", uint64(10)).Return([]*domain.Content{item}, nil)
		f.contents.On("FindByID", uint64(100)).Return(&domain.Content{ID: 100, CurrentVersionID: ptr(1005)}, nil)
		f.convergence.On("AdvanceBasePointers", []repository.BasePointerUpdate{
			{ContentID: 6, BaseVersionID: 1005},
		}).Return(nil).Once()

		result, err := f.svc.Rebase(10, "alice")

		assert.NoError(t, err)
		assert.True(t, result.Completed)
		assert.Equal(t, 1, result.AppliedCount)
		assert.Equal(t, "folded body", folded.Body)
		assert.Equal(t, domain.AuthorSystem, folded.AuthorType)
		assert.False(t, f.svc.IsRebaseInProgress(10))
		f.convergence.AssertExpectations(t)
	})

	t.Run("an item already at the merged body gets no new version", func(t *testing.T) {
		f := newRebaseFixture()
		item := &domain.Content{
			ID: 6, BranchID: 10, SourceContentID: ptr(100), CurrentVersionID: ptr(1002),
		}
		f.detector.On("DetectConflicts", uint64(10), uint64(1)).Return(&domain.MergePreview{
			CanMerge: true,
			AutoMergeable: []domain.AutoMergeItem{
				{ContentID: 6, MergedBody: strPtr("same body")},
			},
		}, nil)
		f.contents.On("FindByID", uint64(6)).Return(item, nil)
		f.versions.On("FindByID", uint64(1002)).Return(&domain.ContentVersion{
			ID: 1002, Body: "same body", Checksum: Checksum("same body"),
		}, nil)
		f.contents.On("FindByBranch", uint64(10)).Return([]*domain.Content{item}, nil)
		f.contents.On("FindByID", uint64(100)).Return(&domain.Content{ID: 100, CurrentVersionID: ptr(1005)}, nil)
		f.convergence.On("AdvanceBasePointers", mock.Anything).Return(nil).Once()

		result, err := f.svc.Rebase(10, "alice")

		assert.NoError(t, err)
		assert.True(t, result.Completed)
		assert.Zero(t, result.AppliedCount)
		f.convergence.AssertNotCalled(t, "ApplyRebaseVersion", mock.Anything, mock.Anything)
	})

	t.Run("a trunk-side deletion folds an empty body into the branch", func(t *testing.T) {
		f := newRebaseFixture()
		item := &domain.Content{
			ID: 6, BranchID: 10, SourceContentID: ptr(100), CurrentVersionID: ptr(1002),
		}
		f.detector.On("DetectConflicts", uint64(10), uint64(1)).Return(&domain.MergePreview{
			CanMerge: true,
			AutoMergeable: []domain.AutoMergeItem{
				{ContentID: 6, Reason: domain.AutoMergeUnchanged, MergedBody: strPtr("")},
			},
		}, nil)
		f.contents.On("FindByID", uint64(6)).Return(item, nil)
		f.versions.On("FindByID", uint64(1002)).Return(&domain.ContentVersion{
			ID: 1002, Body: "A\nB", Checksum: Checksum("A\nB"), BodyFormat: "markdown",
		}, nil)

		var folded *domain.ContentVersion
		f.convergence.On("ApplyRebaseVersion", item, mock.AnythingOfType("*domain.ContentVersion")).
			Run(func(args mock.Arguments) { folded = args.Get(1).(*domain.ContentVersion) }).
			Return(nil).Once()
		f.contents.On("FindByBranch", uint64(10)).Return([]*domain.Content{item}, nil)
		f.contents.On("FindByID", uint64(100)).Return(&domain.Content{ID: 100, CurrentVersionID: ptr(1005)}, nil)
		f.convergence.On("AdvanceBasePointers", mock.Anything).Return(nil).Once()

		result, err := f.svc.Rebase(10, "alice")

		assert.NoError(t, err)
		assert.True(t, result.Completed)
		assert.Equal(t, 1, result.AppliedCount)
		assert.Equal(t, "", folded.Body)
		assert.Zero(t, folded.ByteSize)
	})

	t.Run("a degraded item with no merge result is left alone", func(t *testing.T) {
		f := newRebaseFixture()
		item := &domain.Content{ID: 6, BranchID: 10, SourceContentID: ptr(100), CurrentVersionID: ptr(1002)}
		f.detector.On("DetectConflicts", uint64(10), uint64(1)).Return(&domain.MergePreview{
			CanMerge: true,
			AutoMergeable: []domain.AutoMergeItem{
				{ContentID: 6, Reason: domain.AutoMergeModified},
			},
		}, nil)
		f.contents.On("FindByBranch", uint64(10)).Return([]*domain.Content{item}, nil)
		f.contents.On("FindByID", uint64(100)).Return(&domain.Content{ID: 100, CurrentVersionID: ptr(1005)}, nil)
		f.convergence.On("AdvanceBasePointers", mock.Anything).Return(nil).Once()

		result, err := f.svc.Rebase(10, "alice")

		assert.NoError(t, err)
		assert.True(t, result.Completed)
		assert.Zero(t, result.AppliedCount)
		f.convergence.AssertNotCalled(t, "ApplyRebaseVersion", mock.Anything, mock.Anything)
	})

	t.Run("conflicts park the rebase in a session", func(t *testing.T) {
		f := newRebaseFixture()
		f.detector.On("DetectConflicts", uint64(10), uint64(1)).Return(&domain.MergePreview{
			Conflicts: []domain.Conflict{{ContentID: 5, Slug: "about"}},
		}, nil)

		result, err := f.svc.Rebase(10, "alice")

		assert.NoError(t, err)
		assert.False(t, result.Completed)
		assert.Equal(t, 1, result.ConflictCount)
		assert.True(t, f.svc.IsRebaseInProgress(10))
		f.convergence.AssertNotCalled(t, "AdvanceBasePointers", mock.Anything)
	})

	t.Run("only one rebase may run per branch", func(t *testing.T) {
		f := newRebaseFixture()
		f.detector.On("DetectConflicts", uint64(10), uint64(1)).Return(&domain.MergePreview{
			Conflicts: []domain.Conflict{{ContentID: 5}},
		}, nil)

		_, err := f.svc.Rebase(10, "alice")
		assert.NoError(t, err)

		_, err = f.svc.Rebase(10, "bob")
		assert.ErrorIs(t, err, common.ErrRebaseInProgress)
	})
}

func TestContinueRebase(t *testing.T) {
	t.Run("continuing with unresolved conflicts is rejected", func(t *testing.T) {
		f := newRebaseFixture()
		assert.NoError(t, f.sessions.Put(&domain.RebaseSession{
			BranchID:  10,
			Conflicts: []domain.Conflict{{ContentID: 5}},
		}))

		_, err := f.svc.ContinueRebase(10, "alice")

		assert.ErrorIs(t, err, common.ErrUnresolvedConflicts)
		assert.True(t, f.svc.IsRebaseInProgress(10))
	})

	t.Run("continuing a fully resolved session advances bases and clears it", func(t *testing.T) {
		f := newRebaseFixture()
		assert.NoError(t, f.sessions.Put(&domain.RebaseSession{
			BranchID:          10,
			Conflicts:         []domain.Conflict{{ContentID: 6}},
			ResolvedConflicts: []uint64{6},
		}))
		item := &domain.Content{ID: 6, BranchID: 10, SourceContentID: ptr(100)}
		f.contents.On("FindByBranch", uint64(10)).Return([]*domain.Content{item}, nil)
		f.contents.On("FindByID", uint64(100)).Return(&domain.Content{ID: 100, CurrentVersionID: ptr(1005)}, nil)
		f.convergence.On("AdvanceBasePointers", []repository.BasePointerUpdate{
			{ContentID: 6, BaseVersionID: 1005},
		}).Return(nil).Once()

		result, err := f.svc.ContinueRebase(10, "alice")

		assert.NoError(t, err)
		assert.True(t, result.Completed)
		assert.False(t, f.svc.IsRebaseInProgress(10))
		f.convergence.AssertExpectations(t)
	})

	t.Run("continuing without a session is an error", func(t *testing.T) {
		f := newRebaseFixture()

		_, err := f.svc.ContinueRebase(10, "alice")

		assert.ErrorIs(t, err, common.ErrNoRebaseSession)
	})
}

func TestAbortRebase(t *testing.T) {
	t.Run("abort discards the session and leaves content alone", func(t *testing.T) {
		f := newRebaseFixture()
		assert.NoError(t, f.sessions.Put(&domain.RebaseSession{
			BranchID:  10,
			Conflicts: []domain.Conflict{{ContentID: 5}},
		}))

		assert.NoError(t, f.svc.AbortRebase(10))
		assert.False(t, f.svc.IsRebaseInProgress(10))
		f.convergence.AssertNotCalled(t, "AdvanceBasePointers", mock.Anything)
	})

	t.Run("aborting without a session is an error", func(t *testing.T) {
		f := newRebaseFixture()
		assert.ErrorIs(t, f.svc.AbortRebase(10), common.ErrNoRebaseSession)
	})
}

func TestGetRebaseState(t *testing.T) {
	t.Run("no session means not in progress", func(t *testing.T) {
		f := newRebaseFixture()

		state, err := f.svc.GetRebaseState(10)

		assert.NoError(t, err)
		assert.False(t, state.InProgress)
	})

	t.Run("an active session reports its progress", func(t *testing.T) {
		f := newRebaseFixture()
		assert.NoError(t, f.sessions.Put(&domain.RebaseSession{
			BranchID:          10,
			Conflicts:         []domain.Conflict{{ContentID: 5}, {ContentID: 6}},
			ResolvedConflicts: []uint64{5},
		}))

		state, err := f.svc.GetRebaseState(10)

		assert.NoError(t, err)
		assert.True(t, state.InProgress)
		assert.Equal(t, 1, state.ResolvedCount)
		assert.Equal(t, 2, state.TotalCount)
	})
}
