package service

import (
	"time"

	"github.com/inkline/inkline-backend/internal/domain"
	"github.com/inkline/inkline-backend/internal/repository"
	"github.com/stretchr/testify/mock"
)

// MockBranchRepository is a mock implementation of BranchRepository
type MockBranchRepository struct {
	mock.Mock
}

func (m *MockBranchRepository) Create(branch *domain.Branch) error {
	args := m.Called(branch)
	return args.Error(0)
}

func (m *MockBranchRepository) FindByID(id uint64) (*domain.Branch, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Branch), args.Error(1)
}

func (m *MockBranchRepository) FindTrunk() (*domain.Branch, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Branch), args.Error(1)
}

func (m *MockBranchRepository) List(state domain.BranchState, ownerID string, page, perPage int) ([]*domain.Branch, int64, error) {
	args := m.Called(state, ownerID, page, perPage)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*domain.Branch), args.Get(1).(int64), args.Error(2)
}

func (m *MockBranchRepository) Update(branch *domain.Branch) error {
	args := m.Called(branch)
	return args.Error(0)
}

func (m *MockBranchRepository) UpdateState(id uint64, state domain.BranchState, enteredAt time.Time) error {
	args := m.Called(id, state, enteredAt)
	return args.Error(0)
}

// MockContentRepository is a mock implementation of ContentRepository
type MockContentRepository struct {
	mock.Mock
}

func (m *MockContentRepository) CreateWithVersion(content *domain.Content, version *domain.ContentVersion) error {
	args := m.Called(content, version)
	return args.Error(0)
}

func (m *MockContentRepository) FindByID(id uint64) (*domain.Content, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Content), args.Error(1)
}

func (m *MockContentRepository) FindByBranch(branchID uint64) ([]*domain.Content, error) {
	args := m.Called(branchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Content), args.Error(1)
}

func (m *MockContentRepository) FindByBranchAndSlug(branchID uint64, slug string) (*domain.Content, error) {
	args := m.Called(branchID, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Content), args.Error(1)
}

func (m *MockContentRepository) CountByBranch(branchID uint64) (int64, error) {
	args := m.Called(branchID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockContentRepository) Update(content *domain.Content) error {
	args := m.Called(content)
	return args.Error(0)
}

func (m *MockContentRepository) UpdateCurrentVersion(id, versionID uint64) error {
	args := m.Called(id, versionID)
	return args.Error(0)
}

func (m *MockContentRepository) UpdateBaseVersion(id, versionID uint64) error {
	args := m.Called(id, versionID)
	return args.Error(0)
}

func (m *MockContentRepository) Delete(id uint64) error {
	args := m.Called(id)
	return args.Error(0)
}

// MockVersionRepository is a mock implementation of VersionRepository
type MockVersionRepository struct {
	mock.Mock
}

func (m *MockVersionRepository) Create(version *domain.ContentVersion) error {
	args := m.Called(version)
	return args.Error(0)
}

func (m *MockVersionRepository) CreateAndRepoint(version *domain.ContentVersion) error {
	args := m.Called(version)
	return args.Error(0)
}

func (m *MockVersionRepository) FindByID(id uint64) (*domain.ContentVersion, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ContentVersion), args.Error(1)
}

func (m *MockVersionRepository) FindByContentAndID(contentID, versionID uint64) (*domain.ContentVersion, error) {
	args := m.Called(contentID, versionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ContentVersion), args.Error(1)
}

func (m *MockVersionRepository) FindByContent(contentID uint64, page, perPage int) ([]*domain.ContentVersion, int64, error) {
	args := m.Called(contentID, page, perPage)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*domain.ContentVersion), args.Get(1).(int64), args.Error(2)
}

// MockReviewRepository is a mock implementation of ReviewRepository
type MockReviewRepository struct {
	mock.Mock
}

func (m *MockReviewRepository) Upsert(review *domain.Review) error {
	args := m.Called(review)
	return args.Error(0)
}

func (m *MockReviewRepository) CountApprovals(branchID uint64) (int64, error) {
	args := m.Called(branchID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockReviewRepository) FindByBranch(branchID uint64) ([]*domain.Review, error) {
	args := m.Called(branchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Review), args.Error(1)
}

func (m *MockReviewRepository) DeleteByBranch(branchID uint64) error {
	args := m.Called(branchID)
	return args.Error(0)
}

// MockTransitionRepository is a mock implementation of TransitionRepository
type MockTransitionRepository struct {
	mock.Mock
}

func (m *MockTransitionRepository) Create(transition *domain.BranchTransition) error {
	args := m.Called(transition)
	return args.Error(0)
}

func (m *MockTransitionRepository) FindByBranch(branchID uint64, limit int) ([]*domain.BranchTransition, error) {
	args := m.Called(branchID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.BranchTransition), args.Error(1)
}

// MockMergeHistoryRepository is a mock implementation of MergeHistoryRepository
type MockMergeHistoryRepository struct {
	mock.Mock
}

func (m *MockMergeHistoryRepository) Create(entry *domain.MergeHistory) error {
	args := m.Called(entry)
	return args.Error(0)
}

func (m *MockMergeHistoryRepository) FindByContent(contentID uint64, limit int) ([]*domain.MergeHistory, error) {
	args := m.Called(contentID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.MergeHistory), args.Error(1)
}

func (m *MockMergeHistoryRepository) FindBySourceBranch(branchID uint64) ([]*domain.MergeHistory, error) {
	args := m.Called(branchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.MergeHistory), args.Error(1)
}

// MockConvergenceRepository is a mock implementation of ConvergenceRepository
type MockConvergenceRepository struct {
	mock.Mock
}

func (m *MockConvergenceRepository) MergeShadow(trunkContent, branchContent *domain.Content, version *domain.ContentVersion, history *domain.MergeHistory) error {
	args := m.Called(trunkContent, branchContent, version, history)
	return args.Error(0)
}

func (m *MockConvergenceRepository) AdoptExisting(trunkContent, branchContent *domain.Content, version *domain.ContentVersion, history *domain.MergeHistory) error {
	args := m.Called(trunkContent, branchContent, version, history)
	return args.Error(0)
}

func (m *MockConvergenceRepository) CreateTrunkContent(trunkContent, branchContent *domain.Content, version *domain.ContentVersion, history *domain.MergeHistory) error {
	args := m.Called(trunkContent, branchContent, version, history)
	return args.Error(0)
}

func (m *MockConvergenceRepository) ApplyRebaseVersion(branchContent *domain.Content, version *domain.ContentVersion) error {
	args := m.Called(branchContent, version)
	return args.Error(0)
}

func (m *MockConvergenceRepository) AdvanceBasePointers(updates []repository.BasePointerUpdate) error {
	args := m.Called(updates)
	return args.Error(0)
}

// MockConflictService is a mock implementation of ConflictService
type MockConflictService struct {
	mock.Mock
}

func (m *MockConflictService) DetectConflicts(branchID, trunkBranchID uint64) (*domain.MergePreview, error) {
	args := m.Called(branchID, trunkBranchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MergePreview), args.Error(1)
}

func (m *MockConflictService) ResolveConflict(branchID uint64, req *domain.ResolveConflictRequest, actorID string) error {
	args := m.Called(branchID, req, actorID)
	return args.Error(0)
}

// MockMergeService is a mock implementation of MergeService
type MockMergeService struct {
	mock.Mock
}

func (m *MockMergeService) MergeContentIntoMain(branchID, trunkBranchID uint64, actorID string) (*domain.MergeResult, error) {
	args := m.Called(branchID, trunkBranchID, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MergeResult), args.Error(1)
}

// MockVersionService is a mock implementation of VersionService
type MockVersionService struct {
	mock.Mock
}

func (m *MockVersionService) CreateVersion(input CreateVersionInput) (*domain.ContentVersion, error) {
	args := m.Called(input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ContentVersion), args.Error(1)
}

func (m *MockVersionService) GetVersions(contentID uint64, page, perPage int) ([]*domain.ContentVersion, int64, error) {
	args := m.Called(contentID, page, perPage)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*domain.ContentVersion), args.Get(1).(int64), args.Error(2)
}

func (m *MockVersionService) GetVersion(contentID, versionID uint64) (*domain.ContentVersion, error) {
	args := m.Called(contentID, versionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ContentVersion), args.Error(1)
}

func (m *MockVersionService) Revert(contentID, targetVersionID uint64, changeDescription, actorID string) (*domain.ContentVersion, error) {
	args := m.Called(contentID, targetVersionID, changeDescription, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ContentVersion), args.Error(1)
}
