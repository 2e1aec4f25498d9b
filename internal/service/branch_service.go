package service

import (
	"errors"
	"fmt"

	"github.com/inkline/inkline-backend/internal/common"
	"github.com/inkline/inkline-backend/internal/domain"
	"github.com/inkline/inkline-backend/internal/repository"
	"gorm.io/gorm"
)

// BranchSettings are the mutable knobs of a draft branch.
type BranchSettings struct {
	Reviewers         *[]string
	Collaborators     *[]string
	RequiredApprovals *int
}

// BranchService manages branch workspaces. Lifecycle transitions live in
// LifecycleService; this service only covers creation, lookup and settings.
type BranchService interface {
	CreateBranch(ownerID string, req *domain.CreateBranchRequest) (*domain.Branch, error)
	GetBranch(id uint64) (*domain.Branch, error)
	GetTrunk() (*domain.Branch, error)
	ListBranches(state domain.BranchState, ownerID string, page, perPage int) ([]*domain.Branch, int64, error)
	UpdateSettings(branchID uint64, actorID string, actorRoles []string, settings BranchSettings) (*domain.Branch, error)
}

type branchService struct {
	branches repository.BranchRepository
}

// NewBranchService creates a new BranchService
func NewBranchService(branches repository.BranchRepository) BranchService {
	return &branchService{branches: branches}
}

func (s *branchService) CreateBranch(ownerID string, req *domain.CreateBranchRequest) (*domain.Branch, error) {
	required := req.RequiredApprovals
	if required < 1 {
		required = 1
	}

	branch := &domain.Branch{
		Name:              req.Name,
		Description:       req.Description,
		State:             domain.BranchDraft,
		OwnerID:           ownerID,
		Reviewers:         req.Reviewers,
		Collaborators:     req.Collaborators,
		RequiredApprovals: required,
	}
	if err := s.branches.Create(branch); err != nil {
		return nil, err
	}
	return branch, nil
}

func (s *branchService) GetBranch(id uint64) (*domain.Branch, error) {
	branch, err := s.branches.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrBranchNotFound
		}
		return nil, err
	}
	return branch, nil
}

func (s *branchService) GetTrunk() (*domain.Branch, error) {
	branch, err := s.branches.FindTrunk()
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrTrunkNotFound
		}
		return nil, err
	}
	return branch, nil
}

func (s *branchService) ListBranches(state domain.BranchState, ownerID string, page, perPage int) ([]*domain.Branch, int64, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	return s.branches.List(state, ownerID, page, perPage)
}

func (s *branchService) UpdateSettings(branchID uint64, actorID string, actorRoles []string, settings BranchSettings) (*domain.Branch, error) {
	branch, err := s.GetBranch(branchID)
	if err != nil {
		return nil, err
	}

	isAdmin := false
	for _, r := range actorRoles {
		if r == domain.RoleAdmin {
			isAdmin = true
		}
	}
	if branch.OwnerID != actorID && !isAdmin {
		return nil, common.ErrForbidden
	}
	if branch.State != domain.BranchDraft {
		return nil, fmt.Errorf("%w: settings can only change while the branch is in draft", common.ErrInvalidState)
	}

	if settings.Reviewers != nil {
		branch.Reviewers = *settings.Reviewers
	}
	if settings.Collaborators != nil {
		branch.Collaborators = *settings.Collaborators
	}
	if settings.RequiredApprovals != nil && *settings.RequiredApprovals >= 1 {
		branch.RequiredApprovals = *settings.RequiredApprovals
	}

	if err := s.branches.Update(branch); err != nil {
		return nil, err
	}
	return branch, nil
}
