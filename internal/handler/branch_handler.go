package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/inkline/inkline-backend/internal/common"
	"github.com/inkline/inkline-backend/internal/domain"
	"github.com/inkline/inkline-backend/internal/middleware"
	"github.com/inkline/inkline-backend/internal/service"
)

// BranchHandler handles branch workspace and lifecycle requests
type BranchHandler struct {
	branches  service.BranchService
	lifecycle service.LifecycleService
}

// NewBranchHandler creates a new BranchHandler
func NewBranchHandler(branches service.BranchService, lifecycle service.LifecycleService) *BranchHandler {
	return &BranchHandler{branches: branches, lifecycle: lifecycle}
}

func parseID(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		common.Error(c, http.StatusBadRequest, "Invalid "+name, err)
		return 0, false
	}
	return id, true
}

// Create handles POST /api/v1/branches
func (h *BranchHandler) Create(c *gin.Context) {
	var req domain.CreateBranchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Error(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	branch, err := h.branches.CreateBranch(middleware.GetActorID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	common.Created(c, branch)
}

// Get handles GET /api/v1/branches/:id
func (h *BranchHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	branch, err := h.branches.GetBranch(id)
	if err != nil {
		respondError(c, err)
		return
	}
	common.Success(c, branch)
}

// GetTrunk handles GET /api/v1/branches/trunk
func (h *BranchHandler) GetTrunk(c *gin.Context) {
	branch, err := h.branches.GetTrunk()
	if err != nil {
		respondError(c, err)
		return
	}
	common.Success(c, branch)
}

// List handles GET /api/v1/branches
func (h *BranchHandler) List(c *gin.Context) {
	state := domain.BranchState(c.Query("state"))
	ownerID := c.Query("owner_id")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))

	branches, total, err := h.branches.ListBranches(state, ownerID, page, perPage)
	if err != nil {
		respondError(c, err)
		return
	}
	common.SuccessWithMeta(c, branches, common.NewMeta(page, perPage, total))
}

// UpdateSettingsRequest is the request body for PATCH /branches/:id/settings
type UpdateSettingsRequest struct {
	Reviewers         *[]string `json:"reviewers"`
	Collaborators     *[]string `json:"collaborators"`
	RequiredApprovals *int      `json:"required_approvals"`
}

// UpdateSettings handles PATCH /api/v1/branches/:id/settings
func (h *BranchHandler) UpdateSettings(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Error(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	branch, err := h.branches.UpdateSettings(id, middleware.GetActorID(c), middleware.GetActorRoles(c), service.BranchSettings{
		Reviewers:         req.Reviewers,
		Collaborators:     req.Collaborators,
		RequiredApprovals: req.RequiredApprovals,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	common.Success(c, branch)
}

// TransitionRequest is the request body for POST /branches/:id/transitions
type TransitionRequest struct {
	Event  domain.TransitionEvent `json:"event" binding:"required"`
	Reason string                 `json:"reason"`
}

// Transition handles POST /api/v1/branches/:id/transitions
func (h *BranchHandler) Transition(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Error(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	result, err := h.lifecycle.ExecuteTransition(service.TransitionInput{
		BranchID:   id,
		Event:      req.Event,
		ActorID:    middleware.GetActorID(c),
		ActorRoles: middleware.GetActorRoles(c),
		Reason:     req.Reason,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	if result.Allowed && result.ToState == domain.BranchArchived && req.Event == domain.EventPublish {
		middleware.CountBranchPublished()
	}
	common.Success(c, result)
}

// CanTransition handles GET /api/v1/branches/:id/transitions/check?event=...
func (h *BranchHandler) CanTransition(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	event := domain.TransitionEvent(c.Query("event"))
	if event == "" {
		common.Error(c, http.StatusBadRequest, "Missing event parameter", nil)
		return
	}

	result, err := h.lifecycle.CanTransition(service.TransitionInput{
		BranchID:   id,
		Event:      event,
		ActorID:    middleware.GetActorID(c),
		ActorRoles: middleware.GetActorRoles(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	common.Success(c, result)
}

// History handles GET /api/v1/branches/:id/transitions
func (h *BranchHandler) History(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	history, err := h.lifecycle.GetHistory(id, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	common.Success(c, history)
}
