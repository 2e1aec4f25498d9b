package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/inkline/inkline-backend/internal/common"
	"github.com/inkline/inkline-backend/internal/domain"
	"github.com/inkline/inkline-backend/internal/middleware"
	"github.com/inkline/inkline-backend/internal/repository"
	"github.com/inkline/inkline-backend/internal/service"
)

// MergeHandler handles merge preview, conflict resolution and the
// convergence ledger. Merging itself runs through the PUBLISH transition.
type MergeHandler struct {
	branches  service.BranchService
	conflicts service.ConflictService
	history   repository.MergeHistoryRepository
}

// NewMergeHandler creates a new MergeHandler
func NewMergeHandler(branches service.BranchService, conflicts service.ConflictService, history repository.MergeHistoryRepository) *MergeHandler {
	return &MergeHandler{branches: branches, conflicts: conflicts, history: history}
}

// Preview handles GET /api/v1/branches/:id/merge/preview
func (h *MergeHandler) Preview(c *gin.Context) {
	branchID, ok := parseID(c, "id")
	if !ok {
		return
	}

	trunk, err := h.branches.GetTrunk()
	if err != nil {
		respondError(c, err)
		return
	}

	preview, err := h.conflicts.DetectConflicts(branchID, trunk.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	middleware.CountConflictsDetected(len(preview.Conflicts))
	common.Success(c, preview)
}

// ResolveConflict handles POST /api/v1/branches/:id/conflicts/resolve
func (h *MergeHandler) ResolveConflict(c *gin.Context) {
	branchID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req domain.ResolveConflictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Error(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.conflicts.ResolveConflict(branchID, &req, middleware.GetActorID(c)); err != nil {
		respondError(c, err)
		return
	}
	common.Success(c, gin.H{"resolved": true, "content_id": req.ContentID})
}

// History handles GET /api/v1/branches/:id/merge/history
func (h *MergeHandler) History(c *gin.Context) {
	branchID, ok := parseID(c, "id")
	if !ok {
		return
	}

	entries, err := h.history.FindBySourceBranch(branchID)
	if err != nil {
		respondError(c, err)
		return
	}
	common.Success(c, entries)
}

// ContentHistory handles GET /api/v1/contents/:id/merge/history
func (h *MergeHandler) ContentHistory(c *gin.Context) {
	contentID, ok := parseID(c, "id")
	if !ok {
		return
	}

	entries, err := h.history.FindByContent(contentID, 50)
	if err != nil {
		respondError(c, err)
		return
	}
	common.Success(c, entries)
}
