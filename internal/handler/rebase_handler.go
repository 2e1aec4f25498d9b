package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/inkline/inkline-backend/internal/common"
	"github.com/inkline/inkline-backend/internal/middleware"
	"github.com/inkline/inkline-backend/internal/service"
)

// RebaseHandler handles rebase session requests
type RebaseHandler struct {
	rebase service.RebaseService
}

// NewRebaseHandler creates a new RebaseHandler
func NewRebaseHandler(rebase service.RebaseService) *RebaseHandler {
	return &RebaseHandler{rebase: rebase}
}

// Preview handles GET /api/v1/branches/:id/rebase/preview
func (h *RebaseHandler) Preview(c *gin.Context) {
	branchID, ok := parseID(c, "id")
	if !ok {
		return
	}

	preview, err := h.rebase.PreviewRebase(branchID)
	if err != nil {
		respondError(c, err)
		return
	}
	middleware.CountConflictsDetected(len(preview.Conflicts))
	common.Success(c, preview)
}

// Start handles POST /api/v1/branches/:id/rebase
func (h *RebaseHandler) Start(c *gin.Context) {
	branchID, ok := parseID(c, "id")
	if !ok {
		return
	}

	result, err := h.rebase.Rebase(branchID, middleware.GetActorID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	common.Success(c, result)
}

// Continue handles POST /api/v1/branches/:id/rebase/continue
func (h *RebaseHandler) Continue(c *gin.Context) {
	branchID, ok := parseID(c, "id")
	if !ok {
		return
	}

	result, err := h.rebase.ContinueRebase(branchID, middleware.GetActorID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	common.Success(c, result)
}

// Abort handles DELETE /api/v1/branches/:id/rebase
func (h *RebaseHandler) Abort(c *gin.Context) {
	branchID, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.rebase.AbortRebase(branchID); err != nil {
		respondError(c, err)
		return
	}
	common.Success(c, gin.H{"aborted": true})
}

// State handles GET /api/v1/branches/:id/rebase
func (h *RebaseHandler) State(c *gin.Context) {
	branchID, ok := parseID(c, "id")
	if !ok {
		return
	}

	state, err := h.rebase.GetRebaseState(branchID)
	if err != nil {
		respondError(c, err)
		return
	}
	common.Success(c, state)
}
