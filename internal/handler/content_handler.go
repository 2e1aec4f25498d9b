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

// ContentHandler handles content item and version chain requests
type ContentHandler struct {
	contents service.ContentService
	versions service.VersionService
}

// NewContentHandler creates a new ContentHandler
func NewContentHandler(contents service.ContentService, versions service.VersionService) *ContentHandler {
	return &ContentHandler{contents: contents, versions: versions}
}

// Create handles POST /api/v1/branches/:id/contents
func (h *ContentHandler) Create(c *gin.Context) {
	branchID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req domain.CreateContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Error(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	content, err := h.contents.CreateContent(branchID, middleware.GetActorID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	common.Created(c, content)
}

// ShadowRequest is the request body for pulling a trunk item into a branch
type ShadowRequest struct {
	TrunkContentID uint64 `json:"trunk_content_id" binding:"required"`
}

// Shadow handles POST /api/v1/branches/:id/contents/shadow
func (h *ContentHandler) Shadow(c *gin.Context) {
	branchID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req ShadowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Error(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	content, err := h.contents.ShadowTrunkContent(branchID, req.TrunkContentID, middleware.GetActorID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	common.Created(c, content)
}

// ListByBranch handles GET /api/v1/branches/:id/contents
func (h *ContentHandler) ListByBranch(c *gin.Context) {
	branchID, ok := parseID(c, "id")
	if !ok {
		return
	}

	contents, err := h.contents.ListByBranch(branchID)
	if err != nil {
		respondError(c, err)
		return
	}
	common.Success(c, contents)
}

// Get handles GET /api/v1/contents/:id
func (h *ContentHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	content, err := h.contents.GetContent(id)
	if err != nil {
		respondError(c, err)
		return
	}
	common.Success(c, content)
}

// Update handles PUT /api/v1/contents/:id
func (h *ContentHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req domain.UpdateContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Error(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	version, err := h.contents.UpdateDraft(id, middleware.GetActorID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	common.Success(c, version)
}

// Delete handles DELETE /api/v1/contents/:id
func (h *ContentHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.contents.DeleteDraft(id, middleware.GetActorID(c)); err != nil {
		respondError(c, err)
		return
	}
	common.Success(c, gin.H{"deleted": true})
}

// ListVersions handles GET /api/v1/contents/:id/versions
func (h *ContentHandler) ListVersions(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))

	versions, total, err := h.versions.GetVersions(id, page, perPage)
	if err != nil {
		respondError(c, err)
		return
	}
	common.SuccessWithMeta(c, versions, common.NewMeta(page, perPage, total))
}

// GetVersion handles GET /api/v1/contents/:id/versions/:versionId
func (h *ContentHandler) GetVersion(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	versionID, ok := parseID(c, "versionId")
	if !ok {
		return
	}

	version, err := h.versions.GetVersion(id, versionID)
	if err != nil {
		respondError(c, err)
		return
	}
	common.Success(c, version)
}

// RevertRequest is the request body for reverting a content item
type RevertRequest struct {
	TargetVersionID   uint64 `json:"target_version_id" binding:"required"`
	ChangeDescription string `json:"change_description"`
}

// Revert handles POST /api/v1/contents/:id/revert
func (h *ContentHandler) Revert(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req RevertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Error(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	version, err := h.versions.Revert(id, req.TargetVersionID, req.ChangeDescription, middleware.GetActorID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	common.Created(c, version)
}
