package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/inkline/inkline-backend/internal/common"
)

// respondError maps service-layer sentinel errors onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, common.ErrBranchNotFound),
		errors.Is(err, common.ErrContentNotFound),
		errors.Is(err, common.ErrVersionNotFound),
		errors.Is(err, common.ErrTrunkNotFound),
		errors.Is(err, common.ErrNoRebaseSession),
		errors.Is(err, common.ErrNotFound):
		common.Error(c, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, common.ErrForbidden):
		common.Error(c, http.StatusForbidden, err.Error(), nil)
	case errors.Is(err, common.ErrVersionConflict),
		errors.Is(err, common.ErrVersionCollision),
		errors.Is(err, common.ErrMergeConflict),
		errors.Is(err, common.ErrRebaseInProgress),
		errors.Is(err, common.ErrUnresolvedConflicts),
		errors.Is(err, common.ErrInvalidState):
		common.Error(c, http.StatusConflict, err.Error(), nil)
	case errors.Is(err, common.ErrInvalidInput),
		errors.Is(err, common.ErrNoConflict):
		common.Error(c, http.StatusBadRequest, err.Error(), nil)
	default:
		common.Error(c, http.StatusInternalServerError, "Internal server error", err)
	}
}
