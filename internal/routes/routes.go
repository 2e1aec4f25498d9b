package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/inkline/inkline-backend/internal/handler"
	"github.com/inkline/inkline-backend/internal/middleware"
	"github.com/inkline/inkline-backend/pkg/jwt"
)

// Setup configures all API routes
func Setup(
	router *gin.Engine,
	branchHandler *handler.BranchHandler,
	contentHandler *handler.ContentHandler,
	mergeHandler *handler.MergeHandler,
	rebaseHandler *handler.RebaseHandler,
	jwtManager *jwt.Manager,
) {
	api := router.Group("/api/v1", middleware.JWTAuth(jwtManager))

	branches := api.Group("/branches")
	{
		branches.POST("", branchHandler.Create)
		branches.GET("", branchHandler.List)
		branches.GET("/trunk", branchHandler.GetTrunk)
		branches.GET("/:id", branchHandler.Get)
		branches.PATCH("/:id/settings", branchHandler.UpdateSettings)

		// Lifecycle
		branches.POST("/:id/transitions", branchHandler.Transition)
		branches.GET("/:id/transitions", branchHandler.History)
		branches.GET("/:id/transitions/check", branchHandler.CanTransition)

		// Branch content
		branches.POST("/:id/contents", contentHandler.Create)
		branches.GET("/:id/contents", contentHandler.ListByBranch)
		branches.POST("/:id/contents/shadow", contentHandler.Shadow)

		// Merge preview and conflicts
		branches.GET("/:id/merge/preview", mergeHandler.Preview)
		branches.GET("/:id/merge/history", mergeHandler.History)
		branches.POST("/:id/conflicts/resolve", mergeHandler.ResolveConflict)

		// Rebase sessions
		branches.GET("/:id/rebase", rebaseHandler.State)
		branches.GET("/:id/rebase/preview", rebaseHandler.Preview)
		branches.POST("/:id/rebase", rebaseHandler.Start)
		branches.POST("/:id/rebase/continue", rebaseHandler.Continue)
		branches.DELETE("/:id/rebase", rebaseHandler.Abort)
	}

	contents := api.Group("/contents")
	{
		contents.GET("/:id", contentHandler.Get)
		contents.PUT("/:id", contentHandler.Update)
		contents.DELETE("/:id", contentHandler.Delete)

		// Version chain
		contents.GET("/:id/versions", contentHandler.ListVersions)
		contents.GET("/:id/versions/:versionId", contentHandler.GetVersion)
		contents.POST("/:id/revert", contentHandler.Revert)

		contents.GET("/:id/merge/history", mergeHandler.ContentHistory)
	}
}
