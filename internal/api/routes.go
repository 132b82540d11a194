package api

import (
	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine, handler *Handler) {
	api := router.Group("/api")
	{
		api.POST("/search", handler.SearchProperties)
		api.GET("/property/:id", handler.GetProperty)
		api.GET("/options/:column", handler.GetOptions)
		api.GET("/profile", handler.GetProfile)
		api.POST("/agent/search", handler.AgentSearch)
		api.GET("/districts", handler.GetWardHulls)

		api.POST("/scrape", handler.TriggerScrape)
		api.POST("/revalidate", handler.TriggerRevalidate)
		api.POST("/reload", handler.TriggerReload)
		api.POST("/admin/delete-all", handler.DeleteAllListings)
	}
}
