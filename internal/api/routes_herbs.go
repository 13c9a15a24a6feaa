package api

import (
	"github.com/gin-gonic/gin"

	"github.com/osanyin/herbal/internal/handlers"
	"github.com/osanyin/herbal/internal/herbs"
)

func registerHerbRoutes(api *gin.RouterGroup, repo *herbs.Repository) error {
	handler, err := handlers.NewHerbHandler(repo)
	if err != nil {
		return err
	}

	group := api.Group("/herbs")
	{
		group.GET("", handler.List)
		group.GET("/categories", handler.Categories)
		group.GET("/status", handler.Status)
		group.POST("/fetch", handler.Fetch)
		group.POST("/refresh", handler.Refresh)
		group.GET("/:id", handler.Get)
	}

	return nil
}
