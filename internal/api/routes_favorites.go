package api

import (
	"github.com/gin-gonic/gin"

	"github.com/osanyin/herbal/internal/handlers"
	"github.com/osanyin/herbal/internal/herbs"
	"github.com/osanyin/herbal/internal/services"
)

func registerFavoriteRoutes(api *gin.RouterGroup, svc *services.FavoriteService, repo *herbs.Repository) error {
	handler, err := handlers.NewFavoriteHandler(svc, repo)
	if err != nil {
		return err
	}

	group := api.Group("/favorites")
	{
		group.GET("", handler.List)
		group.POST("", handler.Add)
		group.GET("/:id", handler.Get)
		group.DELETE("/:id", handler.Remove)
		group.PUT("/:id/rating", handler.SetRating)
	}

	return nil
}
