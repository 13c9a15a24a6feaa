package api

import (
	"github.com/gin-gonic/gin"

	"github.com/osanyin/herbal/internal/handlers"
	"github.com/osanyin/herbal/internal/services"
)

func registerInteractionRoutes(api *gin.RouterGroup, svc *services.InteractionService) error {
	handler, err := handlers.NewInteractionHandler(svc)
	if err != nil {
		return err
	}

	group := api.Group("/interactions")
	{
		group.POST("/check", handler.Check)
		group.GET("/history", handler.History)
	}

	return nil
}
