package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/osanyin/herbal/pkg/response"
)

// Health returns a simple status payload useful for readiness checks. When a
// database handle is supplied its connectivity is reported alongside.
func Health(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		payload := gin.H{"status": "ok"}

		if db != nil {
			payload["database"] = "ok"
			if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(requestContext(c)) != nil {
				payload["database"] = "unavailable"
			}
		}

		response.Success(c, http.StatusOK, payload)
	}
}
