package handlers

import (
	"net/http"
	"time"

	"housing-data-go/pkg/chat"
	"housing-data-go/pkg/db"

	"github.com/gin-gonic/gin"
)

// HealthCheck reports the liveness of the app database and the dataset.
func HealthCheck(database *db.DB, store chat.DatasetStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		dbStatus := "healthy"
		if err := database.Ping(ctx); err != nil {
			dbStatus = "unhealthy: " + err.Error()
		}

		dataStatus := "healthy"
		if !store.Available(ctx) {
			dataStatus = "unavailable: no data table found"
		}

		status := "healthy"
		if dbStatus != "healthy" {
			status = "degraded"
		}
		c.JSON(http.StatusOK, gin.H{
			"status":    status,
			"timestamp": time.Now().UTC(),
			"services": gin.H{
				"database":      dbStatus,
				"data_database": dataStatus,
			},
		})
	}
}
