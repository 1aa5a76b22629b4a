package handlers

import (
	"net/http"

	"housing-data-go/pkg/api/middleware"
	"housing-data-go/pkg/chat"
	"housing-data-go/pkg/db"

	"github.com/gin-gonic/gin"
)

// DashboardStats aggregates system-wide activity for admins.
func DashboardStats(database *db.DB, store chat.DatasetStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		userStats, err := database.GetUserStats(ctx)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to compute user stats"})
			return
		}
		chatStats, err := database.GetChatStats(ctx)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to compute chat stats"})
			return
		}
		recent, err := database.RecentLogs(ctx, 5)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to load recent runs"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"users":           userStats,
			"chat":            chatStats,
			"database":        datasetSummary(c, store),
			"recent_scraping": recent,
		})
	}
}

// UserDashboardStats aggregates the caller's own chat activity.
func UserDashboardStats(database *db.DB, store chat.DatasetStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := middleware.CurrentUser(c)
		chatStats, err := database.GetUserChatStats(c.Request.Context(), user.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to compute chat stats"})
			return
		}
		sessions, err := database.ListSessions(c.Request.Context(), user.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to list sessions"})
			return
		}
		if len(sessions) > 5 {
			sessions = sessions[:5]
		}

		c.JSON(http.StatusOK, gin.H{
			"chat":            chatStats,
			"database":        datasetSummary(c, store),
			"recent_sessions": sessions,
		})
	}
}

func datasetSummary(c *gin.Context, store chat.DatasetStore) gin.H {
	ctx := c.Request.Context()
	if !store.Available(ctx) {
		return gin.H{"available": false, "total_rows": 0}
	}
	schema, err := store.Schema(ctx)
	if err != nil {
		return gin.H{"available": false, "total_rows": 0}
	}
	return gin.H{"available": true, "total_rows": schema.TotalRows}
}
