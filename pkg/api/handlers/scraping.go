package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"housing-data-go/pkg/api/middleware"
	"housing-data-go/pkg/pipeline"

	"github.com/gin-gonic/gin"
)

// StartScraping launches a pipeline run. Fails with 400 while a run is
// active.
func StartScraping(orch *pipeline.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := middleware.CurrentUser(c)
		if user == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"detail": "authentication required"})
			return
		}

		if err := orch.Start(c.Request.Context(), user.ID); err != nil {
			if errors.Is(err, pipeline.ErrAlreadyRunning) {
				c.JSON(http.StatusBadRequest, gin.H{"detail": "Scraping is already running"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Scraping started successfully", "status": "running"})
	}
}

// StopScraping requests cancellation of the active run. Calling it when no
// run is active is a no-op.
func StopScraping(orch *pipeline.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		job := orch.Stop()
		c.JSON(http.StatusOK, gin.H{"message": "Stop requested", "status": job.Status})
	}
}

// ScrapingStatus returns the current job snapshot.
func ScrapingStatus(orch *pipeline.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, orch.Status())
	}
}

// ScrapingLogs returns one page of run history.
func ScrapingLogs(orch *pipeline.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

		logs, total, err := orch.Logs(c.Request.Context(), page, limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to load scraping logs"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"logs":  logs,
			"total": total,
			"page":  page,
			"limit": limit,
		})
	}
}
