package handlers

import (
	"net/http"

	"housing-data-go/pkg/chat"

	"github.com/gin-gonic/gin"
)

// sampleQueries are example questions shown to clients when the dataset is
// available.
var sampleQueries = []string{
	"What are the top 10 most expensive cities?",
	"Show me cities in California with high rent prices",
	"Which states have the lowest income limits?",
	"Find cities where median rent is above $3000",
	"Compare rent prices between Texas and Florida",
}

// DatabaseInfo reports the dataset's availability, schema and row count.
func DatabaseInfo(store chat.DatasetStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if !store.Available(ctx) {
			c.JSON(http.StatusOK, gin.H{
				"available": false,
				"message":   "Database not available. Please run data scraping first.",
			})
			return
		}

		schema, err := store.Schema(ctx)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to read dataset schema"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"available":      true,
			"total_rows":     schema.TotalRows,
			"columns":        schema.Columns,
			"sample_queries": sampleQueries,
		})
	}
}
