package handlers

import (
	"net/http"
	"time"

	"go-biz-agent/internal/access"
	"go-biz-agent/internal/database"

	"github.com/gin-gonic/gin"
)

// --- GET /api/reports/orders ---
// Revenue and order count for a project over a date range
// (start/end as YYYY-MM-DD, defaulting to the last 30 days).
func GetOrderReport(c *gin.Context) {
	projectID := queryUint(c, "project_id")
	if err := access.RequireMember(database.DB, currentUserID(c), projectID); err != nil {
		fail(c, err)
		return
	}

	end := time.Now()
	start := end.AddDate(0, 0, -30)

	if raw := c.Query("start"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "start must be YYYY-MM-DD"})
			return
		}
		start = parsed
	}
	if raw := c.Query("end"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "end must be YYYY-MM-DD"})
			return
		}
		end = parsed.Add(23*time.Hour + 59*time.Minute)
	}

	report, err := database.GetOrderReport(database.DB, projectID, start, end)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to calculate report"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total_revenue": report.TotalRevenue,
		"total_orders":  report.TotalCount,
	})
}
