package handlers

import (
	"net/http"
	"os"

	"go-biz-agent/internal/access"
	"go-biz-agent/internal/ai"
	"go-biz-agent/internal/database"

	"github.com/gin-gonic/gin"
)

type AskRequest struct {
	ProjectID uint   `json:"project_id" binding:"required"`
	Message   string `json:"message" binding:"required"`
}

// --- POST /api/ask ---
func AskAI(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message and project are required"})
		return
	}

	// The assistant reads project data, so membership applies here too
	if err := access.RequireMember(database.DB, currentUserID(c), req.ProjectID); err != nil {
		fail(c, err)
		return
	}

	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server missing Gemini API Key"})
		return
	}

	response, err := ai.RunAgent(req.ProjectID, req.Message, apiKey)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"reply": response})
}
