package handlers

import (
	"errors"
	"net/http"

	"housing-data-go/pkg/api/middleware"
	"housing-data-go/pkg/chat"
	"housing-data-go/pkg/db"
	"housing-data-go/pkg/models"

	"github.com/gin-gonic/gin"
)

// Chat routes one message through the chat router.
func Chat(router *chat.Router) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := middleware.CurrentUser(c)
		if user == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"detail": "authentication required"})
			return
		}

		var req models.ChatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
			return
		}

		resp, err := router.Handle(c.Request.Context(), user.ID, req)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to process chat message"})
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

// ListChatSessions returns the caller's sessions, most recent first.
func ListChatSessions(database *db.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := middleware.CurrentUser(c)
		sessions, err := database.ListSessions(c.Request.Context(), user.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to list chat sessions"})
			return
		}
		if sessions == nil {
			sessions = []models.ChatSession{}
		}
		c.JSON(http.StatusOK, gin.H{"sessions": sessions})
	}
}

// ChatHistory returns the messages of one of the caller's sessions.
func ChatHistory(database *db.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := middleware.CurrentUser(c)
		messages, err := database.SessionMessages(c.Request.Context(), c.Param("session_id"), user.ID)
		if err != nil {
			if errors.Is(err, db.ErrSessionNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"detail": "Chat session not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to load chat history"})
			return
		}
		if messages == nil {
			messages = []models.ChatMessage{}
		}
		c.JSON(http.StatusOK, gin.H{"messages": messages})
	}
}

// DeleteChatSession removes one of the caller's sessions and its messages.
func DeleteChatSession(database *db.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := middleware.CurrentUser(c)
		err := database.DeleteSession(c.Request.Context(), c.Param("session_id"), user.ID)
		if err != nil {
			if errors.Is(err, db.ErrSessionNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"detail": "Chat session not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to delete chat session"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Chat session deleted successfully"})
	}
}
