package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"

	"housing-data-go/pkg/api/middleware"
	"housing-data-go/pkg/db"
	"housing-data-go/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CreateUser registers a new account. The generated API key is returned
// once in this response and never again.
func CreateUser(database *db.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.UserCreate
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
			return
		}

		apiKey, err := generateAPIKey()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to generate API key"})
			return
		}

		user, err := database.CreateUser(c.Request.Context(), req, apiKey)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to create user"})
			return
		}

		c.JSON(http.StatusCreated, gin.H{"user": user, "api_key": apiKey})
	}
}

// GetCurrentUser returns the authenticated caller.
func GetCurrentUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := middleware.CurrentUser(c)
		if user == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"detail": "authentication required"})
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

// ListUsers returns every account. Admin only.
func ListUsers(database *db.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		users, err := database.ListUsers(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to list users"})
			return
		}
		if users == nil {
			users = []models.User{}
		}
		c.JSON(http.StatusOK, gin.H{"users": users})
	}
}

// UpdateUser applies a partial role/approval update. Admin only.
func UpdateUser(database *db.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUserID(c)
		if !ok {
			return
		}
		var req models.UserUpdate
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
			return
		}

		if _, err := database.UpdateUser(c.Request.Context(), id, req); err != nil {
			respondUserError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "User updated successfully"})
	}
}

// ApproveUser marks an account approved. Admin only.
func ApproveUser(database *db.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUserID(c)
		if !ok {
			return
		}
		approved := true
		if _, err := database.UpdateUser(c.Request.Context(), id, models.UserUpdate{IsApproved: &approved}); err != nil {
			respondUserError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "User approved successfully"})
	}
}

// PromoteToAdmin grants the admin role. Admin only.
func PromoteToAdmin(database *db.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUserID(c)
		if !ok {
			return
		}
		role := models.RoleAdmin
		user, err := database.UpdateUser(c.Request.Context(), id, models.UserUpdate{Role: &role})
		if err != nil {
			respondUserError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "User " + user.Username + " promoted to admin successfully"})
	}
}

// DeleteUser removes an account. Self-deletion and deleting the last admin
// are rejected. Admin only.
func DeleteUser(database *db.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUserID(c)
		if !ok {
			return
		}
		caller := middleware.CurrentUser(c)
		if caller != nil && caller.ID == id {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "You cannot delete your own account"})
			return
		}

		target, err := database.GetUserByID(c.Request.Context(), id)
		if err != nil {
			respondUserError(c, err)
			return
		}
		if target.IsAdmin() {
			admins, err := database.CountAdmins(c.Request.Context())
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to count admins"})
				return
			}
			if admins <= 1 {
				c.JSON(http.StatusBadRequest, gin.H{
					"detail": "Cannot delete the last admin account. System must have at least one admin.",
				})
				return
			}
		}

		if err := database.DeleteUser(c.Request.Context(), id); err != nil {
			respondUserError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"message": "User '" + target.Username + "' deleted successfully",
		})
	}
}

func parseUserID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid user id"})
		return uuid.Nil, false
	}
	return id, true
}

func respondUserError(c *gin.Context, err error) {
	if errors.Is(err, db.ErrUserNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"detail": "User not found"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"detail": "database error"})
}

// generateAPIKey generates a random 32-byte hex string
func generateAPIKey() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
