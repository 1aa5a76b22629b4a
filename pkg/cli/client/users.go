package client

import (
	"fmt"
	"net/http"

	"housing-data-go/pkg/models"
)

// RegisterUserRequest represents the request payload for creating a user
type RegisterUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// RegisterUserResponse carries the created user and their one-time API key
type RegisterUserResponse struct {
	User   models.User `json:"user"`
	APIKey string      `json:"api_key"`
}

// RegisterUser creates a new user and returns the user with API key
func (c *Client) RegisterUser(username, email string) (*RegisterUserResponse, error) {
	var resp RegisterUserResponse
	payload := RegisterUserRequest{Username: username, Email: email}
	if err := c.doJSONRequest(http.MethodPost, "/users", payload, &resp); err != nil {
		return nil, fmt.Errorf("failed to register user: %w", err)
	}
	return &resp, nil
}

// Me returns the authenticated user
func (c *Client) Me() (*models.User, error) {
	var user models.User
	if err := c.doGetRequest("/users/me", &user); err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}
	return &user, nil
}
