package client

import (
	"fmt"
	"net/http"

	"housing-data-go/pkg/models"
)

// Chat sends one message and returns the response envelope. Pass the
// session id from the previous turn to stay in the same conversation.
func (c *Client) Chat(message, sessionID string) (*models.ChatResponse, error) {
	var resp models.ChatResponse
	payload := models.ChatRequest{Message: message, SessionID: sessionID}
	if err := c.doJSONRequest(http.MethodPost, "/chat", payload, &resp); err != nil {
		return nil, fmt.Errorf("chat request failed: %w", err)
	}
	return &resp, nil
}

// DatabaseInfo describes the server's dataset state
type DatabaseInfo struct {
	Available     bool                   `json:"available"`
	TotalRows     int                    `json:"total_rows"`
	Columns       []models.DatasetColumn `json:"columns"`
	SampleQueries []string               `json:"sample_queries"`
	Message       string                 `json:"message"`
}

// GetDatabaseInfo fetches the dataset availability and schema
func (c *Client) GetDatabaseInfo() (*DatabaseInfo, error) {
	var info DatabaseInfo
	if err := c.doGetRequest("/database/info", &info); err != nil {
		return nil, fmt.Errorf("failed to get database info: %w", err)
	}
	return &info, nil
}
