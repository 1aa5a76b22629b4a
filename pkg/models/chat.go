package models

import (
	"time"

	"github.com/google/uuid"
)

// QueryType classifies how a chat message was answered.
type QueryType string

const (
	QueryTypeGeneral          QueryType = "general"
	QueryTypeDataQuery        QueryType = "data_query"
	QueryTypeGrounded         QueryType = "grounded"
	QueryTypeGroundedFallback QueryType = "grounded_fallback"
)

// Source is one citation backing a grounded answer.
type Source struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

type ChatSession struct {
	ID        int64     `db:"id" json:"id"`
	SessionID string    `db:"session_id" json:"session_id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ChatMessage is one stored turn: the user message plus the bot response and
// whatever the router attached to it (SQL, results, grounding sources).
type ChatMessage struct {
	ID                int64     `db:"id" json:"id"`
	SessionID         int64     `db:"session_id" json:"-"`
	Message           string    `db:"message" json:"message"`
	Response          string    `db:"response" json:"response"`
	IsGrounded        bool      `db:"is_grounded" json:"is_grounded"`
	GroundingMetadata *string   `db:"grounding_metadata" json:"grounding_metadata,omitempty"`
	SQLQuery          *string   `db:"sql_query" json:"sql_query,omitempty"`
	QueryResults      *string   `db:"query_results" json:"query_results,omitempty"`
	QueryType         QueryType `db:"query_type" json:"query_type"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
}

// ChatRequest is the inbound chat payload. SessionID is optional; a new
// session is created when it is absent or unknown.
type ChatRequest struct {
	Message   string `json:"message" binding:"required"`
	SessionID string `json:"session_id,omitempty"`
}

// ChatResponse is the envelope returned for every chat turn.
type ChatResponse struct {
	Response     string           `json:"response"`
	SessionID    string           `json:"session_id"`
	IsGrounded   bool             `json:"is_grounded"`
	Sources      []Source         `json:"sources,omitempty"`
	QueryType    QueryType        `json:"query_type"`
	SQLQuery     *string          `json:"sql_query,omitempty"`
	QueryResults []map[string]any `json:"query_results,omitempty"`
}
