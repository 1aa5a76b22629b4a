package db

import (
	"context"
	"errors"
	"fmt"

	"housing-data-go/pkg/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrSessionNotFound is returned when a session lookup matches nothing for
// the requesting user.
var ErrSessionNotFound = errors.New("chat session not found")

// FindSession returns the user's session with the given public id, or nil
// when no such session exists for them.
func (db *DB) FindSession(ctx context.Context, sessionID string, userID uuid.UUID) (*models.ChatSession, error) {
	var session models.ChatSession
	err := db.Pool.QueryRow(ctx,
		`SELECT id, session_id, user_id, created_at, updated_at
		 FROM chat_sessions WHERE session_id = $1 AND user_id = $2`,
		sessionID, userID,
	).Scan(&session.ID, &session.SessionID, &session.UserID, &session.CreatedAt, &session.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find chat session: %w", err)
	}
	return &session, nil
}

// CreateSession opens a new chat session for the user.
func (db *DB) CreateSession(ctx context.Context, userID uuid.UUID) (*models.ChatSession, error) {
	var session models.ChatSession
	err := db.Pool.QueryRow(ctx,
		`INSERT INTO chat_sessions (user_id)
		 VALUES ($1)
		 RETURNING id, session_id, user_id, created_at, updated_at`,
		userID,
	).Scan(&session.ID, &session.SessionID, &session.UserID, &session.CreatedAt, &session.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat session: %w", err)
	}
	return &session, nil
}

// TouchSession bumps the session's updated_at.
func (db *DB) TouchSession(ctx context.Context, id int64) error {
	_, err := db.Pool.Exec(ctx,
		`UPDATE chat_sessions SET updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to touch chat session: %w", err)
	}
	return nil
}

// SaveMessage persists one chat turn.
func (db *DB) SaveMessage(ctx context.Context, msg *models.ChatMessage) error {
	err := db.Pool.QueryRow(ctx,
		`INSERT INTO chat_messages
		 (session_id, message, response, is_grounded, grounding_metadata, sql_query, query_results, query_type)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at`,
		msg.SessionID, msg.Message, msg.Response, msg.IsGrounded,
		msg.GroundingMetadata, msg.SQLQuery, msg.QueryResults, msg.QueryType,
	).Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save chat message: %w", err)
	}
	return nil
}

// ListSessions returns the user's sessions, most recently active first.
func (db *DB) ListSessions(ctx context.Context, userID uuid.UUID) ([]models.ChatSession, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, session_id, user_id, created_at, updated_at
		 FROM chat_sessions WHERE user_id = $1
		 ORDER BY updated_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list chat sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.ChatSession
	for rows.Next() {
		var s models.ChatSession
		if err := rows.Scan(&s.ID, &s.SessionID, &s.UserID, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat session: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// SessionMessages returns all messages of one of the user's sessions in
// chronological order.
func (db *DB) SessionMessages(ctx context.Context, sessionID string, userID uuid.UUID) ([]models.ChatMessage, error) {
	session, err := db.FindSession(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	rows, err := db.Pool.Query(ctx,
		`SELECT id, session_id, message, response, is_grounded, grounding_metadata,
		        sql_query, query_results, query_type, created_at
		 FROM chat_messages WHERE session_id = $1
		 ORDER BY created_at`,
		session.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list chat messages: %w", err)
	}
	defer rows.Close()

	var messages []models.ChatMessage
	for rows.Next() {
		var m models.ChatMessage
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Message, &m.Response, &m.IsGrounded,
			&m.GroundingMetadata, &m.SQLQuery, &m.QueryResults, &m.QueryType, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// DeleteSession removes one of the user's sessions and its messages.
func (db *DB) DeleteSession(ctx context.Context, sessionID string, userID uuid.UUID) error {
	tag, err := db.Pool.Exec(ctx,
		`DELETE FROM chat_sessions WHERE session_id = $1 AND user_id = $2`,
		sessionID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete chat session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}
