package db

import (
	"context"
	"fmt"
	"math"

	"housing-data-go/pkg/models"

	"github.com/google/uuid"
)

// UserStats aggregates the users table for the admin dashboard.
type UserStats struct {
	Total    int `json:"total"`
	Approved int `json:"approved"`
	Pending  int `json:"pending"`
	Admins   int `json:"admins"`
}

// ChatStats aggregates chat activity, globally or per user.
type ChatStats struct {
	TotalSessions       int     `json:"total_sessions"`
	TotalMessages       int     `json:"total_messages"`
	GroundedMessages    int     `json:"grounded_messages"`
	DataQueries         int     `json:"data_queries"`
	GroundingPercentage float64 `json:"grounding_percentage"`
}

// GetUserStats computes the user aggregates in one round trip.
func (db *DB) GetUserStats(ctx context.Context) (*UserStats, error) {
	var s UserStats
	err := db.Pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE is_approved),
		        COUNT(*) FILTER (WHERE NOT is_approved),
		        COUNT(*) FILTER (WHERE role = $1)
		 FROM users`, models.RoleAdmin,
	).Scan(&s.Total, &s.Approved, &s.Pending, &s.Admins)
	if err != nil {
		return nil, fmt.Errorf("failed to compute user stats: %w", err)
	}
	return &s, nil
}

// GetChatStats computes chat aggregates across all users.
func (db *DB) GetChatStats(ctx context.Context) (*ChatStats, error) {
	var s ChatStats
	err := db.Pool.QueryRow(ctx,
		`SELECT (SELECT COUNT(*) FROM chat_sessions),
		        COUNT(*),
		        COUNT(*) FILTER (WHERE is_grounded),
		        COUNT(*) FILTER (WHERE query_type = $1)
		 FROM chat_messages`, models.QueryTypeDataQuery,
	).Scan(&s.TotalSessions, &s.TotalMessages, &s.GroundedMessages, &s.DataQueries)
	if err != nil {
		return nil, fmt.Errorf("failed to compute chat stats: %w", err)
	}
	s.GroundingPercentage = groundingPercentage(s.GroundedMessages, s.TotalMessages)
	return &s, nil
}

// GetUserChatStats computes chat aggregates for one user.
func (db *DB) GetUserChatStats(ctx context.Context, userID uuid.UUID) (*ChatStats, error) {
	var s ChatStats
	err := db.Pool.QueryRow(ctx,
		`SELECT (SELECT COUNT(*) FROM chat_sessions WHERE user_id = $1),
		        COUNT(m.*),
		        COUNT(m.*) FILTER (WHERE m.is_grounded),
		        COUNT(m.*) FILTER (WHERE m.query_type = $2)
		 FROM chat_messages m
		 JOIN chat_sessions cs ON cs.id = m.session_id
		 WHERE cs.user_id = $1`,
		userID, models.QueryTypeDataQuery,
	).Scan(&s.TotalSessions, &s.TotalMessages, &s.GroundedMessages, &s.DataQueries)
	if err != nil {
		return nil, fmt.Errorf("failed to compute user chat stats: %w", err)
	}
	s.GroundingPercentage = groundingPercentage(s.GroundedMessages, s.TotalMessages)
	return &s, nil
}

func groundingPercentage(grounded, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(grounded)/float64(total)*10000) / 100
}
