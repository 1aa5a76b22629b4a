package db

import (
	"context"
	"fmt"

	"housing-data-go/pkg/models"
)

// CreateLog inserts a new pipeline run row and returns its id.
func (db *DB) CreateLog(ctx context.Context, log *models.ScrapingLog) (int64, error) {
	var id int64
	err := db.Pool.QueryRow(ctx,
		`INSERT INTO scraping_logs
		 (status, started_by, started_at, records_processed, current_step, total_steps, step_name)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		log.Status, log.StartedBy, log.StartedAt,
		log.RecordsProcessed, log.CurrentStep, log.TotalSteps, log.StepName,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create scraping log: %w", err)
	}
	return id, nil
}

// UpdateLog finalizes the run row identified by log.ID.
func (db *DB) UpdateLog(ctx context.Context, log *models.ScrapingLog) error {
	_, err := db.Pool.Exec(ctx,
		`UPDATE scraping_logs
		 SET status = $2, completed_at = $3, error_message = $4,
		     records_processed = $5, current_step = $6, step_name = $7
		 WHERE id = $1`,
		log.ID, log.Status, log.CompletedAt, log.ErrorMessage,
		log.RecordsProcessed, log.CurrentStep, log.StepName,
	)
	if err != nil {
		return fmt.Errorf("failed to update scraping log: %w", err)
	}
	return nil
}

// ListLogs returns one page of run history, newest first, plus the total
// row count.
func (db *DB) ListLogs(ctx context.Context, page, limit int) ([]models.ScrapingLog, int, error) {
	var total int
	if err := db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM scraping_logs`,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count scraping logs: %w", err)
	}

	rows, err := db.Pool.Query(ctx,
		`SELECT id, status, started_by, started_at, completed_at, error_message,
		        records_processed, current_step, total_steps, step_name
		 FROM scraping_logs
		 ORDER BY started_at DESC
		 LIMIT $1 OFFSET $2`,
		limit, (page-1)*limit,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list scraping logs: %w", err)
	}
	defer rows.Close()

	logs := []models.ScrapingLog{}
	for rows.Next() {
		var l models.ScrapingLog
		if err := rows.Scan(&l.ID, &l.Status, &l.StartedBy, &l.StartedAt, &l.CompletedAt,
			&l.ErrorMessage, &l.RecordsProcessed, &l.CurrentStep, &l.TotalSteps, &l.StepName); err != nil {
			return nil, 0, fmt.Errorf("failed to scan scraping log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, total, rows.Err()
}

// RecentLogs returns the most recent n run rows for the dashboard.
func (db *DB) RecentLogs(ctx context.Context, n int) ([]models.ScrapingLog, error) {
	logs, _, err := db.ListLogs(ctx, 1, n)
	return logs, err
}
