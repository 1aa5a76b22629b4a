package client

import (
	"fmt"
	"net/http"

	"housing-data-go/pkg/models"
)

// StartScraping launches a pipeline run on the server
func (c *Client) StartScraping() error {
	if err := c.doJSONRequest(http.MethodPost, "/start_scraping", nil, nil); err != nil {
		return fmt.Errorf("failed to start scraping: %w", err)
	}
	return nil
}

// StopScraping requests cancellation of the active run
func (c *Client) StopScraping() error {
	if err := c.doJSONRequest(http.MethodPost, "/stop_scraping", nil, nil); err != nil {
		return fmt.Errorf("failed to stop scraping: %w", err)
	}
	return nil
}

// ScrapingStatus fetches the current job snapshot
func (c *Client) ScrapingStatus() (*models.ScrapingJob, error) {
	var job models.ScrapingJob
	if err := c.doGetRequest("/scraping_status", &job); err != nil {
		return nil, fmt.Errorf("failed to get scraping status: %w", err)
	}
	return &job, nil
}

// ScrapingLogsPage is one page of run history
type ScrapingLogsPage struct {
	Logs  []models.ScrapingLog `json:"logs"`
	Total int                  `json:"total"`
	Page  int                  `json:"page"`
	Limit int                  `json:"limit"`
}

// ScrapingLogs fetches one page of run history
func (c *Client) ScrapingLogs(page, limit int) (*ScrapingLogsPage, error) {
	var result ScrapingLogsPage
	path := fmt.Sprintf("/scraping_logs?page=%d&limit=%d", page, limit)
	if err := c.doGetRequest(path, &result); err != nil {
		return nil, fmt.Errorf("failed to get scraping logs: %w", err)
	}
	return &result, nil
}
