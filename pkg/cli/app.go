package cli

import (
	"fmt"

	"housing-data-go/pkg/cli/client"
	"housing-data-go/pkg/cli/logger"
	"housing-data-go/pkg/cli/tui"
	"housing-data-go/pkg/config"

	tea "github.com/charmbracelet/bubbletea"
)

type App struct {
	cfg    *config.Config
	client *client.Client
}

func NewApp(cfg *config.Config) *App {
	return &App{
		cfg: cfg,
	}
}

// getClient returns the HTTP client, creating it if necessary
func (a *App) getClient() (*client.Client, error) {
	if a.client != nil {
		return a.client, nil
	}

	if a.cfg.CLI.BaseURL == "" {
		return nil, fmt.Errorf("API base URL not configured")
	}
	if a.cfg.CLI.APIKey == "" {
		return nil, fmt.Errorf("API key not configured; run --register first")
	}

	a.client = client.NewClient(a.cfg.CLI.BaseURL, a.cfg.CLI.APIKey, a.cfg.CLI.RequestTimeout)
	return a.client, nil
}

// getClientForRegistration returns an HTTP client without API key (for registration)
func (a *App) getClientForRegistration() (*client.Client, error) {
	if a.cfg.CLI.BaseURL == "" {
		return nil, fmt.Errorf("API base URL not configured")
	}
	return client.NewClient(a.cfg.CLI.BaseURL, "", a.cfg.CLI.RequestTimeout), nil
}

// Run starts the interactive TUI
func (a *App) Run() error {
	apiClient, err := a.getClient()
	if err != nil {
		return err
	}

	logger.Log("starting TUI against %s", a.cfg.CLI.BaseURL)
	p := tea.NewProgram(tui.NewRootModel(apiClient))
	if _, err := p.Run(); err != nil {
		logger.LogError(err, "TUI exited")
		return fmt.Errorf("TUI exited with error: %w", err)
	}
	return nil
}
