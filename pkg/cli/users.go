package cli

import (
	"fmt"

	"housing-data-go/pkg/cli/client"
	"housing-data-go/pkg/config"
)

// RegisterUser creates a new user account and saves the API key
func (a *App) RegisterUser(username, email string) error {
	apiClient, err := a.getClientForRegistration()
	if err != nil {
		return fmt.Errorf("failed to create API client: %w", err)
	}

	result, err := apiClient.RegisterUser(username, email)
	if err != nil {
		return err
	}

	// Save API key to config
	a.cfg.CLI.APIKey = result.APIKey
	if err := config.Save(a.cfg); err != nil {
		return fmt.Errorf("failed to save API key: %w", err)
	}

	// Update the client with the new API key
	a.client = client.NewClient(a.cfg.CLI.BaseURL, result.APIKey, a.cfg.CLI.RequestTimeout)

	fmt.Println("✓ User registered successfully!")
	fmt.Printf("  Username: %s\n", result.User.Username)
	fmt.Printf("  Email: %s\n", result.User.Email)
	fmt.Printf("  User ID: %s\n", result.User.ID.String())
	fmt.Printf("  API key saved to config automatically\n")
	fmt.Println("\n⚠️  Save this API key securely (it won't be shown again):")
	fmt.Printf("  %s\n", result.APIKey)
	fmt.Println("\nAn administrator must approve the account before it can be used.")

	return nil
}
