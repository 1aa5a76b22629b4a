package cli

import (
	"fmt"
)

// Ask sends a single chat message and prints the response.
func (a *App) Ask(message string) error {
	apiClient, err := a.getClient()
	if err != nil {
		return err
	}

	fmt.Println("⏳ Thinking...")
	resp, err := apiClient.Chat(message, "")
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(resp.Response)

	if resp.SQLQuery != nil {
		fmt.Printf("\nSQL: %s\n", *resp.SQLQuery)
	}
	if len(resp.Sources) > 0 {
		fmt.Println("\nSources:")
		for _, src := range resp.Sources {
			fmt.Printf("  - %s (%s)\n", src.Title, src.URI)
		}
	}
	return nil
}
