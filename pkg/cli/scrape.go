package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"housing-data-go/pkg/models"
)

// StartScraping launches a pipeline run and prints the resulting status.
func (a *App) StartScraping() error {
	apiClient, err := a.getClient()
	if err != nil {
		return err
	}

	fmt.Print("⏳ Starting pipeline... ")
	if err := apiClient.StartScraping(); err != nil {
		fmt.Println("✗")
		return err
	}
	fmt.Println("✓")
	fmt.Println("Use --status to follow progress, or run the TUI monitor.")
	return nil
}

// StopScraping requests cancellation and waits for the run to settle.
func (a *App) StopScraping() error {
	apiClient, err := a.getClient()
	if err != nil {
		return err
	}

	fmt.Print("⏳ Requesting stop... ")
	if err := apiClient.StopScraping(); err != nil {
		fmt.Println("✗")
		return err
	}
	fmt.Println("✓")

	// The stop flag is only checked between steps, so poll briefly.
	for i := 0; i < 30; i++ {
		job, err := apiClient.ScrapingStatus()
		if err != nil {
			return err
		}
		if job.Status.IsTerminal() || job.Status == models.StatusIdle {
			fmt.Printf("Pipeline finished with status: %s\n", job.Status)
			return nil
		}
		time.Sleep(2 * time.Second)
	}
	fmt.Println("Stop requested; the current step is still finishing.")
	return nil
}

// ShowStatus prints the current job snapshot.
func (a *App) ShowStatus() error {
	apiClient, err := a.getClient()
	if err != nil {
		return err
	}

	job, err := apiClient.ScrapingStatus()
	if err != nil {
		return err
	}

	fmt.Printf("Status:   %s\n", job.Status)
	if job.Status.IsActive() {
		fmt.Printf("Step:     %d/%d (%s)\n", job.CurrentStep, job.TotalSteps, job.StepName)
		fmt.Printf("Progress: %.0f%%\n", job.ProgressPercentage)
	}
	fmt.Printf("Records:  %d\n", job.RecordsProcessed)
	if job.StartedAt != nil {
		fmt.Printf("Started:  %s\n", job.StartedAt.Format("2006-01-02 15:04:05"))
	}
	if job.CompletedAt != nil {
		fmt.Printf("Finished: %s\n", job.CompletedAt.Format("2006-01-02 15:04:05"))
	}
	if job.ErrorMessage != nil {
		fmt.Printf("Error:    %s\n", *job.ErrorMessage)
	}
	return nil
}

// ShowLogs prints one page of run history as a table.
func (a *App) ShowLogs(page, limit int) error {
	apiClient, err := a.getClient()
	if err != nil {
		return err
	}

	result, err := apiClient.ScrapingLogs(page, limit)
	if err != nil {
		return err
	}

	if len(result.Logs) == 0 {
		fmt.Println("No pipeline runs recorded.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tStatus\tStarted\tFinished\tRecords\tStep")
	fmt.Fprintln(w, "───\t───\t───\t───\t───\t───")
	for _, log := range result.Logs {
		finished := "-"
		if log.CompletedAt != nil {
			finished = log.CompletedAt.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%d/%d %s\n",
			log.ID,
			log.Status,
			log.StartedAt.Format("2006-01-02 15:04"),
			finished,
			log.RecordsProcessed,
			log.CurrentStep, log.TotalSteps, log.StepName,
		)
	}
	w.Flush()
	fmt.Printf("\nTotal: %d run(s), page %d\n", result.Total, result.Page)
	return nil
}

// ShowDatabaseInfo prints the dataset availability and schema.
func (a *App) ShowDatabaseInfo() error {
	apiClient, err := a.getClient()
	if err != nil {
		return err
	}

	info, err := apiClient.GetDatabaseInfo()
	if err != nil {
		return err
	}

	if !info.Available {
		fmt.Println("Dataset not available.")
		if info.Message != "" {
			fmt.Println(info.Message)
		}
		return nil
	}

	fmt.Printf("Dataset available: %d rows\n\n", info.TotalRows)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "Column\tType")
	for _, col := range info.Columns {
		fmt.Fprintf(w, "%s\t%s\n", col.Name, col.Type)
	}
	w.Flush()

	if len(info.SampleQueries) > 0 {
		fmt.Println("\nTry asking:")
		for _, q := range info.SampleQueries {
			fmt.Printf("  - %s\n", q)
		}
	}
	return nil
}
