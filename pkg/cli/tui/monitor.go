package tui

import (
	"fmt"
	"strings"
	"time"

	"housing-data-go/pkg/cli/client"
	"housing-data-go/pkg/cli/logger"
	"housing-data-go/pkg/models"

	tea "github.com/charmbracelet/bubbletea"
)

const monitorPollInterval = 2 * time.Second

// monitorModel polls the pipeline status and lets the user start or stop a
// run from the keyboard.
type monitorModel struct {
	client *client.Client

	job     *models.ScrapingJob
	err     error
	message string
}

type statusMsg struct {
	job *models.ScrapingJob
	err error
}

type actionResultMsg struct {
	message string
	err     error
}

type pollTickMsg struct{}

func NewMonitorModel(apiClient *client.Client) tea.Model {
	return &monitorModel{client: apiClient}
}

func (m *monitorModel) Init() tea.Cmd {
	return tea.Batch(m.fetchStatus, m.schedulePoll())
}

func (m *monitorModel) fetchStatus() tea.Msg {
	job, err := m.client.ScrapingStatus()
	return statusMsg{job: job, err: err}
}

func (m *monitorModel) schedulePoll() tea.Cmd {
	return tea.Tick(monitorPollInterval, func(time.Time) tea.Msg {
		return pollTickMsg{}
	})
}

func (m *monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "q", "esc":
			return m, backToMenu
		case "s":
			return m, func() tea.Msg {
				if err := m.client.StartScraping(); err != nil {
					return actionResultMsg{err: err}
				}
				return actionResultMsg{message: "Pipeline started"}
			}
		case "x":
			return m, func() tea.Msg {
				if err := m.client.StopScraping(); err != nil {
					return actionResultMsg{err: err}
				}
				return actionResultMsg{message: "Stop requested; waiting for the current step to finish"}
			}
		}

	case pollTickMsg:
		return m, tea.Batch(m.fetchStatus, m.schedulePoll())

	case statusMsg:
		if msg.err != nil {
			logger.LogError(msg.err, "status poll failed")
		}
		m.job, m.err = msg.job, msg.err
		return m, nil

	case actionResultMsg:
		if msg.err != nil {
			logger.LogError(msg.err, "pipeline action failed")
			m.err = msg.err
		} else {
			m.message = msg.message
			m.err = nil
		}
		return m, m.fetchStatus
	}

	return m, nil
}

func (m *monitorModel) View() string {
	var b strings.Builder

	b.WriteString(renderTitle("Pipeline Monitor"))
	b.WriteString(renderDivider(60))
	b.WriteString("\n\n")

	switch {
	case m.err != nil:
		b.WriteString(renderError(m.err.Error()) + "\n")
	case m.job == nil:
		b.WriteString(infoStyle.Render("Loading status...") + "\n")
	default:
		b.WriteString(renderJob(m.job))
	}

	if m.message != "" {
		b.WriteString("\n" + successStyle.Render(m.message) + "\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("s: start  x: stop  q/Esc: back  Ctrl+C: quit") + "\n")
	return b.String()
}

func renderJob(job *models.ScrapingJob) string {
	var b strings.Builder

	status := string(job.Status)
	switch job.Status {
	case models.StatusRunning:
		status = infoStyle.Render(status)
	case models.StatusCompleted:
		status = successStyle.Render(status)
	case models.StatusFailed:
		status = errorStyle.Render(status)
	case models.StatusStopped:
		status = warningStyle.Render(status)
	}
	fmt.Fprintf(&b, "%s %s\n", boldStyle.Render("Status:"), status)

	if job.Status.IsActive() {
		fmt.Fprintf(&b, "%s %d/%d  %s\n",
			boldStyle.Render("Step:"), job.CurrentStep, job.TotalSteps, job.StepName)
		fmt.Fprintf(&b, "%s %s %.0f%%\n",
			boldStyle.Render("Progress:"),
			progressBar(job.ProgressPercentage, 30),
			job.ProgressPercentage)
	}
	fmt.Fprintf(&b, "%s %d\n", boldStyle.Render("Records:"), job.RecordsProcessed)

	if job.StartedAt != nil {
		fmt.Fprintf(&b, "%s %s\n", boldStyle.Render("Started:"), job.StartedAt.Format("15:04:05"))
	}
	if job.CompletedAt != nil {
		fmt.Fprintf(&b, "%s %s\n", boldStyle.Render("Finished:"), job.CompletedAt.Format("15:04:05"))
	}
	if job.ErrorMessage != nil {
		fmt.Fprintf(&b, "%s %s\n", boldStyle.Render("Error:"), errorStyle.Render(*job.ErrorMessage))
	}
	return b.String()
}

func progressBar(percent float64, width int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := int(percent / 100 * float64(width))
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + "]"
}
