package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"housing-data-go/pkg/cli"
	"housing-data-go/pkg/cli/logger"
	"housing-data-go/pkg/config"
)

func main() {
	var (
		statusMode = flag.Bool("status", false, "Show current pipeline status")
		startMode  = flag.Bool("start", false, "Start a pipeline run")
		stopMode   = flag.Bool("stop", false, "Stop the active pipeline run")
		logsMode   = flag.Bool("logs", false, "Show pipeline run history")
		logsPage   = flag.Int("page", 1, "Page of run history (with --logs)")
		logsLimit  = flag.Int("limit", 10, "Page size of run history (with --logs)")
		dbInfoMode = flag.Bool("db-info", false, "Show dataset availability and schema")
		askMessage = flag.String("ask", "", "Send a single chat message")

		registerUser  = flag.String("register", "", "Register a new user (format: username:email)")
		configShow    = flag.Bool("config-show", false, "Show current configuration")
		configSet     = flag.String("config-set", "", "Set a config value (format: section.key=value)")
	)
	flag.Parse()
	defer logger.Close()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	app := cli.NewApp(cfg)

	// Handle config commands first (don't need the API)
	if *configShow {
		app.ShowConfig()
		return
	}
	if *configSet != "" {
		if err := app.SetConfig(*configSet); err != nil {
			log.Fatalf("failed to set config: %v", err)
		}
		fmt.Println("Configuration updated successfully")
		return
	}

	if *registerUser != "" {
		username, email, ok := splitPair(*registerUser)
		if !ok {
			log.Fatalf("invalid --register value: expected 'username:email'")
		}
		exitOnError(app.RegisterUser(username, email))
		return
	}

	switch {
	case *statusMode:
		exitOnError(app.ShowStatus())
	case *startMode:
		exitOnError(app.StartScraping())
	case *stopMode:
		exitOnError(app.StopScraping())
	case *logsMode:
		exitOnError(app.ShowLogs(*logsPage, *logsLimit))
	case *dbInfoMode:
		exitOnError(app.ShowDatabaseInfo())
	case *askMessage != "":
		exitOnError(app.Ask(*askMessage))
	default:
		// Interactive TUI mode
		exitOnError(app.Run())
	}
}

func splitPair(s string) (string, string, bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == ':' {
			return s[:i], s[i+1:], s[:i] != "" && s[i+1:] != ""
		}
	}
	return "", "", false
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
