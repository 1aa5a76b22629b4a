// Package logger writes CLI diagnostics to a file. While the TUI is running
// Bubble Tea owns the terminal, so nothing here may print to stdout or
// stderr; messages land in tmp/housing-cli-<timestamp>.log instead.
package logger

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var (
	once    sync.Once
	std     *log.Logger
	logFile *os.File
)

// setup opens the session log file. When the file cannot be created the
// logger falls back to stderr, which is only visible after the TUI exits.
func setup() {
	fallback := log.New(os.Stderr, "[housing-cli] ", log.LstdFlags)

	if err := os.MkdirAll("tmp", 0o755); err != nil {
		std = fallback
		return
	}
	name := filepath.Join("tmp", "housing-cli-"+time.Now().Format("20060102-150405")+".log")
	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		std = fallback
		return
	}
	logFile = f
	std = log.New(f, "[housing-cli] ", log.LstdFlags)
}

// Log records a formatted diagnostic message.
func Log(format string, v ...any) {
	once.Do(setup)
	std.Printf(format, v...)
}

// LogError records an error together with what the CLI was doing.
func LogError(err error, format string, v ...any) {
	once.Do(setup)
	std.Printf("ERROR: %s: %v", fmt.Sprintf(format, v...), err)
}

// Close closes the session log file, if one was opened.
func Close() {
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}
