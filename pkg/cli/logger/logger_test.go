package logger

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerWritesToSessionFile(t *testing.T) {
	t.Chdir(t.TempDir())

	Log("starting %s", "tui")
	LogError(errors.New("connection refused"), "status poll failed")
	Close()

	entries, err := filepath.Glob(filepath.Join("tmp", "housing-cli-*.log"))
	require.NoError(t, err)
	require.Len(t, entries, 1)

	data, err := os.ReadFile(entries[0])
	require.NoError(t, err)

	content := string(data)
	assert.Contains(t, content, "[housing-cli]")
	assert.Contains(t, content, "starting tui")
	assert.Contains(t, content, "ERROR: status poll failed: connection refused")
}
