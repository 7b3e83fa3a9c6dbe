package logging

import (
	"bufio"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLogPath(t *testing.T) {
	path := DefaultLogPath()

	assert.Equal(t, "kbsearch.log", filepath.Base(path))
	assert.Contains(t, path, ".kbsearch")
}

func TestConfigs(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, 10, cfg.MaxSizeMB)
	assert.Equal(t, 5, cfg.MaxFiles)
	assert.False(t, cfg.WriteToStderr)

	assert.True(t, DebugConfig().WriteToStderr)
	assert.Equal(t, "debug", DebugConfig().Level)

	serve := ServeConfig("warn")
	assert.Equal(t, "warn", serve.Level)
	assert.False(t, serve.WriteToStderr)
}

func TestSetup_WritesJSONRecords(t *testing.T) {
	// Given: a logger writing into a temp directory
	logPath := filepath.Join(t.TempDir(), "nested", "test.log")
	logger, cleanup, err := Setup(Config{Level: "debug", FilePath: logPath, MaxSizeMB: 1, MaxFiles: 3})
	require.NoError(t, err)

	// When: logging a structured event
	logger.Info("index_build_finished", slog.String("kb", "notes"), slog.Int("added", 3))
	cleanup()

	// Then: the file holds one JSON object with the attributes
	f, err := os.Open(logPath)
	require.NoError(t, err)
	defer f.Close()

	sc := bufio.NewScanner(f)
	require.True(t, sc.Scan())
	var rec map[string]any
	require.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
	assert.Equal(t, "index_build_finished", rec["msg"])
	assert.Equal(t, "notes", rec["kb"])
	assert.EqualValues(t, 3, rec["added"])
}

func TestSetup_RespectsLevel(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "test.log")
	logger, cleanup, err := Setup(Config{Level: "warn", FilePath: logPath})
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown")
	cleanup()

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), "shown")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{" error ", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestRotatingWriter_RotatesAndPrunes(t *testing.T) {
	// Given: a writer with a tiny size limit
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	w, err := NewRotatingWriter(path, 1, 3)
	require.NoError(t, err)
	w.maxSize = 10

	// When: writing more than maxFiles generations
	for i := 0; i < 6; i++ {
		_, err := w.Write([]byte(strings.Repeat("x", 8) + "\n"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	// Then: only generations below maxFiles remain
	assert.FileExists(t, path)
	assert.FileExists(t, path+".1")
	assert.FileExists(t, path+".2")
	assert.NoFileExists(t, path+".3")
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	assert.False(t, logger.Enabled(t.Context(), slog.LevelError))
}
