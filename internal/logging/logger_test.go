package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"comment-scout/internal/logging/adapters"
)

func TestMultiLoggerLevelFiltering(t *testing.T) {
	logger, mem := NewMemoryLogger()
	logger.SetLevel(WarnLevel)

	logger.Debug("debug")
	logger.Info("info")
	logger.Warn("warn")
	logger.Error("error")

	entries := mem.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "warn", entries[0].Message)
	assert.Equal(t, "error", entries[1].Message)
}

func TestWithFieldsSharesAdapters(t *testing.T) {
	logger, mem := NewMemoryLogger()

	child := logger.WithField("component", "discovery").WithFields(map[string]interface{}{"keyword": "kw"})
	child.Info("hello", map[string]interface{}{"count": 3})

	entries := mem.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "discovery", entries[0].Fields["component"])
	assert.Equal(t, "kw", entries[0].Fields["keyword"])
	assert.Equal(t, 3, entries[0].Fields["count"])

	// children follow level changes made on the parent
	logger.SetLevel(ErrorLevel)
	child.Info("dropped")
	assert.Len(t, mem.Entries(), 1)
}

func TestStreamAdapterFormats(t *testing.T) {
	var buf bytes.Buffer
	logger := NewMultiLogger()
	require.NoError(t, logger.AddAdapter(adapters.NewStreamAdapter("json", &buf, adapters.StreamConfig{Format: "json"})))

	logger.Info("saved", map[string]interface{}{"records": 2})

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &decoded))
	assert.Equal(t, "info", decoded["level"])
	assert.Equal(t, "saved", decoded["message"])
	assert.Equal(t, float64(2), decoded["records"])

	var text bytes.Buffer
	textLogger := NewMultiLogger()
	require.NoError(t, textLogger.AddAdapter(adapters.NewStreamAdapter("text", &text, adapters.StreamConfig{Format: "text"})))
	textLogger.Warn("degraded", map[string]interface{}{"b": 2, "a": 1})
	assert.True(t, strings.HasSuffix(strings.TrimSpace(text.String()), "[WARN] degraded a=1 b=2"), text.String())
}

func TestAddAdapterRejectsDuplicates(t *testing.T) {
	logger := NewMultiLogger()
	require.NoError(t, logger.AddAdapter(adapters.NewMemoryAdapter("mem")))
	assert.Error(t, logger.AddAdapter(adapters.NewMemoryAdapter("mem")))
	require.NoError(t, logger.RemoveAdapter("mem"))
	assert.Error(t, logger.RemoveAdapter("mem"))
}

func TestManagerFileAdapter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "scout.log")

	m := NewManager()
	require.NoError(t, m.Initialize(Settings{
		Level: "debug",
		Adapters: []AdapterConfig{
			{Name: "file", Type: "file", Enabled: true, Options: map[string]interface{}{"file_path": path, "format": "text"}},
			{Name: "ignored", Type: "bogus", Enabled: false},
		},
	}))

	m.GetLogger().Debug("written to disk")
	require.NoError(t, m.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to disk")
}

func TestManagerRejectsUnknownAdapter(t *testing.T) {
	m := NewManager()
	err := m.Initialize(Settings{Adapters: []AdapterConfig{{Name: "x", Type: "bogus", Enabled: true}}})
	assert.Error(t, err)
}

func TestFileAdapterRotation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scout.log")

	adapter, err := adapters.NewFileAdapter("file", adapters.FileConfig{FilePath: path, MaxSize: 1, MaxBackups: 1, Compress: true})
	require.NoError(t, err)

	logger := NewMultiLogger()
	require.NoError(t, logger.AddAdapter(adapter))
	for i := 0; i < 3; i++ {
		logger.Info("line")
	}
	require.NoError(t, logger.Close())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	var gz int
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".gz") {
			gz++
		}
	}
	assert.Equal(t, 1, gz, "only MaxBackups rotated files are kept")
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, DebugLevel, ParseLogLevel("DEBUG"))
	assert.Equal(t, WarnLevel, ParseLogLevel("warning"))
	assert.Equal(t, InfoLevel, ParseLogLevel("nonsense"))
}
