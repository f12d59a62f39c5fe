package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"binledger/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNew_ProductionUsesConfiguredLevel(t *testing.T) {
	log, err := New(config.LoggerConfig{Level: "warn"}, false)
	require.NoError(t, err)

	assert.False(t, log.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, log.Core().Enabled(zapcore.WarnLevel))
}

func TestNew_DevelopmentDefaultsToDebug(t *testing.T) {
	log, err := New(config.LoggerConfig{}, true)
	require.NoError(t, err)

	assert.True(t, log.Core().Enabled(zapcore.DebugLevel))
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New(config.LoggerConfig{Level: "loud"}, false)
	assert.Error(t, err)
}

func TestNew_WritesRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "binledger.log")
	log, err := New(config.LoggerConfig{Level: "info", FilePath: path, MaxSizeMB: 1}, false)
	require.NoError(t, err)

	log.Info("ledger entry appended", zap.Int64("entry_id", 7))
	log.Debug("not written")
	_ = log.Sync()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "ledger entry appended", entry["msg"])
	assert.Equal(t, float64(7), entry["entry_id"])
	assert.Contains(t, entry, "timestamp")
}
