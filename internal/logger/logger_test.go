package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestSlogLoggerLevels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		level    LogLevel
		emit     func(Logger)
		expected bool
	}{
		{"info at info", LogLevelInfo, func(l Logger) { l.Info("visible") }, true},
		{"debug at info", LogLevelInfo, func(l Logger) { l.Debug("visible") }, false},
		{"trace at trace", LogLevelTrace, func(l Logger) { l.Trace("visible") }, true},
		{"warn at error", LogLevelError, func(l Logger) { l.Warn("visible") }, false},
		{"error at error", LogLevelError, func(l Logger) { l.Error("visible") }, true},
		{"explicit warn at info", LogLevelInfo, func(l Logger) { l.Log(LogLevelWarn, "visible") }, true},
		{"explicit debug at info", LogLevelInfo, func(l Logger) { l.Log(LogLevelDebug, "visible") }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			tt.emit(NewSlogLogger(&buf, tt.level, time.UTC))
			assert.Equal(t, tt.expected, strings.Contains(buf.String(), "visible"))
		})
	}
}

func TestTraceLevelRendering(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	NewSlogLogger(&buf, LogLevelTrace, nil).Trace("sql query")

	assert.Contains(t, buf.String(), "level=TRACE")
	assert.NotContains(t, buf.String(), "time=")
}

func TestModuleAndFields(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewSlogLogger(&buf, LogLevelDebug, time.UTC).
		Module("skumap").
		Module("merge").
		With(String("target", "detergent-a"))

	log.Info("groups merged",
		Int("aliases_moved", 3),
		Bool("created_target", false),
		Float64("score", 0.95238095),
		Duration("elapsed", 1500*time.Millisecond))

	out := buf.String()
	assert.Contains(t, out, "module=skumap.merge")
	assert.Contains(t, out, "target=detergent-a")
	assert.Contains(t, out, "aliases_moved=3")
	assert.Contains(t, out, "created_target=false")
	assert.Contains(t, out, "score=0.952")
	assert.Contains(t, out, "elapsed=1.5s")
}

func TestWithContextTraceID(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewSlogLogger(&buf, LogLevelInfo, time.UTC)

	log.WithContext(WithTraceID(context.Background(), "req-42")).Info("handled")
	log.WithContext(context.Background()).Info("untraced")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "trace_id=req-42")
	assert.NotContains(t, lines[1], "trace_id")
}

func TestCentralLoggerFileOutput(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	logPath := filepath.Join(dir, "nested", "app.log")
	ledgerPath := filepath.Join(dir, "ledger.log")

	cl, err := NewCentralLogger(&LoggingConfig{
		DefaultLevel: "debug",
		Timezone:     "UTC",
		Console:      &ConsoleOutput{Enabled: false},
		FileOutput:   &FileOutput{Enabled: true, Path: logPath, Level: "debug"},
		ModuleOutputs: map[string]ModuleOutput{
			"resolution": {Enabled: true, FilePath: ledgerPath, Level: "info"},
		},
	})
	require.NoError(t, err)

	cl.Module("skumap").Debug("registered", Int("count", 2))
	cl.Module("resolution").Info("pair resolved", String("action", "keep_a"))
	require.NoError(t, cl.Close())

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)

	var record map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &record))
	assert.Equal(t, "registered", record["msg"])
	assert.Equal(t, "skumap", record["module"])
	assert.EqualValues(t, 2, record["count"])

	ledger, err := os.ReadFile(ledgerPath)
	require.NoError(t, err)
	assert.Contains(t, string(ledger), `"action":"keep_a"`)
	assert.NotContains(t, string(data), "pair resolved")
}

func TestNewCentralLoggerRejectsBadInput(t *testing.T) {
	t.Parallel()

	_, err := NewCentralLogger(nil)
	require.Error(t, err)

	_, err = NewCentralLogger(&LoggingConfig{Timezone: "Not/AZone"})
	require.Error(t, err)
}

func TestApplyConfigDefaults(t *testing.T) {
	t.Parallel()

	cfg := &LoggingConfig{FileOutput: &FileOutput{Enabled: true, Path: "x.log"}}
	applyConfigDefaults(cfg)

	assert.Equal(t, DefaultLogLevel, cfg.DefaultLevel)
	require.NotNil(t, cfg.Console)
	assert.True(t, cfg.Console.Enabled)
	assert.Contains(t, cfg.ModuleOutputs, "resolution")

	empty := &LoggingConfig{}
	applyConfigDefaults(empty)
	assert.False(t, empty.FileOutput.Enabled)
	assert.NotContains(t, empty.ModuleOutputs, "resolution")
}

func TestGormLoggerAdapter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	adapter := NewGormLoggerAdapter(NewSlogLogger(&buf, LogLevelTrace, time.UTC), 50*time.Millisecond)
	ctx := context.Background()
	sql := func() (string, int64) { return "SELECT 1", 1 }

	adapter.Trace(ctx, time.Now(), sql, nil)
	assert.Contains(t, buf.String(), "level=TRACE")
	buf.Reset()

	adapter.Trace(ctx, time.Now().Add(-time.Second), sql, nil)
	assert.Contains(t, buf.String(), "slow query")
	buf.Reset()

	adapter.Trace(ctx, time.Now(), sql, gorm.ErrRecordNotFound)
	assert.NotContains(t, buf.String(), "query error")
	buf.Reset()

	adapter.Trace(ctx, time.Now(), sql, assert.AnError)
	assert.Contains(t, buf.String(), "query error")
}
