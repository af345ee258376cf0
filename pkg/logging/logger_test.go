package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// restoreGlobals undoes Setup's changes to the process-wide logger.
func restoreGlobals(t *testing.T) {
	t.Helper()
	logger, level := log.Logger, zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = logger
		zerolog.SetGlobalLevel(level)
	})
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()

	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &m), line)
		out = append(out, m)
	}
	return out
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, LevelInfo, cfg.Level)
	assert.False(t, cfg.Pretty)
	assert.NotNil(t, cfg.Output)
}

func TestSetup_JSON(t *testing.T) {
	restoreGlobals(t)
	var buf bytes.Buffer

	logger := Setup(Config{Level: LevelInfo, Output: &buf})
	logger.Info().Str("run_id", "r1").Msg("Run started")
	log.Info().Msg("via global")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "Run started", lines[0]["message"])
	assert.Equal(t, "r1", lines[0]["run_id"])
	assert.Equal(t, ServiceName, lines[0]["service"])
	assert.Contains(t, lines[0], "time")
	assert.Equal(t, "via global", lines[1]["message"], "Setup replaces the global logger")
}

func TestSetup_Pretty(t *testing.T) {
	restoreGlobals(t)
	var buf bytes.Buffer

	logger := Setup(Config{Level: LevelInfo, Pretty: true, Output: &buf})
	logger.Info().Msg("Quota wait finished")

	out := buf.String()
	assert.Contains(t, out, "Quota wait finished")
	assert.False(t, json.Valid([]byte(strings.TrimSpace(out))), "pretty output should not be JSON")
}

func TestSetup_LevelFiltering(t *testing.T) {
	tests := []struct {
		level LogLevel
		want  []string
	}{
		{level: LevelDebug, want: []string{"debug", "info", "warn", "error"}},
		{level: LevelInfo, want: []string{"info", "warn", "error"}},
		{level: LevelWarn, want: []string{"warn", "error"}},
		{level: LevelError, want: []string{"error"}},
		{level: "bogus", want: []string{"info", "warn", "error"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			restoreGlobals(t)
			var buf bytes.Buffer
			logger := Setup(Config{Level: tt.level, Output: &buf})

			logger.Debug().Msg("page")
			logger.Info().Msg("identifier")
			logger.Warn().Msg("quota")
			logger.Error().Msg("failure")

			var got []string
			for _, line := range decodeLines(t, &buf) {
				got = append(got, line["level"].(string))
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    LogLevel
		wantErr bool
	}{
		{in: "debug", want: LevelDebug},
		{in: " INFO ", want: LevelInfo},
		{in: "", want: LevelInfo},
		{in: "warn", want: LevelWarn},
		{in: "Warning", want: LevelWarn},
		{in: "error", want: LevelError},
		{in: "trace", wantErr: true},
		{in: "loud", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewLogger(t *testing.T) {
	restoreGlobals(t)
	var buf bytes.Buffer
	Setup(Config{Level: LevelInfo, Output: &buf})

	logger := NewLogger("countdown")
	logger.Warn().Int("wait_seconds", 42).Msg("Quota exhausted, waiting")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "countdown", lines[0]["component"])
	assert.Equal(t, ServiceName, lines[0]["service"])
	assert.EqualValues(t, 42, lines[0]["wait_seconds"])
}
