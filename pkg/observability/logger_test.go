package observability

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{" error ", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"nonsense", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestJSONLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Level: "debug", Format: "json", Writer: &buf})

	log.With(String("build", "42")).Info("resolved",
		String("branch", "main"),
		Int("pr", 7),
		Int64("build_id", 99),
		Bool("cached", false),
		Duration("took", time.Second),
		Err(errors.New("nope")),
	)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "resolved", entry["message"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "42", entry["build"])
	assert.Equal(t, "main", entry["branch"])
	assert.EqualValues(t, 7, entry["pr"])
	assert.EqualValues(t, 99, entry["build_id"])
	assert.Equal(t, false, entry["cached"])
	assert.Equal(t, "nope", entry["error"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Level: "warn", Format: "json", Writer: &buf})

	log.Debug("hidden")
	log.Info("hidden")
	log.Warn("shown")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "shown")
}

func TestConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	New(Options{Level: "info", Format: "console", Writer: &buf}).Error("failed", String("owner", "acme"))

	out := buf.String()
	assert.Contains(t, out, "failed")
	assert.Contains(t, out, "owner=")
	assert.Contains(t, out, "acme")
}

func TestNop(t *testing.T) {
	log := Nop()
	log.Error("ignored", Err(errors.New("x")))
	assert.NotNil(t, log.With(String("k", "v")))
}
