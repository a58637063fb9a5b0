package utils

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestampLayouts(t *testing.T) {
	cases := map[string]time.Time{
		"2025-01-10T03:12:44Z":      time.Date(2025, 1, 10, 3, 12, 44, 0, time.UTC),
		"2025-01-10T03:12:44":       time.Date(2025, 1, 10, 3, 12, 44, 0, time.UTC),
		"2025-01-10 03:12:44":       time.Date(2025, 1, 10, 3, 12, 44, 0, time.UTC),
		"2025-01-10T03:12:44.5":     time.Date(2025, 1, 10, 3, 12, 44, 500_000_000, time.UTC),
		"2025-01-10T05:12:44+02:00": time.Date(2025, 1, 10, 3, 12, 44, 0, time.UTC),
		"2025-01-10":                time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
	}
	for in, want := range cases {
		got, err := ParseTimestamp(in)
		require.NoError(t, err, in)
		assert.True(t, want.Equal(got), "%s: want %v got %v", in, want, got)
	}
}

func TestParseTimestampRejectsGarbage(t *testing.T) {
	_, err := ParseTimestamp("")
	assert.Error(t, err)
	_, err = ParseTimestamp("yesterday")
	assert.Error(t, err)
}

func TestNowUTCTruncatesToSeconds(t *testing.T) {
	now := NowUTC()
	assert.Equal(t, 0, now.Nanosecond())
	assert.Equal(t, time.UTC, now.Location())
}

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("warn", "json", &buf)

	logger.Info().Msg("hidden")
	logger.Warn().Str("component", "test").Msg("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"component":"test"`)
	assert.Contains(t, out, `"message":"shown"`)
}

func TestNewLoggerAutoWithoutTerminal(t *testing.T) {
	original := isTerminalFn
	isTerminalFn = func(int) bool { return false }
	defer func() { isTerminalFn = original }()

	w := selectWriter("auto", os.Stderr)
	assert.Equal(t, os.Stderr, w)

	_, isConsole := selectWriter("console", os.Stderr).(zerolog.ConsoleWriter)
	assert.True(t, isConsole)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("bogus"))
	assert.Equal(t, zerolog.Disabled, ParseLevel("off"))
}

func TestAppErrorChain(t *testing.T) {
	base := errors.New("boom")
	err := fmt.Errorf("wrapped: %w", NewAppError("load", "/tmp/a.json", "read document", base))

	assert.ErrorIs(t, err, base)
	var appErr *AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "load", appErr.Op)
	assert.Contains(t, err.Error(), "load /tmp/a.json: read document: boom")
	assert.False(t, errors.As(base, &appErr))
}
