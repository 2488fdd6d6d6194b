package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLogFilePath(t *testing.T) {
	start := time.Date(2024, 3, 17, 9, 30, 0, 0, time.UTC)
	path := LogFilePath("logs", "attrition", start)
	assert.Contains(t, path, "attrition.20240317_093000.log")
}

func TestMultiHandler_FanOut(t *testing.T) {
	var a, b bytes.Buffer
	h := NewMultiHandler(
		slog.NewTextHandler(&a, nil),
		nil,
		slog.NewTextHandler(&b, nil),
	)
	logger := slog.New(h)

	logger.Info("hello", "actor", "thrag")

	assert.Contains(t, a.String(), "hello")
	assert.Contains(t, b.String(), "actor=thrag")
}

func TestContextHandler_AddsWorldTime(t *testing.T) {
	var buf bytes.Buffer
	worldTime := int64(86400)
	h := NewContextHandler(slog.NewTextHandler(&buf, nil), func() []slog.Attr {
		return []slog.Attr{slog.Int64("worldTime", worldTime)}
	})

	slog.New(h).Info("tick")

	assert.Contains(t, buf.String(), "worldTime=86400")
}

func TestSlogManager_Setup(t *testing.T) {
	var file bytes.Buffer
	m := NewSlogManager()
	m.Setup(&file, "debug", nil, nil)

	m.Logger().Debug("probe")

	assert.True(t, strings.Contains(file.String(), "probe"), "file handler should receive debug records")
	assert.NoError(t, m.Flush(t.Context()))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLevel("WARN"))
	assert.Equal(t, slog.LevelInfo, parseLevel("bogus"))
}
