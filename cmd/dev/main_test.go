package main

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
)

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, false)
	assert.Equal(t, log.InfoLevel, logger.GetLevel())

	slog.New(logger).Debug("hidden")
	assert.Empty(t, buf.String())

	slog.New(logger).Info("building", "target", "dist/tempmon")
	assert.Contains(t, buf.String(), "dev")
	assert.Contains(t, buf.String(), "building")

	assert.Equal(t, log.DebugLevel, newLogger(&buf, true).GetLevel())
}
