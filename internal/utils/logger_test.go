package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewLoggerBuildsUsableLogger(t *testing.T) {
	logger := NewLogger(2)
	assert.NotNil(t, logger.GetSink())
	assert.True(t, logger.Enabled())
}

func TestDefaultLoggerBuildsUsableLogger(t *testing.T) {
	logger := DefaultLogger()
	assert.NotNil(t, logger.GetSink())
}
