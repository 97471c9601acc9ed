package env

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFirstPrefersEarlierKeys(t *testing.T) {
	t.Setenv("CIVICPULSE_LOG_FORMAT", "console")
	t.Setenv("LOG_FORMAT", "json")
	assert.Equal(t, "console", First("json", "CIVICPULSE_LOG_FORMAT", "LOG_FORMAT"))
}

func TestFirstSkipsBlankValues(t *testing.T) {
	t.Setenv("CIVICPULSE_LOG_FORMAT", "  ")
	t.Setenv("LOG_FORMAT", " console ")
	assert.Equal(t, "console", First("json", "CIVICPULSE_LOG_FORMAT", "LOG_FORMAT"))
}

func TestFirstFallback(t *testing.T) {
	t.Setenv("CIVICPULSE_LOG_FORMAT", "")
	t.Setenv("LOG_FORMAT", "")
	assert.Equal(t, "json", First("json", "CIVICPULSE_LOG_FORMAT", "LOG_FORMAT"))
}
