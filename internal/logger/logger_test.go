package logger

import (
	"testing"

	"github.com/example/slotwatch/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	log, err := New(config.NewDefaultLogConfig())
	require.NoError(t, err)
	log.Info().Msg("logger smoke test")
}

func TestNew_BadLevel(t *testing.T) {
	cfg := config.NewDefaultLogConfig()
	cfg.LogLevel = "verbose-ish"
	_, err := New(cfg)
	assert.Error(t, err)
}

func TestParseLogLevel(t *testing.T) {
	level, err := parseLogLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, "debug", level.String())

	_, err = parseLogLevel("nope")
	assert.Error(t, err)
}
