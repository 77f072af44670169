package testlog

import (
	"testing"

	"github.com/danmuck/can2mqtt/internal/logging"
	"github.com/rs/zerolog"
)

// Start configures test logging and returns a logger bound to t.
func Start(t *testing.T) zerolog.Logger {
	t.Helper()
	logging.ConfigureTests()
	logger := zerolog.New(zerolog.NewTestWriter(t)).Level(zerolog.DebugLevel)
	logger.Info().Str("test", t.Name()).Msg("start")
	return logger
}
