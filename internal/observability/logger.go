package observability

import "github.com/rs/zerolog"

// Component tags every line of logger with the owning component.
func Component(logger zerolog.Logger, name string) zerolog.Logger {
	return logger.With().Str("component", name).Logger()
}
