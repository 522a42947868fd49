package publishers

import "github.com/starnight-hq/starnight-client/internal/logger"

// Logger is the object logger publishers report delivery outcomes to.
type Logger = logger.Logger

func ensureLogger(log Logger) Logger {
	if log == nil {
		return logger.NopLogger{}
	}
	return log
}
