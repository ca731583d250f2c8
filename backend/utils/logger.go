package utils

import (
	"io"
	"log"
	"os"
)

// LoggerConfig configures InitLogger.
type LoggerConfig struct {
	// Output defaults to os.Stdout.
	Output io.Writer
	// EnableColors tints the prefix for terminals.
	EnableColors bool
}

// InitLogger returns the process logger shared by middleware and services.
func InitLogger(config ...LoggerConfig) *log.Logger {
	var cfg LoggerConfig
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}

	prefix := "[Storefront] "
	if cfg.EnableColors {
		prefix = "\033[36m" + prefix + "\033[0m"
	}

	return log.New(cfg.Output, prefix, log.LstdFlags|log.LUTC|log.Lmsgprefix)
}

// DiscardLogger is used by tests and by components constructed without a logger.
func DiscardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}
