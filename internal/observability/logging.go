// Package observability builds the arena's zap loggers.
package observability

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cory-johannsen/arena/internal/config"
)

// NewLogger builds the process logger: JSON lines for deployments or a
// coloured console for development, both on stderr with ISO8601 timestamps.
//
// Precondition: cfg passed config validation.
// Postcondition: Returns a logger enabled at cfg.Level and above, or an error.
func NewLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level %q: %w", cfg.Level, err)
	}
	encoder, err := newEncoder(cfg.Format)
	if err != nil {
		return nil, err
	}
	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), level)
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}

func newEncoder(format string) (zapcore.Encoder, error) {
	ec := zap.NewProductionEncoderConfig()
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	switch format {
	case "json":
		return zapcore.NewJSONEncoder(ec), nil
	case "console":
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		ec.EncodeDuration = zapcore.StringDurationEncoder
		return zapcore.NewConsoleEncoder(ec), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}

// ForComponent returns a child logger named after an arena component
// ("combat", "telnet", "web", ...) and tagged with the server instance name.
//
// Precondition: base must be non-nil.
func ForComponent(base *zap.Logger, server, component string) *zap.Logger {
	return base.Named(component).With(zap.String("server", server))
}
