package logger

import (
	"os"

	"github.com/starnight-hq/starnight-client/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Package-level logger to be used across packages after Init.
var S *zap.SugaredLogger

// Logger is the object-logging surface the rest of the module depends on.
type Logger interface {
	InfoObj(msg, key string, obj interface{})
	DebugObj(msg, key string, obj interface{})
	WarnObj(msg, key string, obj interface{})
	ErrorObj(msg, key string, obj interface{})
}

// ZapLogger implements Logger on top of a zap core.
type ZapLogger struct {
	base *zap.Logger
}

// Init initializes the zap logger using settings from config and installs it as S.
func Init(cfg *config.Config) (*ZapLogger, error) {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.AddSync(zapcore.Lock(os.Stderr)),
		ParseLevel(cfg.LogLevel),
	)

	base := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1), zap.AddStacktrace(zapcore.ErrorLevel))
	base = base.With(zap.String("app", cfg.AppName), zap.String("env", cfg.Env))
	S = base.Sugar()
	return &ZapLogger{base: base}, nil
}

// ParseLevel maps a config level string onto a zap level, defaulting to info.
func ParseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Close flushes any buffered loggers.
func Close() error {
	if S == nil {
		return nil
	}
	return S.Sync()
}

func (z *ZapLogger) InfoObj(msg, key string, obj interface{}) {
	z.base.Info(msg, zap.Any(key, obj))
}

func (z *ZapLogger) DebugObj(msg, key string, obj interface{}) {
	z.base.Debug(msg, zap.Any(key, obj))
}

func (z *ZapLogger) WarnObj(msg, key string, obj interface{}) {
	z.base.Warn(msg, zap.Any(key, obj))
}

func (z *ZapLogger) ErrorObj(msg, key string, obj interface{}) {
	z.base.Error(msg, zap.Any(key, obj))
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) InfoObj(string, string, interface{})  {}
func (NopLogger) DebugObj(string, string, interface{}) {}
func (NopLogger) WarnObj(string, string, interface{})  {}
func (NopLogger) ErrorObj(string, string, interface{}) {}

// Minimal object logging helpers -------------------------------------------------
// These log through S when Init has run and are no-ops before that.
func InfoObj(msg, key string, obj interface{}) {
	if S == nil {
		return
	}
	S.Desugar().Info(msg, zap.Any(key, obj))
}

func DebugObj(msg, key string, obj interface{}) {
	if S == nil {
		return
	}
	S.Desugar().Debug(msg, zap.Any(key, obj))
}

func WarnObj(msg, key string, obj interface{}) {
	if S == nil {
		return
	}
	S.Desugar().Warn(msg, zap.Any(key, obj))
}

func ErrorObj(msg, key string, obj interface{}) {
	if S == nil {
		return
	}
	S.Desugar().Error(msg, zap.Any(key, obj))
}
