// Package log is the structured logging facade used across this module.
// It wraps a pluggable core (logrus by default, zap as an alternative,
// selected via conf.Core) behind a small set of free functions plus a
// package-level global logger.
package log

import (
	"fmt"
	"os"

	"github.com/endomorphosis/ipfs-kit-py-sub032/pkg/log/conf"
	"github.com/endomorphosis/ipfs-kit-py-sub032/pkg/log/logger"
	"github.com/endomorphosis/ipfs-kit-py-sub032/pkg/log/logrus"
	"github.com/endomorphosis/ipfs-kit-py-sub032/pkg/log/zap"
)

// Fields is a set of structured key/value pairs attached to a log line.
type Fields map[string]interface{}

var globalLogger logger.Logger

var ErrorLoggerNotInitialized = fmt.Errorf("logger not initialized")

func init() {
	_ = InitGlobalLogger(conf.DefaultConfig())
}

// InitGlobalLogger (re)builds the package-level logger from cfg.
func InitGlobalLogger(cfg *conf.LogConfig) (err error) {
	switch cfg.Core {
	case conf.ZapCore:
		globalLogger, err = zap.NewZapWrapper(cfg)
	default:
		globalLogger, err = logrus.NewLogrusWrapper(cfg)
	}
	return err
}

// NewLogger returns an independent logger at the given level, using the
// default core and formatter.
func NewLogger(level conf.Level) (logger.Logger, error) {
	cfg := conf.DefaultConfig()
	cfg.Level = level
	return logrus.NewLogrusWrapper(cfg)
}

// GlobalLogger returns the package-level logger, panicking if it was never
// initialized (which should be unreachable given init() above).
func GlobalLogger() logger.Logger {
	if globalLogger == nil {
		panic(ErrorLoggerNotInitialized)
	}
	return globalLogger
}

// SetGlobalLogger overrides the package-level logger, e.g. in tests.
func SetGlobalLogger(l logger.Logger) {
	globalLogger = l
}

// WithFields returns a logger.Logger with the given structured fields
// attached to every subsequent line.
func WithFields(fields Fields) logger.Logger {
	return GlobalLogger().WithFields(fields)
}

func Log(level conf.Level, args ...interface{}) { GlobalLogger().Log(level, args...) }
func Logf(level conf.Level, format string, args ...interface{}) {
	GlobalLogger().Logf(level, format, args...)
}

func Info(args ...interface{})                 { Log(conf.InfoLevel, args...) }
func Infof(format string, args ...interface{}) { Logf(conf.InfoLevel, format, args...) }

func Debug(args ...interface{})                 { Log(conf.DebugLevel, args...) }
func Debugf(format string, args ...interface{}) { Logf(conf.DebugLevel, format, args...) }

func Warn(args ...interface{})                 { Log(conf.WarnLevel, args...) }
func Warnf(format string, args ...interface{}) { Logf(conf.WarnLevel, format, args...) }

func Error(args ...interface{})                 { Log(conf.ErrorLevel, args...) }
func Errorf(format string, args ...interface{}) { Logf(conf.ErrorLevel, format, args...) }

func Fatal(args ...interface{}) {
	Log(conf.FatalLevel, args...)
	os.Exit(1)
}

func Fatalf(format string, args ...interface{}) {
	Logf(conf.FatalLevel, format, args...)
	os.Exit(1)
}
