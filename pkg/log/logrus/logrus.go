// Package logrus adapts github.com/sirupsen/logrus to the logger.Logger
// interface.
package logrus

import (
	"github.com/sirupsen/logrus"

	"github.com/endomorphosis/ipfs-kit-py-sub032/pkg/log/conf"
	"github.com/endomorphosis/ipfs-kit-py-sub032/pkg/log/logger"
)

type wrapper struct {
	entry *logrus.Entry
}

// NewLogrusWrapper builds a logger.Logger backed by logrus, configured per
// the given LogConfig.
func NewLogrusWrapper(cfg *conf.LogConfig) (logger.Logger, error) {
	base := logrus.New()
	base.SetLevel(toLogrusLevel(cfg.Level))
	if cfg.Formatter == conf.ConsoleFormatter {
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		base.SetFormatter(&logrus.JSONFormatter{})
	}
	return &wrapper{entry: logrus.NewEntry(base)}, nil
}

func (w *wrapper) Log(level conf.Level, args ...interface{}) {
	w.entry.Log(toLogrusLevel(level), args...)
}

func (w *wrapper) Logf(level conf.Level, format string, args ...interface{}) {
	w.entry.Logf(toLogrusLevel(level), format, args...)
}

func (w *wrapper) WithFields(fields map[string]interface{}) logger.Logger {
	return &wrapper{entry: w.entry.WithFields(logrus.Fields(fields))}
}

func toLogrusLevel(level conf.Level) logrus.Level {
	switch level {
	case conf.TraceLevel:
		return logrus.TraceLevel
	case conf.DebugLevel:
		return logrus.DebugLevel
	case conf.WarnLevel:
		return logrus.WarnLevel
	case conf.ErrorLevel:
		return logrus.ErrorLevel
	case conf.FatalLevel:
		return logrus.FatalLevel
	default:
		return logrus.InfoLevel
	}
}
