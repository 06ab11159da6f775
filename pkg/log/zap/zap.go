// Package zap adapts go.uber.org/zap to the logger.Logger interface, as the
// alternate core selectable via conf.Core.
package zap

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/endomorphosis/ipfs-kit-py-sub032/pkg/log/conf"
	"github.com/endomorphosis/ipfs-kit-py-sub032/pkg/log/logger"
)

type wrapper struct {
	sugar *zap.SugaredLogger
}

// NewZapWrapper builds a logger.Logger backed by zap, configured per the
// given LogConfig.
func NewZapWrapper(cfg *conf.LogConfig) (logger.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if cfg.Formatter == conf.ConsoleFormatter {
		zcfg.Encoding = "console"
	} else {
		zcfg.Encoding = "json"
	}
	zcfg.Level = zap.NewAtomicLevelAt(toZapLevel(cfg.Level))
	l, err := zcfg.Build()
	if err != nil {
		return nil, err
	}
	return &wrapper{sugar: l.Sugar()}, nil
}

func (w *wrapper) Log(level conf.Level, args ...interface{}) {
	switch level {
	case conf.TraceLevel, conf.DebugLevel:
		w.sugar.Debug(args...)
	case conf.WarnLevel:
		w.sugar.Warn(args...)
	case conf.ErrorLevel:
		w.sugar.Error(args...)
	case conf.FatalLevel:
		w.sugar.Fatal(args...)
	default:
		w.sugar.Info(args...)
	}
}

func (w *wrapper) Logf(level conf.Level, format string, args ...interface{}) {
	w.Log(level, fmt.Sprintf(format, args...))
}

func (w *wrapper) WithFields(fields map[string]interface{}) logger.Logger {
	kvs := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		kvs = append(kvs, k, v)
	}
	return &wrapper{sugar: w.sugar.With(kvs...)}
}

func toZapLevel(level conf.Level) zapcore.Level {
	switch level {
	case conf.TraceLevel, conf.DebugLevel:
		return zapcore.DebugLevel
	case conf.WarnLevel:
		return zapcore.WarnLevel
	case conf.ErrorLevel:
		return zapcore.ErrorLevel
	case conf.FatalLevel:
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}
