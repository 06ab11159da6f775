// Package logger defines the backend-agnostic Logger interface that every
// logging core (logrus, zap) implements.
package logger

import "github.com/endomorphosis/ipfs-kit-py-sub032/pkg/log/conf"

// Logger is the minimal surface the rest of this module depends on.
// Concrete cores (logrus, zap) each provide one implementation.
type Logger interface {
	Log(level conf.Level, args ...interface{})
	Logf(level conf.Level, format string, args ...interface{})
	WithFields(fields map[string]interface{}) Logger
}
