package harness

import "go.uber.org/zap"

var logger = zap.NewNop()

// Logger returns the package logger; a no-op until SetLogger is called.
func Logger() *zap.Logger { return logger }

// SetLogger replaces the package logger. Call it before running scripts.
func SetLogger(l *zap.Logger) {
	if l != nil {
		logger = l
	}
}
