// Package logger builds the zap logger shared by the server and the CLI.
package logger

import "go.uber.org/zap"

// New creates a zap.Logger for the given environment. "production" gets the
// JSON encoder at info level; anything else gets the development console encoder.
func New(env string) *zap.Logger {
	if env == "production" {
		if l, err := zap.NewProduction(); err == nil {
			return l
		}
	}
	l, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return l
}
