// Package zaplog bridges the auth.Logger interface to zap.
package zaplog

import "go.uber.org/zap"

// Adapter implements auth.Logger on top of a zap sugared logger.
type Adapter struct {
	sugar *zap.SugaredLogger
}

// New wraps a zap logger. Callers keep ownership of the logger and
// its Sync.
func New(logger *zap.Logger) *Adapter {
	return &Adapter{sugar: logger.Sugar()}
}

func (a *Adapter) Debug(msg string, args ...any) {
	a.sugar.Debugw(msg, args...)
}

func (a *Adapter) Info(msg string, args ...any) {
	a.sugar.Infow(msg, args...)
}

func (a *Adapter) Warn(msg string, args ...any) {
	a.sugar.Warnw(msg, args...)
}

func (a *Adapter) Error(msg string, args ...any) {
	a.sugar.Errorw(msg, args...)
}
