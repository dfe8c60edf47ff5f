package taskqueue

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
)

// Logger adapts slog to asynq's logger interface.
type Logger struct {
	logger *slog.Logger
}

var _ asynq.Logger = (*Logger)(nil)

// NewLogger wraps l.
func NewLogger(l *slog.Logger) *Logger {
	return &Logger{logger: l}
}

func (l *Logger) Debug(args ...interface{}) { l.logger.Debug(fmt.Sprint(args...)) }
func (l *Logger) Info(args ...interface{})  { l.logger.Info(fmt.Sprint(args...)) }
func (l *Logger) Warn(args ...interface{})  { l.logger.Warn(fmt.Sprint(args...)) }
func (l *Logger) Error(args ...interface{}) { l.logger.Error(fmt.Sprint(args...)) }

// Fatal logs and exits, as asynq expects.
func (l *Logger) Fatal(args ...interface{}) {
	l.logger.Error(fmt.Sprint(args...))
	os.Exit(1)
}
