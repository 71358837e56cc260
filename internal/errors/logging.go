package errors

import (
	"github.com/sirupsen/logrus"
)

// Logger wraps logrus.Logger with structured error logging
type Logger struct {
	*logrus.Logger
	filter func(logrus.Fields) logrus.Fields
}

// NewLogger wraps an existing logrus logger. A nil logger gets a fresh JSON logger.
func NewLogger(base *logrus.Logger) *Logger {
	if base == nil {
		base = logrus.New()
		base.SetFormatter(&logrus.JSONFormatter{})
	}
	return &Logger{Logger: base}
}

// WithFilter returns a Logger that passes the error context and the caller's
// fields through filter before they are written.
func (l *Logger) WithFilter(filter func(logrus.Fields) logrus.Fields) *Logger {
	return &Logger{Logger: l.Logger, filter: filter}
}

// LogError logs an error with structured context
func (l *Logger) LogError(err error, message string, fields ...logrus.Fields) {
	l.entry(err, fields...).Error(message)
}

// LogWarn logs a warning with structured context
func (l *Logger) LogWarn(err error, message string, fields ...logrus.Fields) {
	l.entry(err, fields...).Warn(message)
}

func (l *Logger) entry(err error, fields ...logrus.Fields) *logrus.Entry {
	all := make(logrus.Fields)

	if appErr, ok := As(err); ok {
		all["error_code"] = appErr.Code
		for k, v := range appErr.Context {
			all[k] = v
		}
	}

	for _, field := range fields {
		for k, v := range field {
			all[k] = v
		}
	}

	if l.filter != nil {
		all = l.filter(all)
	}
	return l.Logger.WithError(err).WithFields(all)
}
