package logx

import (
	"context"
	"fmt"
)

// ContextFieldsFunc extracts log fields from a context (request id, user id).
// Packages that own context keys register one with RegisterContextFields.
type ContextFieldsFunc func(ctx context.Context) Fields

var contextExtractors []ContextFieldsFunc

// RegisterContextFields adds an extractor consulted by WithContext.
// Call it during init; it is not safe for concurrent use with logging.
func RegisterContextFields(fn ContextFieldsFunc) {
	contextExtractors = append(contextExtractors, fn)
}

// Entry allows for building up log entries with multiple fields
type Entry struct {
	logger *Logger
	fields Fields
	err    error
}

func newEntry(logger *Logger) *Entry {
	return &Entry{
		logger: logger,
		fields: make(Fields),
	}
}

// WithField adds a field to the entry (chainable)
func (e *Entry) WithField(key string, value any) *Entry {
	e.fields[key] = value
	return e
}

// WithFields adds multiple fields to the entry (chainable)
func (e *Entry) WithFields(fields Fields) *Entry {
	for k, v := range fields {
		e.fields[k] = v
	}
	return e
}

// WithError attaches an error (chainable)
func (e *Entry) WithError(err error) *Entry {
	e.err = err
	return e
}

// WithContext copies request-scoped fields out of ctx (chainable)
func (e *Entry) WithContext(ctx context.Context) *Entry {
	if ctx == nil {
		return e
	}
	for _, fn := range contextExtractors {
		for k, v := range fn(ctx) {
			e.fields[k] = v
		}
	}
	return e
}

// Debug logs at debug level
func (e *Entry) Debug(msg string) { e.logger.log(LevelDebug, msg, e.fields, e.err) }

// Info logs at info level
func (e *Entry) Info(msg string) { e.logger.log(LevelInfo, msg, e.fields, e.err) }

// Warn logs at warn level
func (e *Entry) Warn(msg string) { e.logger.log(LevelWarn, msg, e.fields, e.err) }

// Error logs at error level
func (e *Entry) Error(msg string) { e.logger.log(LevelError, msg, e.fields, e.err) }

// Debugf logs formatted debug message
func (e *Entry) Debugf(format string, args ...any) {
	e.logger.log(LevelDebug, fmt.Sprintf(format, args...), e.fields, e.err)
}

// Infof logs formatted info message
func (e *Entry) Infof(format string, args ...any) {
	e.logger.log(LevelInfo, fmt.Sprintf(format, args...), e.fields, e.err)
}

// Warnf logs formatted warn message
func (e *Entry) Warnf(format string, args ...any) {
	e.logger.log(LevelWarn, fmt.Sprintf(format, args...), e.fields, e.err)
}

// Errorf logs formatted error message
func (e *Entry) Errorf(format string, args ...any) {
	e.logger.log(LevelError, fmt.Sprintf(format, args...), e.fields, e.err)
}
