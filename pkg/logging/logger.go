package logging

// Logger - just a logger interface for convenient injection,
// *slog.Logger satisfies it
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
	Info(msg string, args ...any)
}

// NullSafeLogger - convenience wrapper above Logger, drops records when no logger is set
type NullSafeLogger struct {
	log Logger
}

// NullSafe - NullSafeLogger constructor
func NullSafe(log Logger) *NullSafeLogger {
	if l, ok := log.(*NullSafeLogger); ok {
		return l
	}
	return &NullSafeLogger{log: log}
}

// Error - logging wrapper
func (l *NullSafeLogger) Error(msg string, args ...any) {
	if l == nil || l.log == nil {
		return
	}
	l.log.Error(msg, args...)
}

// Warn - logging wrapper
func (l *NullSafeLogger) Warn(msg string, args ...any) {
	if l == nil || l.log == nil {
		return
	}
	l.log.Warn(msg, args...)
}

// Info - logging wrapper
func (l *NullSafeLogger) Info(msg string, args ...any) {
	if l == nil || l.log == nil {
		return
	}
	l.log.Info(msg, args...)
}
