package core

// Logger is the app-wide logging service.
// Implementations may extract a user.User from args to attach the acting user
// to the report (see services/logger).
type Logger interface {
	Enable(enabled bool)
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
