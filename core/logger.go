package core

// Logger logs messages with optional context.
// args may hold an error, a map[string]interface{} of extra data, or the user.User responsible for the action.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
