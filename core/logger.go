package core

// Logger is implemented by every logging backend used by the app.
// args may carry an error, a map[string]interface{} of extras, or a user.User.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
