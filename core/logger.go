package core

// Logger is implemented by any logging service.
// Args may hold errors, extra values and at most one Person (the authenticated user).
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Person identifies the user an event is logged for.
type Person interface {
	LogPerson() (id, username, email string)
}
