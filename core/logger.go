package core

// Logger is implemented by every log sink of the app.
// args may carry an error, a map of extra fields and the acting Principal-like value understood by the sink.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Person identifies the acting user in log reports.
type Person struct {
	ID    string
	Name  string
	Email string
}
