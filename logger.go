package feedcache

// Fields carries structured context for one log line.
type Fields map[string]any

// Logger receives the loader's operational messages: saves, failed loads,
// expiry and cleanup. Adapters for zap, logrus and slog live under log/.
// A nil Logger in Options discards everything.
type Logger interface {
	Debug(msg string, f Fields)
	Info(msg string, f Fields)
	Warn(msg string, f Fields)
	Error(msg string, f Fields)
}

// NopLogger discards all messages.
type NopLogger struct{}

func (NopLogger) Debug(string, Fields) {}
func (NopLogger) Info(string, Fields)  {}
func (NopLogger) Warn(string, Fields)  {}
func (NopLogger) Error(string, Fields) {}
