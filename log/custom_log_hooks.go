package log

// CustomLogHook receives every log line that passes level filtering. It
// returns true when the line should not also be written to the sub-logger's
// own outputs.
type CustomLogHook func(header, subLoggerName string, a ...any) (bypassLibraryLogSystem bool)

var customLogHook CustomLogHook

// SetCustomLogHook installs a hook that lets an embedding front-end capture
// log lines. Passing nil removes it.
func SetCustomLogHook(h CustomLogHook) {
	mu.Lock()
	customLogHook = h
	mu.Unlock()
}
