package log

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"
)

// Info takes a pointer subLogger struct and string sends to StageLogEvent
func Info(sl *SubLogger, data string) {
	mu.RLock()
	defer mu.RUnlock()
	fields := sl.getFields()
	fields.stage(fields.headerInfo(), data)
}

// Infoln takes a pointer subLogger struct and interface sends to StageLogEvent
func Infoln(sl *SubLogger, v ...any) {
	mu.RLock()
	defer mu.RUnlock()
	fields := sl.getFields()
	fields.stage(fields.headerInfo(), fmt.Sprintln(v...))
}

// Infof takes a pointer subLogger struct, string and interface formats sends to StageLogEvent
func Infof(sl *SubLogger, data string, v ...any) {
	mu.RLock()
	defer mu.RUnlock()
	fields := sl.getFields()
	fields.stage(fields.headerInfo(), fmt.Sprintf(data, v...))
}

// Debug takes a pointer subLogger struct and string sends to StageLogEvent
func Debug(sl *SubLogger, data string) {
	mu.RLock()
	defer mu.RUnlock()
	fields := sl.getFields()
	fields.stage(fields.headerDebug(), data)
}

// Debugln takes a pointer subLogger struct, string and interface sends to StageLogEvent
func Debugln(sl *SubLogger, v ...any) {
	mu.RLock()
	defer mu.RUnlock()
	fields := sl.getFields()
	fields.stage(fields.headerDebug(), fmt.Sprintln(v...))
}

// Debugf takes a pointer subLogger struct, string and interface formats sends to StageLogEvent
func Debugf(sl *SubLogger, data string, v ...any) {
	mu.RLock()
	defer mu.RUnlock()
	fields := sl.getFields()
	fields.stage(fields.headerDebug(), fmt.Sprintf(data, v...))
}

// Warn takes a pointer subLogger struct & string and sends to StageLogEvent
func Warn(sl *SubLogger, data string) {
	mu.RLock()
	defer mu.RUnlock()
	fields := sl.getFields()
	fields.stage(fields.headerWarn(), data)
}

// Warnln takes a pointer subLogger struct & interface formats and sends to StageLogEvent
func Warnln(sl *SubLogger, v ...any) {
	mu.RLock()
	defer mu.RUnlock()
	fields := sl.getFields()
	fields.stage(fields.headerWarn(), fmt.Sprintln(v...))
}

// Warnf takes a pointer subLogger struct, string and interface formats sends to StageLogEvent
func Warnf(sl *SubLogger, data string, v ...any) {
	mu.RLock()
	defer mu.RUnlock()
	fields := sl.getFields()
	fields.stage(fields.headerWarn(), fmt.Sprintf(data, v...))
}

// Error takes a pointer subLogger struct & interface formats and sends to StageLogEvent
func Error(sl *SubLogger, data string) {
	mu.RLock()
	defer mu.RUnlock()
	fields := sl.getFields()
	fields.stage(fields.headerError(), data)
}

// Errorln takes a pointer subLogger struct, string & interface formats and sends to StageLogEvent
func Errorln(sl *SubLogger, v ...any) {
	mu.RLock()
	defer mu.RUnlock()
	fields := sl.getFields()
	fields.stage(fields.headerError(), fmt.Sprintln(v...))
}

// Errorf takes a pointer subLogger struct, string and interface formats sends to StageLogEvent
func Errorf(sl *SubLogger, data string, v ...any) {
	mu.RLock()
	defer mu.RUnlock()
	fields := sl.getFields()
	fields.stage(fields.headerError(), fmt.Sprintf(data, v...))
}

// WithFields allows the user to add fields to a structured log output
func WithFields(sl *SubLogger, structuredFields map[string]any) *logFields {
	mu.RLock()
	defer mu.RUnlock()
	fields := sl.getFields()
	if fields == nil {
		return nil
	}
	fields.structuredFields = structuredFields
	return fields
}

// Infof logs with the attached structured fields
func (l *logFields) Infof(data string, v ...any) {
	l.stage(l.headerInfo(), fmt.Sprintf(data, v...))
}

// Warnf logs with the attached structured fields
func (l *logFields) Warnf(data string, v ...any) {
	l.stage(l.headerWarn(), fmt.Sprintf(data, v...))
}

// Errorf logs with the attached structured fields
func (l *logFields) Errorf(data string, v ...any) {
	l.stage(l.headerError(), fmt.Sprintf(data, v...))
}

// Debugf logs with the attached structured fields
func (l *logFields) Debugf(data string, v ...any) {
	l.stage(l.headerDebug(), fmt.Sprintf(data, v...))
}

func (sl *SubLogger) getFields() *logFields {
	if sl == nil {
		return nil
	}
	return &logFields{
		info:   sl.levels.Info,
		warn:   sl.levels.Warn,
		debug:  sl.levels.Debug,
		error:  sl.levels.Error,
		name:   sl.name,
		output: sl.output,
		logger: logger,
	}
}

func (l *logFields) headerInfo() string {
	if l == nil || !l.info {
		return ""
	}
	return l.logger.InfoHeader
}

func (l *logFields) headerWarn() string {
	if l == nil || !l.warn {
		return ""
	}
	return l.logger.WarnHeader
}

func (l *logFields) headerDebug() string {
	if l == nil || !l.debug {
		return ""
	}
	return l.logger.DebugHeader
}

func (l *logFields) headerError() string {
	if l == nil || !l.error {
		return ""
	}
	return l.logger.ErrorHeader
}

// stage writes a log event when the level header is enabled
func (l *logFields) stage(header, data string) {
	if l == nil || header == "" {
		return
	}
	data = strings.TrimRight(data, "\n")
	if customLogHook != nil && customLogHook(header, l.name, data) {
		return
	}
	if l.output == nil {
		return
	}
	var line []byte
	if l.logger.StructuredLogging {
		line = l.structured(header, data)
	} else {
		line = l.plain(header, data)
	}
	if _, err := l.output.Write(line); err != nil {
		displayError(err)
	}
}

func (l *logFields) plain(header, data string) []byte {
	b := make([]byte, 0, len(header)+len(data)+64)
	b = append(b, header...)
	b = append(b, l.logger.Spacer...)
	if l.logger.TimestampFormat != "" {
		b = time.Now().AppendFormat(b, l.logger.TimestampFormat)
	}
	b = append(b, l.logger.Spacer...)
	if l.logger.ShowLogSystemName {
		b = append(b, l.name...)
		b = append(b, l.logger.Spacer...)
	}
	b = append(b, data...)
	for k, v := range l.structuredFields {
		b = append(b, fmt.Sprintf(" %s=%v", k, v)...)
	}
	return append(b, '\n')
}

func (l *logFields) structured(header, data string) []byte {
	out := make(map[string]any, len(l.structuredFields)+4)
	for k, v := range l.structuredFields {
		out[k] = v
	}
	out["level"] = strings.Trim(header, "[]")
	out["sublogger"] = l.name
	out["timestamp"] = time.Now().UTC().Format(time.RFC3339Nano)
	out["message"] = data
	b, err := json.Marshal(out)
	if err != nil {
		return l.plain(header, data)
	}
	return append(b, '\n')
}

func displayError(err error) {
	if err != nil {
		log.Printf("Logger write error: %v\n", err)
	}
}
